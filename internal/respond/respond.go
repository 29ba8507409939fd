// Package respond writes the JSON response envelope shared by the session gate
// and the HTTP handlers:
//
//	{"status":"SUCCESS","data":...}
//	{"status":"ERROR","error":"Not authorized","errorCode":"UNAUTHORIZED"}
package respond

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Problem is the client-visible description of an HTTP failure status.
type Problem struct {
	Code    string
	Message string
}

var problems = map[int]Problem{
	http.StatusBadRequest:          {Code: "BAD_REQUEST", Message: "Bad request"},
	http.StatusUnauthorized:        {Code: "UNAUTHORIZED", Message: "Not authorized"},
	http.StatusForbidden:           {Code: "FORBIDDEN", Message: "Operation Not Permitted"},
	http.StatusNotFound:            {Code: "NOT_FOUND", Message: "Not found"},
	http.StatusMethodNotAllowed:    {Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"},
	http.StatusConflict:            {Code: "DATA_CONFLICT", Message: "Already exists"},
	http.StatusTooManyRequests:     {Code: "TOO_MANY_REQUESTS", Message: "Too many requests"},
	http.StatusInternalServerError: {Code: "SERVER_ERROR", Message: "Server error"},
	http.StatusServiceUnavailable:  {Code: "SERVICE_UNAVAILABLE", Message: "Service unavailable"},
}

// ProblemFor returns the table entry for status, falling back to SERVER_ERROR.
func ProblemFor(status int) Problem {
	if p, ok := problems[status]; ok {
		return p
	}
	return problems[http.StatusInternalServerError]
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a SUCCESS envelope around data.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Status: StatusSuccess, Data: data})
}

// Error writes an ERROR envelope using the default message for status.
func Error(w http.ResponseWriter, status int) {
	p := ProblemFor(status)
	ErrorWith(w, status, p.Code, p.Message)
}

// ErrorWith writes an ERROR envelope with an explicit code and message.
func ErrorWith(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{Status: StatusError, Error: message, ErrorCode: code})
}

// SetRaw sets a header without canonicalizing its name, so names such as
// RENEW_USER reach the wire exactly as written.
func SetRaw(h http.Header, name, value string) {
	h[name] = []string{value}
}

// DelRaw removes a header set with SetRaw.
func DelRaw(h http.Header, name string) {
	delete(h, name)
}
