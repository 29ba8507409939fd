package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeLayout is the wire layout for every timestamp in a payload: UTC with
// millisecond precision, as produced by JavaScript's Date.prototype.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrCorrupt is returned by Decode when stored bytes are not a JSON object.
var ErrCorrupt = errors.New("session: corrupt payload")

type userWire struct {
	ID         string `json:"_id"`
	Status     string `json:"status,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Thumb      string `json:"thumb,omitempty"`
	Restaurant string `json:"restaurant,omitempty"`
	UpdatedAt  any    `json:"updatedAt,omitempty"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts an RFC 3339 timestamp (any sub-second precision) and
// normalizes it to UTC milliseconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Encode serializes p as a flat JSON object. Object keys are emitted in sorted
// order, so equal payloads always encode to identical bytes.
func Encode(p *Payload) ([]byte, error) {
	if p == nil {
		p = New()
	}

	doc := make(map[string]any, len(p.values)+2)
	for k, v := range p.values {
		doc[k] = v
	}
	if exp, ok := p.Expiry(); ok {
		doc[ExpiryKey] = FormatTime(exp)
	}
	switch {
	case p.user != nil:
		doc[UserKey] = userDoc(p.user, p.userExtra)
	case p.rawUser != nil:
		doc[UserKey] = p.rawUser
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("session: encode payload: %w", err)
	}
	return data, nil
}

// Decode parses stored bytes into a Payload. Anything that is not a JSON object
// yields ErrCorrupt. A malformed "_expiry" is dropped rather than failing the
// whole payload; a "user" value that is not a valid projection is kept as-is
// but does not authenticate the session.
func Decode(data []byte) (*Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc == nil {
		return nil, ErrCorrupt
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}

	p := New()
	for k, v := range doc {
		switch k {
		case ExpiryKey:
			if exp, ok := decodeTime(v); ok {
				p.expiry = exp
			}
		case UserKey:
			if u, extra, ok := decodeUser(v); ok {
				p.user, p.userExtra = u, extra
			} else {
				p.rawUser = v
			}
		default:
			p.values[k] = v
		}
	}
	return p, nil
}

// userFields are the keys of the stored user object modelled by [User].
var userFields = map[string]struct{}{
	"_id": {}, "status": {}, "firstName": {}, "lastName": {}, "email": {},
	"avatar": {}, "thumb": {}, "restaurant": {}, "updatedAt": {},
}

func userDoc(u *User, extra map[string]any) map[string]any {
	doc := make(map[string]any, len(extra)+len(userFields))
	for k, v := range extra {
		doc[k] = v
	}
	doc["_id"] = u.ID
	setString(doc, "status", u.Status)
	setString(doc, "firstName", u.FirstName)
	setString(doc, "lastName", u.LastName)
	setString(doc, "email", u.Email)
	setString(doc, "avatar", u.Avatar)
	setString(doc, "thumb", u.Thumb)
	setString(doc, "restaurant", u.Restaurant)
	if !u.UpdatedAt.IsZero() {
		doc["updatedAt"] = FormatTime(u.UpdatedAt)
	}
	return doc
}

func setString(doc map[string]any, key, v string) {
	if v != "" {
		doc[key] = v
	}
}

func decodeUser(v any) (*User, map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, false
	}
	var w userWire
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" {
		return nil, nil, false
	}
	u := &User{
		ID:         w.ID,
		Status:     w.Status,
		FirstName:  w.FirstName,
		LastName:   w.LastName,
		Email:      w.Email,
		Avatar:     w.Avatar,
		Thumb:      w.Thumb,
		Restaurant: w.Restaurant,
	}
	var extra map[string]any
	for k, val := range obj {
		if k == "updatedAt" {
			if t, ok := decodeTime(val); ok {
				u.UpdatedAt = t
				continue
			}
		} else if _, known := userFields[k]; known {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = val
	}
	return u, extra, true
}

// decodeTime accepts an RFC 3339 string or a number of Unix milliseconds.
func decodeTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case string:
		t, err := ParseTime(tv)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case json.Number:
		f, err := tv.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).UTC(), true
	default:
		return time.Time{}, false
	}
}
