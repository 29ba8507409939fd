package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "shown", rec["message"])
	require.Equal(t, "v", rec["k"])
	require.Contains(t, rec, "time")
}

func TestNewConsoleAndLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "DEBUG", Format: "console", Output: &buf})
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, l.GetLevel())
	l.Debug().Msg("console line")
	require.Contains(t, buf.String(), "console line")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))

	_, err = New(Config{Level: "loud"})
	require.Error(t, err)
	_, err = New(Config{Format: "xml"})
	require.Error(t, err)
}

func TestHandlersLogRequest(t *testing.T) {
	var buf bytes.Buffer
	base, err := New(Config{Output: &buf})
	require.NoError(t, err)

	h := middleware.RequestID(NewHandler(base)(RequestFieldsHandler(AccessHandler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	))))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set("User-Agent", "probe/1.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "http request", line["message"])
	require.Equal(t, "/probe", line["path"])
	require.EqualValues(t, http.StatusTeapot, line["status"])
	require.Equal(t, "10.0.0.7", line["ip"])
	require.Equal(t, "probe/1.0", line["user_agent"])
	require.NotEmpty(t, line["request_id"])
}

func TestRemoteHost(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	require.Equal(t, "192.0.2.1", RemoteHost(req))
	req.RemoteAddr = "unix"
	require.Equal(t, "unix", RemoteHost(req))
}
