package middleware

import (
	"net/http"

	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/MrEthical07/goSession/session"
)

const (
	// DefaultUpdatedAtHeader carries the client's last known user update time.
	DefaultUpdatedAtHeader = "X-Updated-At"
	// LegacyUpdatedAtHeader is read when DefaultUpdatedAtHeader is absent.
	LegacyUpdatedAtHeader = "UPDATED-USER-AT"
	// DefaultRenewHeader is set on responses whose client copy of the user is stale.
	DefaultRenewHeader = "RENEW_USER"
	// SignalValue is written into signal headers.
	SignalValue = "YES"
)

// RenewSignal flags clients whose cached user record is older than the one in
// their session. It never refetches the user itself.
type RenewSignal struct {
	requestHeaders []string
	renewHeader    string
	observer       Observer
}

// RenewOption customizes a [RenewSignal].
type RenewOption func(*RenewSignal)

// WithUpdatedAtHeaders replaces the request headers consulted, in priority order.
func WithUpdatedAtHeaders(names ...string) RenewOption {
	return func(s *RenewSignal) {
		if len(names) > 0 {
			s.requestHeaders = append([]string(nil), names...)
		}
	}
}

// WithRenewHeader overrides DefaultRenewHeader.
func WithRenewHeader(name string) RenewOption {
	return func(s *RenewSignal) {
		if name != "" {
			s.renewHeader = name
		}
	}
}

// WithRenewObserver reports EventRenewSignaled to o.
func WithRenewObserver(o Observer) RenewOption {
	return func(s *RenewSignal) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewRenewSignal builds the staleness signal middleware.
func NewRenewSignal(opts ...RenewOption) *RenewSignal {
	s := &RenewSignal{
		requestHeaders: []string{DefaultUpdatedAtHeader, LegacyUpdatedAtHeader},
		renewHeader:    DefaultRenewHeader,
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RenewHeader returns the response header name used for the signal.
func (s *RenewSignal) RenewHeader() string { return s.renewHeader }

// Handler sets the renew header before next runs when the request session has
// a user and the client sent a last-known update time that does not match it.
func (s *RenewSignal) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := FromContext(r.Context()); ok {
			if client := s.clientValue(r); client != "" && Stale(sess.User(), client) {
				respond.SetRaw(w.Header(), s.renewHeader, SignalValue)
				s.observer.Observe(EventRenewSignaled)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Clear removes a previously set signal, used once the client has refetched.
func (s *RenewSignal) Clear(w http.ResponseWriter) {
	respond.DelRaw(w.Header(), s.renewHeader)
}

func (s *RenewSignal) clientValue(r *http.Request) string {
	for _, name := range s.requestHeaders {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// Stale reports whether the client's last known update time differs from the
// user's updatedAt once both are normalized to UTC milliseconds. A nil user is
// never stale; an unparseable client value or a user without updatedAt always is.
func Stale(u *session.User, clientValue string) bool {
	if u == nil {
		return false
	}
	client, err := session.ParseTime(clientValue)
	if err != nil || u.UpdatedAt.IsZero() {
		return true
	}
	return session.FormatTime(client) != session.FormatTime(u.UpdatedAt)
}
