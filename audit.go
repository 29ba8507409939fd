package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/rs/zerolog"
)

type (
	// AuditEvent is one audit record. SessionID holds a token fingerprint.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the Engine's dispatcher.
	AuditSink = audit.Sink
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// MultiSink fans events out to several sinks.
	MultiSink = audit.MultiSink
)

// NewChannelSink returns a sink that buffers events in a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes JSON lines to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink that writes events through logger.
func NewLogSink(logger zerolog.Logger) *audit.LogSink {
	return audit.NewLogSink(logger)
}

// NewHTTPSink returns a sink that POSTs events to a remote log server,
// authenticating with token as a bearer credential.
func NewHTTPSink(url, token string, logger zerolog.Logger) *audit.HTTPSink {
	return audit.NewHTTPSink(url, token, audit.WithHTTPLogger(logger))
}
