package middleware

import (
	"net/http"
	"sync"
)

// finalizingWriter runs finalize exactly once, immediately before the first
// byte of the response header is committed, or after the handler returns if it
// never wrote anything.
type finalizingWriter struct {
	http.ResponseWriter
	once     sync.Once
	finalize func()
}

func newFinalizingWriter(w http.ResponseWriter, finalize func()) *finalizingWriter {
	return &finalizingWriter{ResponseWriter: w, finalize: finalize}
}

func (w *finalizingWriter) commit() {
	w.once.Do(w.finalize)
}

func (w *finalizingWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *finalizingWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *finalizingWriter) Flush() {
	w.commit()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *finalizingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *finalizingWriter) finish() {
	w.commit()
}
