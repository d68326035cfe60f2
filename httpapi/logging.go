package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"pkt.systems/cmdweb/schema"
	"pkt.systems/pslog"
)

// statusWriter records the status and size of a response. It forwards Flush
// so the SSE stream keeps working behind it.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type sessionLookupFunc func(*http.Request) schema.SessionID

// quietRoutes fire on every keystroke or asset fetch and log at debug.
var quietRoutes = map[string]bool{
	"/api/key":   true,
	"/api/input": true,
	"/api/state": true,
}

type accessLevel int

const (
	accessInfo accessLevel = iota
	accessDebug
	accessWarn
	accessError
)

func accessLogLevel(path string, status int) accessLevel {
	switch {
	case status >= http.StatusInternalServerError:
		return accessError
	case status >= http.StatusBadRequest:
		return accessWarn
	case quietRoutes[path] || strings.HasPrefix(path, "/assets/"):
		return accessDebug
	default:
		return accessInfo
	}
}

func withRequestLogging(next http.Handler, lookup sessionLookupFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := pslog.Ctx(r.Context()).With("remote", clientIP(r))
		if lookup != nil {
			if id := lookup(r); id != "" {
				logger = logger.With("session", id)
			}
		}
		if r.URL.Path == "/api/stream" {
			logger.Debug("http stream open", "last_event_id", r.Header.Get("Last-Event-ID"))
		}
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch accessLogLevel(r.URL.Path, sw.status) {
		case accessError:
			logger.Error("http request", fields...)
		case accessWarn:
			logger.Warn("http request", fields...)
		case accessDebug:
			logger.Debug("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	})
}

// clientIP prefers the first X-Forwarded-For hop and strips the port.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
