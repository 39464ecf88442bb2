package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// timeoutMarker is the body http.TimeoutHandler writes when the deadline
// passes; timeoutResponse swaps it for the JSON 504 the API returns.
const timeoutMarker = "docsearch: handler deadline exceeded"

var timeoutBody = []byte(`{"error":"request timeout"}`)

// Timeout bounds handler execution with http.TimeoutHandler, which buffers
// the response and fails late writes with http.ErrHandlerTimeout. A timed
// out request gets a 504 with a JSON error body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		th := http.TimeoutHandler(next, timeout, timeoutMarker)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tr := &timeoutResponse{ResponseWriter: w}
			th.ServeHTTP(tr, r)
			tr.finish()
			if tr.timedOut {
				slog.Warn("request timed out", "method", r.Method, "path", r.URL.Path, "timeout", timeout)
			}
		})
	}
}

// timeoutResponse holds back a 503 until the body shows whether it came
// from the handler or from the deadline.
type timeoutResponse struct {
	http.ResponseWriter
	held     bool
	timedOut bool
}

func (t *timeoutResponse) WriteHeader(code int) {
	if code == http.StatusServiceUnavailable && !t.held {
		t.held = true
		return
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *timeoutResponse) Write(b []byte) (int, error) {
	if !t.held {
		return t.ResponseWriter.Write(b)
	}
	t.held = false
	if string(b) == timeoutMarker {
		t.timedOut = true
		t.Header().Set("Content-Type", "application/json")
		t.ResponseWriter.WriteHeader(http.StatusGatewayTimeout)
		t.ResponseWriter.Write(timeoutBody)
		return len(b), nil
	}
	t.ResponseWriter.WriteHeader(http.StatusServiceUnavailable)
	return t.ResponseWriter.Write(b)
}

// finish sends a held 503 that never got a body.
func (t *timeoutResponse) finish() {
	if t.held {
		t.held = false
		t.ResponseWriter.WriteHeader(http.StatusServiceUnavailable)
	}
}
