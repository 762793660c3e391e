package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestHTTPMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var seen bool
	h := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := Ctx(r.Context())
		l.Info().Msg("inside")
		seen = true
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("handler was not called")
	}
	if got := rec.Header().Get(headerRequestID); got != "req-1" {
		t.Errorf("expected request id header req-1, got %q", got)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var last map[string]interface{}
	if err := json.Unmarshal(lines[1], &last); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if last[FieldRequestID] != "req-1" {
		t.Errorf("expected request id in log, got %v", last[FieldRequestID])
	}
	if last[FieldStatus] != float64(http.StatusTeapot) {
		t.Errorf("expected status %d, got %v", http.StatusTeapot, last[FieldStatus])
	}
	if last[FieldPath] != "/v1/messages" {
		t.Errorf("expected path in log, got %v", last[FieldPath])
	}
	if last["level"] != "warn" {
		t.Errorf("client errors should log at warn, got %v", last["level"])
	}
}

func TestHTTPMiddlewareLevels(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/messages", http.StatusOK, "info"},
		{"/health", http.StatusOK, "debug"},
		{"/api/v1/user", http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		h := HTTPMiddleware(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("ok"))
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

		var line map[string]interface{}
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("%s: invalid log line: %v", tt.path, err)
		}
		if line["level"] != tt.want {
			t.Errorf("%s %d: level %v, want %s", tt.path, tt.status, line["level"], tt.want)
		}
		if line["bytes"] != float64(2) {
			t.Errorf("%s: bytes %v, want 2", tt.path, line["bytes"])
		}
		if line[FieldRequestID] == "" || line[FieldRequestID] == nil {
			t.Errorf("%s: missing generated request id", tt.path)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
