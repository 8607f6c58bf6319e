package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDGenerated(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("request id %q is not a UUID: %v", got, err)
	}
	if h := rec.Header().Get(RequestIDHeader); h != got {
		t.Errorf("%s = %q, want %q", RequestIDHeader, h, got)
	}
}

func TestRequestIDReusesIncoming(t *testing.T) {
	incoming := uuid.NewString()
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != incoming {
		t.Errorf("request id = %q, want %q", got, incoming)
	}
}

func TestRequestIDReplacesGarbage(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == "<script>" {
		t.Error("malformed incoming id should be replaced")
	}
}

func TestRequestLoggerIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/notes/99", nil))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("4xx should log at warn: %q", out)
	}
	if !strings.Contains(out, "status=404") {
		t.Errorf("missing status: %q", out)
	}
	if !strings.Contains(out, "request_id="+rec.Header().Get(RequestIDHeader)) {
		t.Errorf("missing request id: %q", out)
	}
}
