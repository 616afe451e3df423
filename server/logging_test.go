package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerText(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "")

	req := httptest.NewRequest("GET", "/about", nil)
	logger.ServeHTTP(httptest.NewRecorder(), req)

	log := buf.String()
	for _, want := range []string{"GET", "/about", " 200 ", " 2B "} {
		if !strings.Contains(log, want) {
			t.Errorf("log should contain %q: %s", want, log)
		}
	}
}

func TestRequestLoggerJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "json")

	req := httptest.NewRequest("GET", "/missing", nil)
	logger.ServeHTTP(httptest.NewRecorder(), req)

	var entry RequestLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v (%s)", err, buf.String())
	}
	if entry.Method != "GET" || entry.Path != "/missing" || entry.Status != http.StatusNotFound {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestRequestLoggerSkipsLiveReload(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var buf bytes.Buffer
	logger := newRequestLogger(handler, &buf, "text")
	logger.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/__livereload", nil))

	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %q", buf.String())
	}
}
