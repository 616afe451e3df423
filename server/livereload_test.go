package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sambeau/mustachepp/config"
)

func TestInjectLiveReload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"before body", "text/html", "<html><body>x</body></html>", "<html><body>x" + liveReloadScript + "</body></html>"},
		{"before html", "text/html", "<html>x</HTML>", "<html>x" + liveReloadScript + "</HTML>"},
		{"appended", "text/html; charset=utf-8", "x", "x" + liveReloadScript},
		{"not html", "text/css", "body{}", "body{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := injectLiveReload(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusAccepted)
				w.Write([]byte(tt.body))
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

			if rec.Code != http.StatusAccepted {
				t.Errorf("status = %d, want 202", rec.Code)
			}
			if rec.Body.String() != tt.want {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.want)
			}
		})
	}
}

func TestLiveReloadEndpoint(t *testing.T) {
	srv := newTestServer(t, map[string]string{"index.mustache": "<body>hi</body>"}, func(cfg *config.Config) {
		cfg.Serve.Reload = true
	})

	if body := get(t, srv, "/").Body.String(); !strings.Contains(body, "/__livereload") {
		t.Errorf("page should carry the reload script: %s", body)
	}

	if body := get(t, srv, "/__livereload").Body.String(); body != `{"seq":0}` {
		t.Errorf("seq = %s, want 0", body)
	}
	srv.Reload()
	if body := get(t, srv, "/__livereload").Body.String(); body != `{"seq":1}` {
		t.Errorf("seq = %s, want 1", body)
	}
}
