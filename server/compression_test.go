package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sambeau/mustachepp/config"
)

func htmlHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	})
}

func TestCompressionHandler(t *testing.T) {
	large := strings.Repeat("<p>Hello, World!</p>\n", 100)

	tests := []struct {
		name           string
		cfg            config.CompressionConfig
		body           string
		acceptEncoding string
		wantGzip       bool
	}{
		{"disabled", config.CompressionConfig{Enabled: false, Level: "default", MinSize: 1024}, large, "gzip", false},
		{"level none", config.CompressionConfig{Enabled: true, Level: "none", MinSize: 1024}, large, "gzip", false},
		{"large response", config.CompressionConfig{Enabled: true, Level: "default", MinSize: 1024}, large, "gzip", true},
		{"small response", config.CompressionConfig{Enabled: true, Level: "default", MinSize: 1024}, "Hello", "gzip", false},
		{"client without gzip", config.CompressionConfig{Enabled: true, Level: "default", MinSize: 1024}, large, "", false},
		{"fastest", config.CompressionConfig{Enabled: true, Level: "fastest", MinSize: 100}, large, "gzip", true},
		{"best", config.CompressionConfig{Enabled: true, Level: "best", MinSize: 100}, large, "gzip", true},
		{"unknown level falls back to default", config.CompressionConfig{Enabled: true, Level: "turbo", MinSize: 100}, large, "gzip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := newCompressionHandler(htmlHandler(tt.body), tt.cfg)

			req := httptest.NewRequest("GET", "/", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			gzipped := rec.Header().Get("Content-Encoding") == "gzip"
			if gzipped != tt.wantGzip {
				t.Fatalf("gzipped = %v, want %v", gzipped, tt.wantGzip)
			}

			body := rec.Body.String()
			if gzipped {
				reader, err := gzip.NewReader(rec.Body)
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				defer reader.Close()
				data, err := io.ReadAll(reader)
				if err != nil {
					t.Fatalf("Failed to decompress response: %v", err)
				}
				body = string(data)
			}
			if body != tt.body {
				t.Error("body does not match original")
			}
		})
	}
}
