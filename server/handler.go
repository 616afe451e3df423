package server

import (
	"errors"
	"fmt"
	"html"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/loader"
)

// previewHandler maps request paths onto template files under the root.
// "/about" renders about.<ext> or about/index.<ext>; other files are served
// as they are.
type previewHandler struct {
	server *Server
}

func (h *previewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := h.server.config
	root := cfg.Serve.Root
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			http.NotFound(w, r)
			return
		}
	}

	file, ok := findTemplate(root, rel, cfg.Extensions)
	if !ok {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			http.ServeFile(w, r, full)
			return
		}
		if rel == "" {
			h.serveIndex(w)
			return
		}
		http.NotFound(w, r)
		return
	}

	out, err := h.render(file)
	if err != nil {
		display, _ := filepath.Rel(root, file)
		h.server.logError("%s: %v", display, err)
		renderErrorPage(w, err, filepath.ToSlash(display))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprint(w, out)
}

// render reads the template, data and partials afresh and renders them.
func (h *previewHandler) render(file string) (string, error) {
	cfg := h.server.config
	text, err := loader.ReadTemplate(file)
	if err != nil {
		return "", err
	}
	view, err := loader.LoadData(cfg.Serve.Data)
	if err != nil {
		return "", err
	}
	partials, err := loader.LoadPartials(cfg.Partials, cfg.Extensions)
	if err != nil {
		return "", err
	}
	return h.server.engine.Render(text, view, partials)
}

// findTemplate returns the template file for a cleaned, root-relative path.
func findTemplate(root, rel string, exts []string) (string, bool) {
	base := filepath.Join(root, filepath.FromSlash(rel))

	var candidates []string
	if rel != "" && loader.HasExtension(rel, exts) {
		candidates = append(candidates, base)
	}
	for _, ext := range exts {
		ext = strings.TrimPrefix(ext, ".")
		if rel != "" {
			candidates = append(candidates, base+"."+ext)
		}
		candidates = append(candidates, filepath.Join(base, "index."+ext))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// serveIndex lists the templates under the root when it has no index page.
func (h *previewHandler) serveIndex(w http.ResponseWriter) {
	cfg := h.server.config
	paths, err := loader.Templates(cfg.Serve.Root, cfg.Extensions)
	if err != nil {
		renderErrorPage(w, err, "")
		return
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Templates</title>\n</head>\n<body>\n<h1>Templates</h1>\n<ul>\n")
	for _, p := range paths {
		rel, err := filepath.Rel(cfg.Serve.Root, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		link := strings.TrimSuffix(rel, path.Ext(rel))
		fmt.Fprintf(&sb, "<li><a href=\"/%s\">%s</a></li>\n", html.EscapeString(link), html.EscapeString(rel))
	}
	sb.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, sb.String())
}

// renderErrorPage writes a render failure as an HTML page.
func renderErrorPage(w http.ResponseWriter, err error, file string) {
	message := err.Error()
	var te *perrors.TemplateError
	if errors.As(err, &te) {
		if file != "" && te.File == "" {
			te = te.WithFile(file)
		}
		message = te.PrettyString()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>Error - mpp</title>\n")
	sb.WriteString(errorPageStyles)
	sb.WriteString("</head>\n<body>\n")
	if te != nil {
		fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(te.Code))
	} else {
		sb.WriteString("<h1>Error</h1>\n")
	}
	sb.WriteString("<pre class=\"error-message\">")
	sb.WriteString(html.EscapeString(message))
	sb.WriteString("</pre>\n</body>\n</html>\n")
	fmt.Fprint(w, sb.String())
}

const errorPageStyles = `<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { color: #b00020; font-size: 1.4rem; }
.error-message { background: #fff5f5; border-left: 4px solid #b00020; padding: 1rem; white-space: pre-wrap; }
</style>
`
