package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// closingTags are tried in order to place the reload script.
var closingTags = []*regexp.Regexp{
	regexp.MustCompile(`(?i)</body>`),
	regexp.MustCompile(`(?i)</html>`),
}

// liveReloadScript polls the reload sequence and reloads the page when it
// moves.
const liveReloadScript = `<script>
(function() {
  let lastSeq = -1;
  async function poll() {
    try {
      const resp = await fetch('/__livereload');
      const data = await resp.json();
      if (lastSeq === -1) {
        lastSeq = data.seq;
      } else if (data.seq !== lastSeq) {
        location.reload();
        return;
      }
    } catch (e) {
      // server restarting
    }
    setTimeout(poll, 1000);
  }
  if (document.readyState === 'complete') {
    poll();
  } else {
    window.addEventListener('load', poll);
  }
})();
</script>`

// liveReloadHandler serves the live reload polling endpoint
type liveReloadHandler struct {
	server *Server
}

func newLiveReloadHandler(s *Server) *liveReloadHandler {
	return &liveReloadHandler{server: s}
}

func (h *liveReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	fmt.Fprintf(w, `{"seq":%d}`, h.server.ChangeSeq())
}

// injectLiveReload adds the reload script to HTML responses.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &liveReloadResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		lrw.flush()
	})
}

// liveReloadResponseWriter holds back HTML bodies until the handler is done
// so the script can be inserted. Other content passes straight through.
type liveReloadResponseWriter struct {
	http.ResponseWriter
	buffer      []byte
	statusCode  int
	wroteHeader bool
	isHTML      bool
	checked     bool
}

func (w *liveReloadResponseWriter) WriteHeader(code int) {
	w.statusCode = code
}

func (w *liveReloadResponseWriter) Write(b []byte) (int, error) {
	if !w.checked {
		w.checked = true
		w.isHTML = strings.Contains(w.Header().Get("Content-Type"), "text/html")
	}
	if w.isHTML {
		w.buffer = append(w.buffer, b...)
		return len(b), nil
	}
	w.writeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *liveReloadResponseWriter) writeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.statusCode != 0 {
		w.ResponseWriter.WriteHeader(w.statusCode)
	}
}

func (w *liveReloadResponseWriter) flush() {
	if !w.isHTML {
		// Nothing was written, pass the status through
		w.writeHeader()
		return
	}

	content := w.buffer
	at := len(content)
	for _, re := range closingTags {
		if loc := re.FindIndex(content); loc != nil {
			at = loc[0]
			break
		}
	}
	out := make([]byte, 0, len(content)+len(liveReloadScript))
	out = append(out, content[:at]...)
	out = append(out, liveReloadScript...)
	out = append(out, content[at:]...)

	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.writeHeader()
	w.ResponseWriter.Write(out)
}
