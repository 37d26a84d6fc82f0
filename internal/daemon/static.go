package daemon

import (
	"net/http"
	"path"
	"strings"

	"hlsforge/internal/config"
)

var hlsContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
}

// staticHandler serves published HLS trees under config.PublicPrefix.
// Directory listings and dot-prefixed entries (in-progress work dirs) are
// never exposed.
type staticHandler struct {
	files http.Handler
}

func newStaticHandler(outputDir string) http.Handler {
	return &staticHandler{
		files: http.StripPrefix(strings.TrimSuffix(config.PublicPrefix, "/"), http.FileServer(http.Dir(outputDir))),
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean(r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") || !strings.HasPrefix(clean, config.PublicPrefix) {
		http.NotFound(w, r)
		return
	}
	for _, segment := range strings.Split(strings.TrimPrefix(clean, config.PublicPrefix), "/") {
		if segment == "" || strings.HasPrefix(segment, ".") {
			http.NotFound(w, r)
			return
		}
	}
	if ct, ok := hlsContentTypes[strings.ToLower(path.Ext(clean))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	h.files.ServeHTTP(w, r)
}
