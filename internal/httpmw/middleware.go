// Package httpmw holds the cross-cutting HTTP middleware wrapped
// around every route: CORS, response compression, and per-IP rate
// limiting.
package httpmw

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// Gzip wraps next with transparent response compression above a
// minimum response size.
func Gzip(next http.Handler) http.Handler {
	wrapper, _ := gzhttp.NewWrapper(
		gzhttp.MinSize(1024),
		gzhttp.CompressionLevel(6),
	)
	return wrapper(next)
}

// CORS allows any origin to call the API; this service has no
// cookie-based auth to protect.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
