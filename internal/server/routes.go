package server

import (
	"net/http"
)

// NewMux wires the service endpoints:
//
//	POST /recolor          recolor an uploaded image
//	GET  /results/<key>.png cached result (only when a cache is configured)
//	GET  /status           JSON counters
//	GET  /healthz          liveness
func NewMux(svc *RecolorService, results *ResultsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", withCORS(svc.StatusHandler()))
	mux.Handle("/recolor", withCORS(svc.Handler()))
	if results != nil {
		mux.Handle("/results/", withCORS(results.Handler()))
	}
	return mux
}

// withCORS lets browser pages post canvas exports to the service.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Hueswap-Matched, X-Hueswap-Cache, X-Hueswap-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
