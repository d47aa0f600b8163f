package transport

import "net/http"

type Handler interface {
	runSync(w http.ResponseWriter, r *http.Request)
	run(w http.ResponseWriter, r *http.Request)
	status(w http.ResponseWriter, r *http.Request)
	download(w http.ResponseWriter, r *http.Request)
	health(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h Handler
}

func NewRouter(h Handler) *router {
	return &router{h: h}
}

// MountRoutes serves every endpoint both at the root and under
// /v2/{endpoint_id}, the layout hosted endpoint clients use.
func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	for _, prefix := range []string{"", "/v2/{endpoint_id}"} {
		mux.HandleFunc("POST "+prefix+"/runsync", r.h.runSync)
		mux.HandleFunc("POST "+prefix+"/run", r.h.run)
		mux.HandleFunc("GET "+prefix+"/status/{id}", r.h.status)
		mux.HandleFunc("GET "+prefix+"/download/{id}", r.h.download)
		mux.HandleFunc("GET "+prefix+"/health", r.h.health)
	}

	return mux
}
