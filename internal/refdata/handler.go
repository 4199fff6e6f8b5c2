package refdata

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"skdm/pkg/platform/httputil"
)

// RegisterRoutes mounts the reference-data lookup endpoint. The data is
// static and tenant-independent, but the route still sits behind auth.
func RegisterRoutes(r chi.Router) {
	r.Get("/refdata/{set}", func(w http.ResponseWriter, req *http.Request) {
		items, err := Lookup(chi.URLParam(req, "set"), req.URL.Query().Get("category"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, items)
	})
}
