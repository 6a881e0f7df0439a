package httpserver

import (
	"net/http"

	"github.com/bryanwahyu/neurolint/internal/domain/settings"
)

// GET /v1/settings
func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	us, err := r.Settings.Get(req.Context(), u.ID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, us.Masked())
}

// PUT /v1/settings
func (r *Router) handlePutSettings(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	var body settings.UserSettings
	if err := decode(w, req, &body); err != nil {
		return err
	}
	us, err := r.Settings.Put(req.Context(), u.ID, body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, us.Masked())
}
