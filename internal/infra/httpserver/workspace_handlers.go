package httpserver

import (
	"net/http"

	appws "github.com/bryanwahyu/neurolint/internal/application/workspaces"
	"github.com/bryanwahyu/neurolint/internal/middleware"
)

type workspaceBody struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (b workspaceBody) input() appws.Input {
	return appws.Input{Name: middleware.SanitizeString(b.Name), Code: b.Code, Language: b.Language}
}

// GET /v1/workspaces
func (r *Router) handleListWorkspaces(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	list, err := r.Workspaces.List(req.Context(), u.ID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/workspaces
func (r *Router) handleCreateWorkspace(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	var body workspaceBody
	if err := decode(w, req, &body); err != nil {
		return err
	}
	ws, err := r.Workspaces.Create(req.Context(), u.ID, body.input())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, ws)
}

// GET /v1/workspaces/{id}
func (r *Router) handleGetWorkspace(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	ws, err := r.Workspaces.Get(req.Context(), u.ID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ws)
}

// PUT /v1/workspaces/{id}
func (r *Router) handleUpdateWorkspace(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	var body workspaceBody
	if err := decode(w, req, &body); err != nil {
		return err
	}
	ws, err := r.Workspaces.Update(req.Context(), u.ID, id, body.input())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ws)
}

// DELETE /v1/workspaces/{id}
func (r *Router) handleDeleteWorkspace(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	if err := r.Workspaces.Delete(req.Context(), u.ID, id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
