package httpserver

import (
	"net/http"

	appanalysis "github.com/bryanwahyu/neurolint/internal/application/analysis"
	"github.com/bryanwahyu/neurolint/internal/middleware"
)

// POST /v1/analyze
// Body: {"code": "...", "language": "go", "provider": "ollama"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	var body struct {
		Code     string `json:"code"`
		Language string `json:"language"`
		Provider string `json:"provider"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}

	res, err := r.Analysis.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		UserID:   u.ID,
		Code:     body.Code,
		Language: body.Language,
		Provider: body.Provider,
	})
	r.Metrics.ObserveAnalysis(res != nil && res.Cached, err)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/analyses?page=&page_size= (limit is accepted as an alias of page_size)
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	page, err := middleware.QueryInt(q.Get("page"), 1)
	if err != nil {
		return err
	}
	sizeRaw := q.Get("page_size")
	if sizeRaw == "" {
		sizeRaw = q.Get("limit")
	}
	size, err := middleware.QueryInt(sizeRaw, 0)
	if err != nil {
		return err
	}

	list, err := r.Analysis.List(req.Context(), u.ID, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	days, err := middleware.QueryInt(req.URL.Query().Get("days"), 0)
	if err != nil {
		return err
	}
	summary, err := r.Analysis.Summary(req.Context(), u.ID, days)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// GET /v1/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	h, err := r.Analysis.Get(req.Context(), u.ID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, h)
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDeleteAnalysis(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	if err := r.Analysis.Delete(req.Context(), u.ID, id); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /v1/analyses/{id}/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	u, err := currentUser(req)
	if err != nil {
		return err
	}
	id, err := pathID(req)
	if err != nil {
		return err
	}
	link, err := r.Analysis.ReportURL(req.Context(), u.ID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"url": link})
}
