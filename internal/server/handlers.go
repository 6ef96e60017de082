package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/menu-scout/internal/jobs"
	"github.com/sells-group/menu-scout/internal/model"
	"github.com/sells-group/menu-scout/internal/tabular"
)

type searchRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type searchResponse struct {
	URL         string  `json:"url"`
	DineoutOnly bool    `json:"dineout_only"`
	NotFound    bool    `json:"not_found"`
	Error       *string `json:"error"`
}

type extractRequest struct {
	URL string `json:"url" validate:"required"`
}

type extractResponse struct {
	PromoCodes   []string        `json:"promo_codes"`
	Items99      []string        `json:"items_99"`
	OfferItems   *model.OfferMap `json:"offer_items"`
	Rating       string          `json:"rating"`
	TotalRatings string          `json:"total_ratings"`
}

type uploadItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

type uploadResponse struct {
	JobID string       `json:"job_id"`
	Items []uploadItem `json:"items"`
}

// decode reads and validates a JSON body. It writes the error response and
// returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	res := s.resolver.Resolve(r.Context(), req.Name, req.Location)

	resp := searchResponse{URL: res.URL, DineoutOnly: res.DineoutOnly, NotFound: res.NotFound}
	if res.Error != "" {
		resp.Error = &res.Error
	}
	if resp.NotFound || resp.URL == "" {
		resp.NotFound = true
		if resp.Error == nil {
			msg := "Restaurant not found"
			resp.Error = &msg
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	facts := s.extractor.Extract(r.Context(), req.URL)
	if facts.Error != "" {
		writeError(w, http.StatusBadRequest, facts.Error)
		return
	}

	resp := extractResponse{
		PromoCodes:   facts.PromoCodes,
		Items99:      facts.NinetyNineItems,
		OfferItems:   facts.OfferItems,
		Rating:       facts.Rating,
		TotalRatings: facts.TotalRatings,
	}
	if resp.PromoCodes == nil {
		resp.PromoCodes = []string{}
	}
	if resp.Items99 == nil {
		resp.Items99 = []string{}
	}
	if resp.OfferItems == nil {
		resp.OfferItems = model.NewOfferMap()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	tbl, err := tabular.Parse(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entities, err := tabular.Entities(tbl)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.jobs.Submit(r.Context(), tbl.Columns, entities)
	if err != nil {
		zap.L().Error("server: submit job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	resp := uploadResponse{JobID: job.ID, Items: make([]uploadItem, len(job.Items))}
	for i, it := range job.Items {
		name := it.Entity.Name
		if name == "" {
			name = "Unknown"
		}
		resp.Items[i] = uploadItem{
			ID:       it.ID,
			Name:     name,
			Location: it.Entity.Location,
			Status:   model.ItemPending.Label(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.jobs.Status(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		zap.L().Error("server: job status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := tabular.FormatCSV
	if r.URL.Query().Get("format") == string(tabular.FormatXLSX) {
		format = tabular.FormatXLSX
	}

	tbl, err := s.jobs.Export(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if !errors.Is(err, jobs.ErrNotReady) && !errors.Is(err, jobs.ErrJobNotFound) {
			zap.L().Error("server: export job", zap.Error(err))
		}
		writeError(w, http.StatusBadRequest, "Job not ready or found")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+tabular.ExportName+"."+string(format))
	if err := tabular.Write(w, format, tbl); err != nil {
		zap.L().Error("server: write export", zap.Error(err))
	}
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	err := s.jobs.Discard(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		zap.L().Error("server: discard job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
