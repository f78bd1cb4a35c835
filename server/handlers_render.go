package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chrisuehlinger/folio/paged"
	"github.com/chrisuehlinger/folio/pipeline"
	"github.com/chrisuehlinger/folio/render"
)

// renderRequest is the body of a render request. Exactly one of HTML and
// Markdown is set.
type renderRequest struct {
	HTML     string   `json:"html"`
	Markdown string   `json:"markdown"`
	CSS      []string `json:"css"`
	Script   string   `json:"script"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Margin   float64  `json:"margin"`
}

type renderResponse struct {
	Pages  int                `json:"pages"`
	Report []paged.PageReport `json:"report"`
}

func (s *Server) decodeJob(w http.ResponseWriter, r *http.Request) (pipeline.Job, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return pipeline.Job{}, false
		}
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return pipeline.Job{}, false
	}

	job := pipeline.Job{
		Stylesheets: req.CSS,
		Options: paged.Options{
			Width:    firstPositive(req.Width, s.cfg.PageWidth),
			Height:   firstPositive(req.Height, s.cfg.PageHeight),
			Margin:   firstPositive(req.Margin, s.cfg.PageMargin),
			MaxPages: s.cfg.MaxPages,
		},
	}
	switch {
	case req.HTML != "" && req.Markdown != "":
		jsonError(w, "set only one of html and markdown", http.StatusBadRequest)
		return pipeline.Job{}, false
	case req.HTML != "":
		job.Source, job.Format = []byte(req.HTML), pipeline.FormatHTML
	case req.Markdown != "":
		job.Source, job.Format = []byte(req.Markdown), pipeline.FormatMarkdown
	default:
		jsonError(w, "html or markdown is required", http.StatusBadRequest)
		return pipeline.Job{}, false
	}
	if req.Script != "" {
		if !s.cfg.AllowScripts {
			jsonError(w, "scripts are disabled on this server", http.StatusForbidden)
			return pipeline.Job{}, false
		}
		job.Scripts = []pipeline.Script{{Name: "request.js", Code: req.Script}}
	}
	return job, true
}

func firstPositive(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	job, ok := s.decodeJob(w, r)
	if !ok {
		return nil, false
	}
	log := s.log.With("request_id", middleware.GetReqID(r.Context()))
	res, err := pipeline.Run(r.Context(), job, log)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, paged.ErrTooManyPages):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		log.Error("render failed", "error", err, "status", status)
		jsonError(w, err.Error(), status)
		return nil, false
	}
	return res, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(renderResponse{
		Pages:  len(res.Book.Pages),
		Report: res.Book.Report(),
	})
}

func (s *Server) handleRenderPNG(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || n < 1 {
		jsonError(w, "page must be a positive number", http.StatusBadRequest)
		return
	}
	scale := 1.0
	if v := r.URL.Query().Get("scale"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 4 {
			scale = f
		}
	}
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	if n > len(res.Book.Pages) {
		jsonError(w, fmt.Sprintf("page %d out of range (book has %d pages)", n, len(res.Book.Pages)), http.StatusNotFound)
		return
	}
	canvas := render.PaintPage(res.Engine, res.Book.Pages[n-1], scale)
	w.Header().Set("Content-Type", "image/png")
	if err := canvas.WritePNG(w); err != nil {
		s.log.Error("png encode failed", "error", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
