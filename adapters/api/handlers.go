package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"scifig/adapters/excel"
	"scifig/adapters/memory"
	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/engine"
	"scifig/internal/errors"
	"scifig/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type handler struct {
	deps         Dependencies
	batchWorkers int
}

func newHandler(deps Dependencies, batchWorkers int) *handler {
	if deps.Reader == nil {
		deps.Reader = excel.NewDataReader(zerolog.Nop())
	}
	if deps.Repository == nil {
		deps.Repository = memory.NewAnalysisRepository(memory.DefaultCapacity)
	}
	return &handler{deps: deps, batchWorkers: batchWorkers}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// BatchRequest is the body of POST /api/v1/analyses/batch
type BatchRequest struct {
	Requests    []engine.Request `json:"requests"`
	Concurrency int              `json:"concurrency,omitempty"`
}

// RecommendationResponse is the body of POST /api/v1/recommendations
type RecommendationResponse struct {
	DataProfile    analysis.DataProfile    `json:"data_profile"`
	Recommendation analysis.Recommendation `json:"recommendation"`
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateAnalysis runs the full pipeline. A failed analysis is still a
// stored outcome and is returned with 422.
func (h *handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outcome := h.deps.Engine.Run(req)
	h.save(r, outcome)

	status := http.StatusCreated
	if !outcome.Completed() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, outcome)
}

func (h *handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, r, errors.InvalidInput("batch must contain at least one request"))
		return
	}

	concurrency := body.Concurrency
	if concurrency <= 0 || (h.batchWorkers > 0 && concurrency > h.batchWorkers) {
		concurrency = h.batchWorkers
	}

	outcomes, err := h.deps.Engine.RunBatch(r.Context(), body.Requests, concurrency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, o := range outcomes {
		h.save(r, o)
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (h *handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := h.deps.Repository.ListAnalyses(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// GetReport renders a stored outcome as HTML, or as Markdown with
// ?format=markdown
func (h *handler) GetReport(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.Markdown(*outcome)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.HTML(*outcome))
}

func (h *handler) Recommend(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, rec, err := h.deps.Engine.Recommend(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendationResponse{DataProfile: profile, Recommendation: rec})
}

func (h *handler) CheckAssumptions(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	checks, err := h.deps.Engine.CheckAssumptions(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (h *handler) load(r *http.Request) (*analysis.AnalysisOutcome, error) {
	id, err := core.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	return h.deps.Repository.GetAnalysis(r.Context(), id)
}

// save persists an outcome; storage failures are logged, not returned, so
// the caller still receives the computed result
func (h *handler) save(r *http.Request, outcome analysis.AnalysisOutcome) {
	if err := h.deps.Repository.SaveAnalysis(r.Context(), outcome); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("analysis_id", outcome.ID.String()).Msg("failed to store analysis")
	}
}

// decodeRequest accepts either a JSON engine request or a multipart upload
// with a "file" part plus form fields naming the columns
func (h *handler) decodeRequest(r *http.Request) (engine.Request, error) {
	var req engine.Request
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := decodeJSON(r, &req)
		return req, err
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return req, errors.InvalidInput(fmt.Sprintf("invalid multipart form: %v", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return req, errors.InvalidInput("multipart request requires a file part")
	}
	defer file.Close()

	table, err := h.deps.Reader.Read(file, excel.FormatFromName(header.Filename))
	if err != nil {
		return req, err
	}

	req.Rows = table.Rows
	req.Outcome = r.FormValue("outcome_variable")
	req.Group = r.FormValue("group_variable")
	req.Time = r.FormValue("time_variable")
	req.Event = r.FormValue("event_variable")
	req.Test = r.FormValue("test")
	return req, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxUploadBytes))
	if err := dec.Decode(v); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput, errors.CodeUnsupportedTest:
		return http.StatusBadRequest
	case errors.CodeDataError, errors.CodeComputation:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
