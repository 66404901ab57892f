package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxFilterBody = 64 << 10

type APIHandlers struct {
	dashboard *services.Dashboard
	maxUpload int64
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, maxUpload int64, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

type rangesResponse struct {
	DateMin    string            `json:"dateMin"`
	DateMax    string            `json:"dateMax"`
	Categories []string          `json:"categories"`
	Regions    []string          `json:"regions"`
	SalesMin   decimal.Decimal   `json:"salesMin"`
	SalesMax   decimal.Decimal   `json:"salesMax"`
	SalesStep  int               `json:"salesStep"`
	SalesMarks []decimal.Decimal `json:"salesMarks"`
}

type controlsResponse struct {
	Dataset string            `json:"dataset"`
	Rows    int               `json:"rows"`
	Ranges  rangesResponse    `json:"ranges"`
	Filter  templates.Signals `json:"filter"`
}

type chartsResponse struct {
	Charts models.Charts     `json:"charts"`
	Filter templates.Signals `json:"filter"`
}

type uploadResponse struct {
	Filename string            `json:"filename"`
	Status   string            `json:"status"`
	Controls *controlsResponse `json:"controls,omitempty"`
	Charts   *models.Charts    `json:"charts,omitempty"`
}

func newControlsResponse(u services.ControlsUpdate) *controlsResponse {
	if !u.Visible {
		return nil
	}
	r := u.Ranges
	return &controlsResponse{
		Dataset: u.Dataset,
		Rows:    u.Rows,
		Ranges: rangesResponse{
			DateMin:    r.DateMin.Format(models.DateLayout),
			DateMax:    r.DateMax.Format(models.DateLayout),
			Categories: r.Categories,
			Regions:    r.Regions,
			SalesMin:   r.SalesMin,
			SalesMax:   r.SalesMax,
			SalesStep:  models.SalesStep,
			SalesMarks: r.SalesMarks(),
		},
		Filter: templates.SignalsFromFilter(u.Filter),
	}
}

func (h *APIHandlers) HandleControls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	update := h.dashboard.Controls(ctx, observability.GetSessionID(ctx))
	if !update.Visible {
		errors.WriteError(w, h.logger, appError(services.ErrEmptyDataset), observability.GetRequestID(ctx))
		return
	}

	errors.WriteSuccessWithHeaders(w, newControlsResponse(update), map[string]string{
		"Cache-Control": "no-store",
	})
}

func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := observability.GetRequestID(ctx)

	var signals templates.Signals
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFilterBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Request body must be a JSON filter"), requestID)
		return
	}

	filter, err := filterFromSignals(signals)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID)
		return
	}

	charts, applied, err := h.dashboard.Render(ctx, observability.GetSessionID(ctx), &filter)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, chartsResponse{
		Charts: charts,
		Filter: templates.SignalsFromFilter(applied),
	}, map[string]string{"Cache-Control": "no-store"})
}

func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := observability.GetRequestID(ctx)

	filename, raw, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	outcome := h.dashboard.Upload(ctx, observability.GetSessionID(ctx), filename, raw)
	switch outcome.Status {
	case services.UploadNoChange:
		errors.WriteError(w, h.logger, errors.BadRequest("No file was uploaded"), requestID)
	case services.UploadRejected:
		errors.WriteError(w, h.logger, uploadError(outcome.Err), requestID)
	default:
		charts := outcome.Charts
		errors.WriteSuccess(w, uploadResponse{
			Filename: outcome.Filename,
			Status:   outcome.Status.String(),
			Controls: newControlsResponse(outcome.Controls),
			Charts:   &charts,
		})
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.dashboard.Stats())
}
