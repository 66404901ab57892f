package handlers

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	maxUpload int64
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, maxUpload int64, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// HandleControls patches the control panel for the session's active
// dataset, or the hidden placeholder when there is none.
func (h *SSEHandlers) HandleControls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	update := h.dashboard.Controls(ctx, observability.GetSessionID(ctx))

	sse := datastar.NewSSE(w, r)
	h.patch(r, sse, templates.Controls(update))
}

// HandleUpload ingests one CSV file and patches the status line, the
// controls and, on success, the chart signals.
func (h *SSEHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	filename, raw, err := readUpload(w, r, h.maxUpload)
	if err != nil {
		var appErr *errors.AppError
		message := "The upload could not be read"
		if stderrors.As(err, &appErr) {
			message = appErr.Message
		}
		logger.Warn("upload unreadable", "error", err)
		sse := datastar.NewSSE(w, r)
		h.patch(r, sse, templates.UploadStatus(templates.StatusError, message))
		return
	}

	outcome := h.dashboard.Upload(ctx, observability.GetSessionID(ctx), filename, raw)
	sse := datastar.NewSSE(w, r)

	switch outcome.Status {
	case services.UploadNoChange:
		return
	case services.UploadRejected:
		h.patch(r, sse, templates.UploadStatus(templates.StatusError, uploadError(outcome.Err).Message))
		h.patch(r, sse, templates.Controls(outcome.Controls))
	case services.UploadAccepted:
		h.patch(r, sse, templates.UploadStatus(templates.StatusSuccess,
			uploadSuccessMessage(outcome.Filename, outcome.Controls.Rows)))
		h.patch(r, sse, templates.Controls(outcome.Controls))
		h.patchCharts(r, sse, outcome.Charts)
	}
}

// HandleCharts reads the control signals, stores them as the session's
// filter and patches the three chart signals.
func (h *SSEHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, h.logger)

	var signals templates.Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Could not read control signals"), observability.GetRequestID(ctx))
		return
	}

	filter, err := filterFromSignals(signals)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(ctx))
		return
	}

	charts, _, err := h.dashboard.Render(ctx, observability.GetSessionID(ctx), &filter)
	switch {
	case stderrors.Is(err, services.ErrEmptyDataset):
		logger.Debug("charts requested without a dataset")
		charts = services.Project(models.FilteredView{}, models.DefaultChartKind)
	case err != nil:
		errors.WriteError(w, h.logger, appError(err), observability.GetRequestID(ctx))
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchCharts(r, sse, charts)
}

func (h *SSEHandlers) patch(r *http.Request, sse *datastar.ServerSentEventGenerator, c templ.Component) {
	html, err := templates.Render(r.Context(), c)
	if err != nil {
		observability.FromContext(r.Context(), h.logger).Error("render fragment", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		observability.FromContext(r.Context(), h.logger).Debug("patch elements", "error", err)
	}
}

func (h *SSEHandlers) patchCharts(r *http.Request, sse *datastar.ServerSentEventGenerator, charts models.Charts) {
	payload, err := json.Marshal(charts)
	if err != nil {
		observability.FromContext(r.Context(), h.logger).Error("marshal charts", "error", err)
		return
	}
	if err := sse.PatchSignals(payload); err != nil {
		observability.FromContext(r.Context(), h.logger).Debug("patch signals", "error", err)
	}
}
