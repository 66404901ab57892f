package handlers

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const uploadField = "file"

// filterFromSignals turns the client's control values into a filter state.
// Malformed values come back wrapped in services.ErrInvalidFilter.
func filterFromSignals(s templates.Signals) (models.FilterState, error) {
	start, err := time.Parse(models.DateLayout, strings.TrimSpace(s.StartDate))
	if err != nil {
		return models.FilterState{}, fmt.Errorf("%w: start date %q", services.ErrInvalidFilter, s.StartDate)
	}
	end, err := time.Parse(models.DateLayout, strings.TrimSpace(s.EndDate))
	if err != nil {
		return models.FilterState{}, fmt.Errorf("%w: end date %q", services.ErrInvalidFilter, s.EndDate)
	}

	kind := models.ChartKind(s.ChartKind)
	if kind == "" {
		kind = models.DefaultChartKind
	}

	return models.FilterState{
		DateStart:  start,
		DateEnd:    end,
		SalesMin:   s.SalesMin,
		SalesMax:   s.SalesMax,
		Categories: s.Categories,
		Regions:    s.Regions,
		ChartKind:  kind,
	}, nil
}

// readUpload pulls the single CSV file out of a multipart request. A request
// without a file yields an empty name and payload and no error.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return "", nil, errors.TooLarge(fmt.Sprintf("The file is larger than %d bytes", maxBytes))
		case stderrors.Is(err, http.ErrMissingFile):
			return "", nil, nil
		default:
			return "", nil, errors.BadRequestWrap(err, "Expected a multipart form with a file field")
		}
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.BadRequestWrap(err, "Could not read the uploaded file")
	}
	return header.Filename, raw, nil
}
