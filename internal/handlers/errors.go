package handlers

import (
	"context"
	stderrors "errors"
	"fmt"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/services"
)

var ingestCodes = map[ingest.Kind]errors.ErrorCode{
	ingest.KindDecode:        errors.CodeDecode,
	ingest.KindMissingColumn: errors.CodeMissingColumn,
	ingest.KindParse:         errors.CodeParse,
}

// appError maps pipeline errors onto API error codes.
func appError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var ingestErr *ingest.IngestError
	switch {
	case stderrors.As(err, &ingestErr):
		return errors.Wrap(err, ingestCodes[ingestErr.Kind], ingestErr.Message()).
			WithDetails(ingestErr.Error())
	case stderrors.Is(err, services.ErrInvalidFilter):
		return errors.ValidationWrap(err, "Invalid filter").WithDetails(err.Error())
	case stderrors.Is(err, services.ErrEmptyDataset):
		return errors.NoDataWrap(err, "No sales data is loaded")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.CodeServiceUnavail, "Processing took too long; try a smaller file")
	default:
		return errors.Wrap(err, errors.CodeInternal, "An unexpected error occurred")
	}
}

// uploadError is appError with a message aimed at the person uploading.
func uploadError(err error) *errors.AppError {
	if stderrors.Is(err, services.ErrEmptyDataset) {
		return errors.NoDataWrap(err, "The file has a header but no data rows; nothing was loaded.")
	}
	return appError(err)
}

func uploadSuccessMessage(filename string, rows int) string {
	return fmt.Sprintf("Loaded %s: %d rows.", filename, rows)
}
