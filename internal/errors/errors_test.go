package errors

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := map[ErrorCode]int{
		CodeDecode:         http.StatusBadRequest,
		CodeMissingColumn:  http.StatusUnprocessableEntity,
		CodeParse:          http.StatusUnprocessableEntity,
		CodeNoData:         http.StatusConflict,
		CodeValidation:     http.StatusBadRequest,
		CodeTooLarge:       http.StatusRequestEntityTooLarge,
		CodeRateLimit:      http.StatusTooManyRequests,
		CodeServiceUnavail: http.StatusServiceUnavailable,
		CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := New(code, "x").StatusCode; got != want {
			t.Errorf("%s: expected status %d, got %d", code, want, got)
		}
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cause := stderrors.New("line 4")

	w := httptest.NewRecorder()
	WriteError(w, logger, Wrap(cause, CodeParse, "bad row").WithDetails("column date"), "req-1")

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			Details   string `json:"details"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error.Code != "PARSE_ERROR" || resp.Error.Details != "column date" || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestWriteError_PlainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, stderrors.New("boom"), "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := Wrap(cause, CodeInternal, "wrapped")
	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
}

func TestNoDataWrap(t *testing.T) {
	cause := stderrors.New("dataset is empty")
	err := NoDataWrap(cause, "No sales data is loaded")

	if err.Code != CodeNoData || err.StatusCode != http.StatusConflict {
		t.Errorf("unexpected error %+v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
}
