package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/session"
)

var ErrInvalidFilter = errors.New("invalid filter")

// ControlsUpdate is what the control panel should show for a session. When
// Visible is false there is no active dataset and Ranges and Filter are zero.
type ControlsUpdate struct {
	Visible bool
	Ranges  models.ControlRanges
	Filter  models.FilterState
	Dataset string
	Rows    int
}

type UploadStatus int

const (
	// UploadNoChange means the event carried no file and nothing was done.
	UploadNoChange UploadStatus = iota
	UploadAccepted
	UploadRejected
)

func (s UploadStatus) String() string {
	switch s {
	case UploadAccepted:
		return "accepted"
	case UploadRejected:
		return "rejected"
	default:
		return "no_change"
	}
}

// UploadOutcome reports one upload event. A rejected upload leaves the
// session exactly as it was; Controls then describes that prior state.
type UploadOutcome struct {
	Status   UploadStatus
	Err      error
	Filename string
	Controls ControlsUpdate
	Charts   models.Charts
}

type Stats struct {
	Sessions        int        `json:"sessions"`
	Isolated        bool       `json:"isolated"`
	UploadsAccepted int64      `json:"uploads_accepted"`
	UploadsRejected int64      `json:"uploads_rejected"`
	LastUpload      *time.Time `json:"last_upload,omitempty"`
}

type Options struct {
	IngestTimeout time.Duration
}

// Dashboard runs the recomputation passes for every session: ingestion,
// control derivation, filtering and projection.
type Dashboard struct {
	sessions *session.Registry
	opts     Options
	logger   *slog.Logger

	accepted atomic.Int64
	rejected atomic.Int64

	mu         sync.RWMutex
	lastUpload time.Time
}

func NewDashboard(sessions *session.Registry, opts Options, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		sessions: sessions,
		opts:     opts,
		logger:   logger,
	}
}

// Controls returns the control panel state for the session, deriving it
// first if the active dataset changed since the last pass.
func (d *Dashboard) Controls(ctx context.Context, sessionID string) ControlsUpdate {
	s := d.sessions.Get(sessionID)
	s.Lock()
	defer s.Unlock()

	d.sync(ctx, s)
	return controlsOf(s)
}

// Upload ingests raw as the session's new dataset. Ingestion and derivation
// happen before the session is touched, so any failure keeps the prior
// dataset and controls.
func (d *Dashboard) Upload(ctx context.Context, sessionID, filename string, raw []byte) UploadOutcome {
	if filename == "" && len(raw) == 0 {
		return UploadOutcome{Status: UploadNoChange}
	}

	logger := observability.FromContext(ctx, d.logger)
	ctx, span := observability.StartSpan(ctx, "dashboard.upload")
	defer span.End(logger)
	span.SetTag("filename", filename)
	span.SetTag("bytes", strconv.Itoa(len(raw)))

	ds, ranges, err := d.prepare(ctx, filename, raw)

	s := d.sessions.Get(sessionID)
	s.Lock()
	defer s.Unlock()

	if err != nil {
		span.SetError(err)
		d.rejected.Add(1)
		logger.Warn("upload rejected", "filename", filename, "error", err)
		d.sync(ctx, s)
		return UploadOutcome{Status: UploadRejected, Err: err, Filename: filename, Controls: controlsOf(s)}
	}

	s.Store.Replace(ds)
	s.Ranges = &ranges
	s.Filter = DefaultFilterState(ranges, s.Filter.ChartKind)
	s.Synced = s.Store.Version()

	d.accepted.Add(1)
	d.mu.Lock()
	d.lastUpload = time.Now()
	d.mu.Unlock()

	span.SetTag("rows", strconv.Itoa(ds.Len()))
	logger.Info("upload accepted",
		"filename", filename,
		"rows", ds.Len(),
		"categories", len(ranges.Categories),
		"regions", len(ranges.Regions),
	)

	return UploadOutcome{
		Status:   UploadAccepted,
		Filename: filename,
		Controls: controlsOf(s),
		Charts:   Project(Filter(ds, s.Filter), s.Filter.ChartKind),
	}
}

func (d *Dashboard) prepare(ctx context.Context, filename string, raw []byte) (*models.Dataset, models.ControlRanges, error) {
	if d.opts.IngestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.IngestTimeout)
		defer cancel()
	}

	ds, err := ingest.Ingest(ctx, filename, raw)
	if err != nil {
		return nil, models.ControlRanges{}, err
	}
	ranges, err := Derive(ds)
	if err != nil {
		return nil, models.ControlRanges{}, err
	}
	return ds, ranges, nil
}

// Render filters the session's dataset and projects the charts. A nil
// filter reuses the session's last filter; otherwise f is validated and
// becomes the session's filter.
func (d *Dashboard) Render(ctx context.Context, sessionID string, f *models.FilterState) (models.Charts, models.FilterState, error) {
	logger := observability.FromContext(ctx, d.logger)
	ctx, span := observability.StartSpan(ctx, "dashboard.render")
	defer span.End(logger)

	if f != nil {
		if err := f.Validate(); err != nil {
			span.SetError(err)
			return models.Charts{}, models.FilterState{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
	}

	s := d.sessions.Get(sessionID)
	s.Lock()
	defer s.Unlock()

	d.sync(ctx, s)
	ds, ok := s.Store.Get()
	if !ok || s.Ranges == nil {
		span.SetError(ErrEmptyDataset)
		return models.Charts{}, models.FilterState{}, ErrEmptyDataset
	}

	if f != nil {
		s.Filter = f.Clone()
	}

	view := Filter(ds, s.Filter)
	span.SetTag("kind", string(s.Filter.ChartKind))
	span.SetTag("matched", strconv.Itoa(view.Len()))
	span.SetTag("rows", strconv.Itoa(ds.Len()))

	return Project(view, s.Filter.ChartKind), s.Filter.Clone(), nil
}

func (d *Dashboard) Stats() Stats {
	st := Stats{
		Sessions:        d.sessions.Len(),
		Isolated:        d.sessions.Isolated(),
		UploadsAccepted: d.accepted.Load(),
		UploadsRejected: d.rejected.Load(),
	}
	d.mu.RLock()
	if !d.lastUpload.IsZero() {
		last := d.lastUpload
		st.LastUpload = &last
	}
	d.mu.RUnlock()
	return st
}

// sync re-derives the session's ranges when its store moved on. Callers
// hold the session lock.
func (d *Dashboard) sync(ctx context.Context, s *session.Session) {
	version := s.Store.Version()
	if s.Ranges != nil && s.Synced == version {
		return
	}
	s.Synced = version

	ds, ok := s.Store.Get()
	if !ok {
		s.Ranges = nil
		return
	}
	ranges, err := Derive(ds)
	if err != nil {
		observability.FromContext(ctx, d.logger).Warn("active dataset has no records", "dataset", ds.Name())
		s.Ranges = nil
		return
	}
	s.Ranges = &ranges
	s.Filter = DefaultFilterState(ranges, s.Filter.ChartKind)
}

func controlsOf(s *session.Session) ControlsUpdate {
	if s.Ranges == nil {
		return ControlsUpdate{}
	}
	ds, _ := s.Store.Get()
	return ControlsUpdate{
		Visible: true,
		Ranges:  *s.Ranges,
		Filter:  s.Filter.Clone(),
		Dataset: ds.Name(),
		Rows:    ds.Len(),
	}
}
