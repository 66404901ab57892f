package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/session"
)

const abCSV = `date,category,sales_amount,region
2025-01-01,A,100,North
2025-01-02,A,200,South
2025-01-01,B,300,North
`

func newTestDashboard(t *testing.T, isolated bool, initial func() *models.Dataset) *Dashboard {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := session.NewRegistry(session.Config{Isolated: isolated, TTL: time.Hour, MaxSize: 10}, initial, logger)
	return NewDashboard(reg, Options{IngestTimeout: 5 * time.Second}, logger)
}

func TestDashboard_ControlsHiddenWithoutData(t *testing.T) {
	d := newTestDashboard(t, true, nil)

	update := d.Controls(context.Background(), "s1")
	assert.False(t, update.Visible)

	_, _, err := d.Render(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDashboard_SyntheticSessionStartsVisible(t *testing.T) {
	d := newTestDashboard(t, true, func() *models.Dataset { return dataset.Synthetic(1) })

	update := d.Controls(context.Background(), "s1")
	require.True(t, update.Visible)
	assert.Equal(t, "synthetic", update.Dataset)
	assert.Equal(t, 768, update.Rows)
	assert.Equal(t, dataset.SyntheticCategories, update.Ranges.Categories)
	assert.Equal(t, models.ChartBar, update.Filter.ChartKind)

	charts, f, err := d.Render(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.False(t, charts.Empty())
	assert.Equal(t, update.Filter, f)
}

func TestDashboard_UploadAccepted(t *testing.T) {
	d := newTestDashboard(t, true, nil)
	ctx := context.Background()

	out := d.Upload(ctx, "s1", "ab.csv", []byte(abCSV))
	require.Equal(t, UploadAccepted, out.Status, out.Err)
	assert.NoError(t, out.Err)
	assert.True(t, out.Controls.Visible)
	assert.Equal(t, 3, out.Controls.Rows)
	assert.Equal(t, []string{"A", "B"}, out.Controls.Ranges.Categories)
	assert.Equal(t, map[string]float64{"A": 300, "B": 300}, pieValues(out.Charts))

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.UploadsAccepted)
	assert.NotNil(t, stats.LastUpload)
}

func TestDashboard_UploadKeepsChartKind(t *testing.T) {
	d := newTestDashboard(t, true, func() *models.Dataset { return dataset.Synthetic(1) })
	ctx := context.Background()

	f := d.Controls(ctx, "s1").Filter
	f.ChartKind = models.ChartScatter
	_, _, err := d.Render(ctx, "s1", &f)
	require.NoError(t, err)

	out := d.Upload(ctx, "s1", "ab.csv", []byte(abCSV))
	require.Equal(t, UploadAccepted, out.Status)
	assert.Equal(t, models.ChartScatter, out.Controls.Filter.ChartKind)
	assert.Equal(t, day(1), out.Controls.Filter.DateStart)
	assert.Equal(t, "scatter", out.Charts.Main.Kind)
}

func TestDashboard_RejectedUploadKeepsPriorDataset(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  error
	}{
		{
			name:    "missing region column",
			payload: "date,category,sales_amount\n2025-01-01,A,1\n",
			target:  ingest.ErrMissingColumn,
		},
		{
			name: "one unparseable date",
			payload: "date,category,sales_amount,region\n" +
				"2025-02-01,C,1,East\n" +
				"not-a-date,C,2,East\n" +
				"2025-02-03,C,3,East\n",
			target: ingest.ErrParse,
		},
		{
			name:    "header only",
			payload: "date,category,sales_amount,region\n",
			target:  ErrEmptyDataset,
		},
		{
			name:    "not utf-8",
			payload: "date,category\xff,sales_amount,region\n",
			target:  ingest.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDashboard(t, true, nil)
			ctx := context.Background()

			require.Equal(t, UploadAccepted, d.Upload(ctx, "s1", "ab.csv", []byte(abCSV)).Status)

			out := d.Upload(ctx, "s1", "bad.csv", []byte(tt.payload))
			assert.Equal(t, UploadRejected, out.Status)
			assert.ErrorIs(t, out.Err, tt.target)
			assert.True(t, out.Controls.Visible)
			assert.Equal(t, "ab.csv", out.Controls.Dataset)
			assert.Equal(t, 3, out.Controls.Rows)

			charts, _, err := d.Render(ctx, "s1", nil)
			require.NoError(t, err)
			assert.Equal(t, map[string]float64{"A": 300, "B": 300}, pieValues(charts))
			assert.Equal(t, int64(1), d.Stats().UploadsRejected)
		})
	}
}

func TestDashboard_RejectedFirstUploadKeepsControlsHidden(t *testing.T) {
	d := newTestDashboard(t, true, nil)

	out := d.Upload(context.Background(), "s1", "bad.csv", []byte("date,category\n"))
	assert.Equal(t, UploadRejected, out.Status)
	assert.False(t, out.Controls.Visible)
	assert.Nil(t, d.Stats().LastUpload)
}

func TestDashboard_UploadWithoutFileIsNoChange(t *testing.T) {
	d := newTestDashboard(t, true, nil)

	out := d.Upload(context.Background(), "s1", "", nil)
	assert.Equal(t, UploadNoChange, out.Status)
	assert.Equal(t, "no_change", out.Status.String())
	assert.Zero(t, d.Stats().UploadsRejected)
}

func TestDashboard_RenderValidatesAndStoresFilter(t *testing.T) {
	d := newTestDashboard(t, true, nil)
	ctx := context.Background()
	require.Equal(t, UploadAccepted, d.Upload(ctx, "s1", "ab.csv", []byte(abCSV)).Status)

	bad := d.Controls(ctx, "s1").Filter
	bad.SalesMin, bad.SalesMax = decimal.NewFromInt(10), decimal.NewFromInt(1)
	_, _, err := d.Render(ctx, "s1", &bad)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	f := d.Controls(ctx, "s1").Filter
	f.SalesMin, f.SalesMax = decimal.NewFromInt(250), decimal.NewFromInt(400)
	charts, _, err := d.Render(ctx, "s1", &f)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"B": 300}, pieValues(charts))

	again, stored, err := d.Render(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, charts, again)
	assert.True(t, stored.SalesMin.Equal(decimal.NewFromInt(250)))

	f.Regions = []string{"Atlantis"}
	empty, _, err := d.Render(ctx, "s1", &f)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestDashboard_SessionIsolation(t *testing.T) {
	ctx := context.Background()

	isolated := newTestDashboard(t, true, nil)
	require.Equal(t, UploadAccepted, isolated.Upload(ctx, "s1", "ab.csv", []byte(abCSV)).Status)
	assert.True(t, isolated.Controls(ctx, "s1").Visible)
	assert.False(t, isolated.Controls(ctx, "s2").Visible)

	shared := newTestDashboard(t, false, nil)
	require.Equal(t, UploadAccepted, shared.Upload(ctx, "s1", "ab.csv", []byte(abCSV)).Status)
	assert.True(t, shared.Controls(ctx, "s2").Visible)
	assert.Equal(t, 1, shared.Stats().Sessions)
}

func TestDashboard_ConcurrentSessions(t *testing.T) {
	d := newTestDashboard(t, true, func() *models.Dataset { return dataset.Synthetic(5) })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if j%3 == 0 {
					d.Upload(ctx, id, "ab.csv", []byte(abCSV))
				}
				_, _, err := d.Render(ctx, id, nil)
				assert.NoError(t, err)
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	assert.Equal(t, int64(8*4), d.Stats().UploadsAccepted)
}
