package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
)

const (
	ColumnDate     = "date"
	ColumnCategory = "category"
	ColumnSales    = "sales_amount"
	ColumnRegion   = "region"

	batchSize  = 5000
	maxWorkers = 8
)

var RequiredColumns = []string{ColumnDate, ColumnCategory, ColumnSales, ColumnRegion}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006",
	"01/02/2006",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type rawRow struct {
	line   int
	fields []string
}

type columnIndex struct {
	date, category, sales, region int
}

// Ingest parses an uploaded CSV payload into a dataset. Any bad row rejects
// the whole upload; the returned error is always an *IngestError unless ctx
// was cancelled.
func Ingest(ctx context.Context, filename string, raw []byte) (*models.Dataset, error) {
	if !utf8.Valid(raw) {
		return nil, decodeError(0, errors.New("payload is not valid UTF-8"))
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, decodeError(1, errors.New("file is empty"))
		}
		return nil, csvError(err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []rawRow
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, rawRow{line: line, fields: fields})
	}

	records, err := parseRows(ctx, rows, cols)
	if err != nil {
		return nil, err
	}

	slog.Debug("csv ingested", "filename", filename, "records", len(records))
	return models.NewDataset(filename, records), nil
}

func resolveColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := positions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &IngestError{
			Kind:   KindMissingColumn,
			Column: strings.Join(missing, ", "),
			Line:   1,
		}
	}

	return columnIndex{
		date:     positions[ColumnDate],
		category: positions[ColumnCategory],
		sales:    positions[ColumnSales],
		region:   positions[ColumnRegion],
	}, nil
}

// parseRows converts rows in parallel batches. Each batch records its first
// failure; the failure on the earliest line wins so the reported error does
// not depend on scheduling.
func parseRows(ctx context.Context, rows []rawRow, cols columnIndex) ([]models.SalesRecord, error) {
	records := make([]models.SalesRecord, len(rows))
	batches := (len(rows) + batchSize - 1) / batchSize
	failures := make([]error, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for b := 0; b < batches; b++ {
		start := b * batchSize
		end := min(start+batchSize, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, err := parseRow(rows[i], cols)
				if err != nil {
					failures[b] = err
					return nil
				}
				records[i] = rec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest cancelled: %w", err)
	}
	for _, err := range failures {
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func parseRow(row rawRow, cols columnIndex) (models.SalesRecord, error) {
	date, err := parseDate(row.fields[cols.date])
	if err != nil {
		return models.SalesRecord{}, parseError(row.line, ColumnDate, err)
	}

	raw := strings.TrimSpace(row.fields[cols.sales])
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return models.SalesRecord{}, parseError(row.line, ColumnSales, fmt.Errorf("%q is not a number", raw))
	}
	if amount.IsNegative() {
		return models.SalesRecord{}, parseError(row.line, ColumnSales, fmt.Errorf("%s is negative", amount))
	}

	category := strings.TrimSpace(row.fields[cols.category])
	if category == "" {
		return models.SalesRecord{}, parseError(row.line, ColumnCategory, errors.New("empty value"))
	}
	region := strings.TrimSpace(row.fields[cols.region])
	if region == "" {
		return models.SalesRecord{}, parseError(row.line, ColumnRegion, errors.New("empty value"))
	}

	return models.SalesRecord{
		Date:        date,
		Category:    category,
		SalesAmount: amount,
		Region:      region,
	}, nil
}

// parseDate accepts the supported layouts and drops any time of day.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognised date", value)
}

func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		if errors.Is(perr.Err, csv.ErrFieldCount) {
			return parseError(perr.Line, "", perr.Err)
		}
		return decodeError(perr.Line, perr.Err)
	}
	return decodeError(0, err)
}
