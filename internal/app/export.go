package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/contract"
)

// Export renders archived outcomes as CSV and/or a compliance chart PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openArchive(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("archive not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListOutcomesBetween(ctx, archive.OutcomeFilter{
		Contract:  opts.Contract,
		CheckType: opts.CheckType,
		From:      from,
		To:        to,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no outcomes found for export window")
		return nil
	}

	downsampled := downsampleOutcomes(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting outcomes")

	if opts.CSVPath != "" {
		if err := writeOutcomesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeComplianceChart(opts.PNGPath, from, to, records); err != nil {
			return err
		}
	}

	return nil
}

func downsampleOutcomes(records []archive.OutcomeRecord, max int) []archive.OutcomeRecord {
	if max <= 0 || len(records) <= max {
		return records
	}

	result := make([]archive.OutcomeRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeOutcomesCSV(path string, records []archive.OutcomeRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"checked_at", "contract", "version", "check_type", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		errMsg := ""
		if rec.ErrorMessage != nil {
			errMsg = *rec.ErrorMessage
		}
		row := []string{
			rec.CheckedAt.UTC().Format(time.RFC3339),
			rec.ContractName,
			rec.ContractVersion,
			rec.CheckType,
			rec.Status,
			errMsg,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

type complianceBucket struct {
	start   time.Time
	total   int
	pass    int
	fail    int
	errored int
}

// bucketWidth targets roughly 120 chart buckets over the export window.
func bucketWidth(window time.Duration) time.Duration {
	width := window / 120
	if width < time.Minute {
		width = time.Minute
	}
	return width
}

func bucketOutcomes(records []archive.OutcomeRecord, from time.Time, width time.Duration) []complianceBucket {
	grouped := make(map[int64]*complianceBucket)
	for _, rec := range records {
		idx := int64(rec.CheckedAt.Sub(from) / width)
		bucket, ok := grouped[idx]
		if !ok {
			bucket = &complianceBucket{start: from.Add(time.Duration(idx) * width)}
			grouped[idx] = bucket
		}
		bucket.total++
		switch rec.Status {
		case contract.CheckPass:
			bucket.pass++
		case contract.CheckFail:
			bucket.fail++
		case contract.CheckError:
			bucket.errored++
		}
	}

	buckets := make([]complianceBucket, 0, len(grouped))
	for _, bucket := range grouped {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].start.Before(buckets[j].start) })
	return buckets
}

func writeComplianceChart(path string, from, to time.Time, records []archive.OutcomeRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	buckets := bucketOutcomes(records, from, bucketWidth(to.Sub(from)))

	x := make([]time.Time, 0, len(buckets))
	passRate := make([]float64, 0, len(buckets))
	failures := make([]float64, 0, len(buckets))
	errored := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		x = append(x, bucket.start)
		passRate = append(passRate, 100*float64(bucket.pass)/float64(bucket.total))
		failures = append(failures, float64(bucket.fail))
		errored = append(errored, float64(bucket.errored))
	}

	percentFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f%%")
	}
	countFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Pass rate (%)",
			ValueFormatter: percentFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: 100},
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Breaches",
			ValueFormatter: countFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Pass rate",
				XValues: x,
				YValues: passRate,
			},
			chart.TimeSeries{
				Name:    "Failures",
				XValues: x,
				YValues: failures,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Errors",
				XValues: x,
				YValues: errored,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
