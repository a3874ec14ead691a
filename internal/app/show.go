package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"contract-compliance-monitor/internal/archive"
)

// Show prints recent archived outcomes.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openArchive(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("archive not configured; cannot show outcomes")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return showAlerts(ctx, store, opts.Limit)
	}

	records, err := store.ListRecentOutcomes(ctx, archive.OutcomeFilter{
		Contract:  opts.Contract,
		CheckType: opts.CheckType,
		Limit:     opts.Limit,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no outcomes found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Checked (UTC)\tContract\tVersion\tCheck\tStatus\tError")

	for _, rec := range records {
		errMsg := ""
		if rec.ErrorMessage != nil {
			errMsg = sanitizeInline(*rec.ErrorMessage)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CheckedAt.UTC().Format(time.RFC3339),
			rec.ContractName,
			rec.ContractVersion,
			rec.CheckType,
			rec.Status,
			errMsg,
		)
	}

	writer.Flush()
	return nil
}

func showAlerts(ctx context.Context, store archive.AlertLogStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fired (UTC)\tContract\tCheck\tStatus\tMessage")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.ContractName,
			alert.CheckType,
			alert.Status,
			sanitizeInline(alert.Message),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
