package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"contract-compliance-monitor/internal/archive"
	"contract-compliance-monitor/internal/contract"
)

// Check runs one immediate check for one contract and prints the outcome.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	if err := validCheckType(opts.CheckType); err != nil {
		return err
	}

	var store archive.Store
	var closeStore func()
	var err error
	if opts.Record {
		store, closeStore, err = a.openArchive(ctx)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}
	}

	svc, err := a.newService(nil, store)
	if err != nil {
		return err
	}

	out, err := svc.CheckNow(ctx, opts.Contract, opts.CheckType, opts.Record)
	if err != nil {
		return err
	}

	printOutcome(os.Stdout, out)
	return nil
}

func printOutcome(w io.Writer, out contract.Outcome) {
	fmt.Fprintf(w, "contract: %s (v%s)\n", out.ContractName, out.ContractVersion)
	fmt.Fprintf(w, "check:    %s\n", out.CheckType)
	fmt.Fprintf(w, "status:   %s\n", out.Status)
	fmt.Fprintf(w, "checked:  %s\n", out.CheckedAt.UTC().Format(time.RFC3339))
	for _, msg := range out.Errors {
		fmt.Fprintf(w, "error:    %s\n", msg)
	}
	for _, msg := range out.Warnings {
		fmt.Fprintf(w, "warning:  %s\n", msg)
	}
	if out.ErrorMessage != "" {
		fmt.Fprintf(w, "message:  %s\n", out.ErrorMessage)
	}
}
