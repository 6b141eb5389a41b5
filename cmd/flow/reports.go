package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"flowfinance/internal/dashboard"
	"flowfinance/internal/transfer"
)

func (a *app) dashboard(ctx context.Context, args []string) error {
	fs := a.flagSet("dashboard")
	days := fs.Int("days", a.windowDays, "number of days in the daily series")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := dashboard.LoadSnapshot(ctx, a.client)
	if err != nil {
		return a.session.Guard(fmt.Errorf("load dashboard: %w", err))
	}
	summary := dashboard.Summarize(snap, a.now(), *days)
	fmt.Fprintln(a.stdout, renderDashboard(summary))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	out := fs.String("o", "", "output file (default Transactions_YYYYMMDD.zip)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = transfer.BaseName(a.now()) + ".zip"
	}

	data, err := a.transactions.Export(ctx)
	if err != nil {
		return err
	}
	txs, err := transfer.ReadArchive(data)
	if err != nil {
		return fmt.Errorf("unexpected export archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Exported %d transactions to %s.\n", len(txs), path)
	return nil
}

func (a *app) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: import FILE", errUsage)
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	created, err := a.transactions.Import(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Imported %d transactions.\n", len(created))
	return nil
}
