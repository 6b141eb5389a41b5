// Package worker keeps the spreadsheet mirror in step with the API.
package worker

import (
	"context"
	"fmt"
	"time"

	"flowfinance/internal/amqp"
	"flowfinance/internal/api"
	"flowfinance/internal/dashboard"
	"flowfinance/internal/log"
	"flowfinance/internal/sheets"
)

// MirrorWorker rewrites the transaction mirror from a fresh snapshot.
type MirrorWorker struct {
	source dashboard.Source
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(source dashboard.Source, mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Mirror loads all collections and replaces the mirror. Nothing is written
// when the snapshot cannot be loaded in full.
func (w *MirrorWorker) Mirror(ctx context.Context) error {
	start := time.Now()
	snap, err := dashboard.LoadSnapshot(ctx, w.source)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	rows := BuildRows(snap)
	if err := w.mirror.Replace(ctx, rows); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}

	w.logger.InfoContext(ctx, "Mirror updated",
		log.FieldOperation, log.OpMirror,
		log.FieldCount, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// HandleChange is the amqp.ChangeHandler of the worker. Every change can
// alter a label or a row, so each one triggers a full mirror.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.DebugContext(ctx, "Processing change message",
		log.NewFields().WithOperation(msg.Operation).WithResource(msg.Resource, int64(msg.ID)).ToSlice()...)
	return w.Mirror(ctx)
}

// RunPeriodic mirrors every interval until ctx is done. It is a backstop for
// lost change messages: failures are logged and retried on the next tick,
// except an authentication failure, which no retry can fix and which is
// returned.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := w.Mirror(ctx)
			if err == nil {
				continue
			}
			if api.IsAuth(err) {
				w.logger.ErrorContext(ctx, "Periodic mirror rejected, stopping",
					log.FieldError, err.Error(), log.FieldErrorType, api.Kind(err))
				return err
			}
			w.logger.ErrorContext(ctx, "Periodic mirror failed", log.FieldError, err.Error())
		}
	}
}

// BuildRows converts a snapshot into mirror rows, one per transaction in
// server order, with references resolved to labels.
func BuildRows(snap dashboard.Snapshot) []sheets.Row {
	rows := make([]sheets.Row, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		rows = append(rows, sheets.Row{
			Date:        tx.Date.String(),
			Type:        string(tx.Type),
			Amount:      tx.Amount.String(),
			Description: tx.Description,
			Source:      tx.Source,
			Account:     dashboard.AccountLabel(snap.Accounts, tx.AccountID),
			Category:    dashboard.CategoryLabel(snap.Categories, tx.CategoryID),
		})
	}
	return rows
}
