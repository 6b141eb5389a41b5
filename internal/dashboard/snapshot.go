package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"flowfinance/internal/core"
)

// Source lists the three collections a snapshot is built from.
// api.Client satisfies it.
type Source interface {
	Accounts(ctx context.Context) ([]core.Account, error)
	Categories(ctx context.Context) ([]core.Category, error)
	Transactions(ctx context.Context) ([]core.Transaction, error)
}

// Snapshot is a consistent set of collections loaded together.
type Snapshot struct {
	Accounts     []core.Account
	Categories   []core.Category
	Transactions []core.Transaction
}

// LoadSnapshot fetches the three collections concurrently. If any request
// fails the others are cancelled and a zero Snapshot is returned.
func LoadSnapshot(ctx context.Context, src Source) (Snapshot, error) {
	var (
		accounts     []core.Account
		categories   []core.Category
		transactions []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = src.Accounts(gctx)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = src.Categories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		transactions, err = src.Transactions(gctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Accounts: accounts, Categories: categories, Transactions: transactions}, nil
}

// Summarize computes the dashboard figures of s.
func Summarize(s Snapshot, now time.Time, windowDays int) core.Summary {
	return core.Summary{
		InitialBalance: InitialBalance(s.Accounts),
		Income:         TotalIncome(s.Transactions),
		Expenses:       TotalExpenses(s.Transactions),
		Balance:        CurrentBalance(s.Accounts, s.Transactions),
		AccountCount:   len(s.Accounts),
		Daily:          DailySeries(s.Transactions, windowDays, now),
		ByCategory:     CategoryBreakdown(s.Categories, s.Transactions),
		Recent:         RecentTransactions(s, RecentCount),
	}
}
