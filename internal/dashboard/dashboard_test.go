package dashboard

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowfinance/internal/api"
	"flowfinance/internal/core"
	"flowfinance/internal/fakeapi"
	"flowfinance/internal/log"
)

func tx(id core.ID, typ core.TransactionType, amount string, date core.Date, category *core.ID) core.Transaction {
	return core.Transaction{ID: id, Type: typ, Amount: core.MustAmount(amount), Date: date, CategoryID: category}
}

func TestTotals(t *testing.T) {
	accounts := []core.Account{
		{ID: 1, Name: "Checking", InitialBalance: core.MustAmount("100.00")},
		{ID: 2, Name: "Savings", InitialBalance: core.MustAmount("50.25")},
	}
	day := core.NewDate(2024, 1, 1)
	txs := []core.Transaction{
		tx(1, core.Revenue, "1000", day, nil),
		tx(2, core.Expense, "25.50", day, nil),
		tx(3, core.Expense, "0.10", day, nil),
		tx(4, core.Revenue, "0.20", day, nil),
	}

	assert.Equal(t, "1000.20", TotalIncome(txs).String())
	assert.Equal(t, "25.60", TotalExpenses(txs).String())
	assert.Equal(t, "150.25", InitialBalance(accounts).String())
	assert.Equal(t, "1124.85", CurrentBalance(accounts, txs).String())

	assert.Equal(t, "0.00", TotalIncome(nil).String())
	assert.Equal(t, "0.00", CurrentBalance(nil, nil).String())
}

func TestBalanceDeltaProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	accounts := []core.Account{{ID: 1, InitialBalance: core.MustAmount("12.34")}}

	for round := 0; round < 50; round++ {
		var txs []core.Transaction
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			typ := core.Expense
			if rng.Intn(2) == 0 {
				typ = core.Revenue
			}
			txs = append(txs, core.Transaction{Type: typ, Amount: core.NewAmount(rng.Int63n(100000))})
		}

		delta := CurrentBalance(accounts, txs).Sub(InitialBalance(accounts))
		assert.True(t, delta.Equal(TotalIncome(txs).Sub(TotalExpenses(txs))))

		want := CurrentBalance(accounts, txs)
		rng.Shuffle(len(txs), func(i, j int) { txs[i], txs[j] = txs[j], txs[i] })
		assert.True(t, want.Equal(CurrentBalance(accounts, txs)), "balance must not depend on order")
	}
}

func TestDailySeries(t *testing.T) {
	now := time.Date(2024, 3, 2, 18, 30, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(1, core.Revenue, "10", core.NewDate(2024, 3, 2), nil),
		tx(2, core.Expense, "4", core.NewDate(2024, 3, 2), nil),
		tx(3, core.Expense, "1.5", core.NewDate(2024, 2, 25), nil),
		tx(4, core.Expense, "99", core.NewDate(2024, 2, 24), nil),
		tx(5, core.Revenue, "99", core.NewDate(2024, 3, 3), nil),
	}

	series := DailySeries(txs, 7, now)
	require.Len(t, series, 7)
	assert.Equal(t, "2024-02-25", series[0].Date.String())
	assert.Equal(t, "2024-03-02", series[6].Date.String())
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Date.Before(series[i].Date.Time), "buckets must be oldest first")
	}

	assert.Equal(t, "1.50", series[0].Expenses.String())
	assert.Equal(t, "10.00", series[6].Income.String())
	assert.Equal(t, "4.00", series[6].Expenses.String())
	for _, b := range series[1:6] {
		assert.True(t, b.Income.IsZero())
		assert.True(t, b.Expenses.IsZero())
	}
}

func TestDailySeriesAlwaysFull(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 5, 0, 0, time.UTC)
	for _, window := range []int{1, 7, 30} {
		series := DailySeries(nil, window, now)
		assert.Len(t, series, window)
		assert.Equal(t, "2024-01-03", series[window-1].Date.String())
	}
	assert.Empty(t, DailySeries(nil, 0, now))
}

func TestDailySeriesUsesNowLocation(t *testing.T) {
	// 01:00 on March 2 in UTC+2 is still March 1 in UTC.
	zone := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 2, 1, 0, 0, 0, zone)
	series := DailySeries([]core.Transaction{tx(1, core.Revenue, "5", core.NewDate(2024, 3, 2), nil)}, 7, now)
	assert.Equal(t, "2024-03-02", series[6].Date.String())
	assert.Equal(t, "5.00", series[6].Income.String())
}

func TestCategoryBreakdown(t *testing.T) {
	categories := []core.Category{{ID: 1, Name: "Food"}, {ID: 2, Name: "Rent"}, {ID: 3, Name: "Salary"}}
	day := core.NewDate(2024, 1, 1)
	txs := []core.Transaction{
		tx(1, core.Expense, "20", day, core.Ref(1)),
		tx(2, core.Expense, "5.25", day, core.Ref(1)),
		tx(3, core.Revenue, "3000", day, core.Ref(3)),
		tx(4, core.Expense, "7", day, nil),
	}

	got := CategoryBreakdown(categories, txs)
	require.Len(t, got, 2)
	assert.Equal(t, "Food", got[0].Name)
	assert.Equal(t, "25.25", got[0].Amount.String())
	assert.Equal(t, "Salary", got[1].Name)
	assert.Equal(t, "3000.00", got[1].Amount.String())

	assert.Empty(t, CategoryBreakdown(categories, nil))
}

func TestDeletedCategoryStillCountsInTotals(t *testing.T) {
	categories := []core.Category{{ID: 1, Name: "Food"}}
	orphan := tx(1, core.Expense, "25.50", core.NewDate(2024, 1, 1), core.Ref(9))

	assert.Empty(t, CategoryBreakdown(categories, []core.Transaction{orphan}))
	assert.Equal(t, "25.50", TotalExpenses([]core.Transaction{orphan}).String())
	assert.Equal(t, UnknownCategory, CategoryLabel(categories, orphan.CategoryID))
}

func TestLabels(t *testing.T) {
	accounts := []core.Account{{ID: 1, Name: "Checking"}}
	categories := []core.Category{{ID: 4, Name: "Food"}}

	assert.Equal(t, "Checking", AccountLabel(accounts, core.Ref(1)))
	assert.Equal(t, UnknownAccount, AccountLabel(accounts, core.Ref(2)))
	assert.Equal(t, NoAccount, AccountLabel(accounts, nil))
	assert.Equal(t, "Food", CategoryLabel(categories, core.Ref(4)))
	assert.Equal(t, NoCategory, CategoryLabel(categories, nil))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Accounts:   []core.Account{{ID: 1, InitialBalance: core.MustAmount("100")}},
		Categories: []core.Category{{ID: 1, Name: "Food"}},
		Transactions: []core.Transaction{
			tx(1, core.Expense, "30", core.NewDate(2024, 5, 10), core.Ref(1)),
			tx(2, core.Revenue, "50", core.NewDate(2024, 5, 9), nil),
		},
	}

	sum := Summarize(snap, now, DefaultWindowDays)
	assert.Equal(t, "100.00", sum.InitialBalance.String())
	assert.Equal(t, "50.00", sum.Income.String())
	assert.Equal(t, "30.00", sum.Expenses.String())
	assert.Equal(t, "120.00", sum.Balance.String())
	assert.Len(t, sum.Daily, DefaultWindowDays)
	require.Len(t, sum.ByCategory, 1)
	assert.Equal(t, "30.00", sum.ByCategory[0].Amount.String())
	assert.Equal(t, 1, sum.AccountCount)
	require.Len(t, sum.Recent, 2)
	assert.Equal(t, core.ID(1), sum.Recent[0].ID)
	assert.Equal(t, "Food", sum.Recent[0].Category)
	assert.Equal(t, NoAccount, sum.Recent[0].Account)
	assert.Equal(t, NoCategory, sum.Recent[1].Category)
}

func TestRecentTransactions(t *testing.T) {
	snap := Snapshot{
		Accounts:   []core.Account{{ID: 1, Name: "Checking"}},
		Categories: []core.Category{{ID: 2, Name: "Rent"}},
	}
	for i := 1; i <= 7; i++ {
		rec := tx(core.ID(i), core.Expense, "1", core.NewDate(2024, 5, i), core.Ref(2))
		rec.AccountID = core.Ref(1)
		snap.Transactions = append(snap.Transactions, rec)
	}
	snap.Transactions[1].CategoryID = core.Ref(9)

	recent := RecentTransactions(snap, RecentCount)
	require.Len(t, recent, RecentCount)
	for i, r := range recent {
		assert.Equal(t, core.ID(i+1), r.ID, "server order is kept")
		assert.Equal(t, "Checking", r.Account)
	}
	assert.Equal(t, "Rent", recent[0].Category)
	assert.Equal(t, UnknownCategory, recent[1].Category)

	assert.Len(t, RecentTransactions(snap, 100), 7)
	assert.Empty(t, RecentTransactions(Snapshot{}, RecentCount))
	assert.Empty(t, RecentTransactions(snap, -1))
}

func TestLoadSnapshot(t *testing.T) {
	fake := fakeapi.New(fakeapi.Config{})
	srv := httptest.NewServer(fake.Handler())
	defer srv.Close()

	var token atomic.Value
	token.Store("")
	client := api.New(srv.URL, api.TokenFunc(func() string { return token.Load().(string) }), api.WithLogger(log.Discard()))
	ctx := context.Background()
	_, err := client.Register(ctx, core.Registration{Email: "d@example.com", Username: "d", Password: "pw"})
	require.NoError(t, err)
	tok, err := client.Login(ctx, core.Credentials{Username: "d", Password: "pw"})
	require.NoError(t, err)
	token.Store(tok)

	_, err = client.CreateAccount(ctx, core.AccountInput{Name: "Checking", InitialBalance: core.MustAmount("10")})
	require.NoError(t, err)
	_, err = client.CreateTransaction(ctx, core.TransactionInput{Amount: core.MustAmount("1"), Type: core.Expense, Date: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)

	snap, err := LoadSnapshot(ctx, client)
	require.NoError(t, err)
	assert.Len(t, snap.Accounts, 1)
	assert.Empty(t, snap.Categories)
	assert.Len(t, snap.Transactions, 1)

	fake.FailNext(http.MethodGet, "/categories/", http.StatusInternalServerError)
	snap, err = LoadSnapshot(ctx, client)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrTransport)
	assert.Nil(t, snap.Accounts)
	assert.Nil(t, snap.Transactions)
}

type failingSource struct {
	cancelled atomic.Bool
}

func (f *failingSource) Accounts(ctx context.Context) ([]core.Account, error) {
	<-ctx.Done()
	f.cancelled.Store(true)
	return nil, ctx.Err()
}

func (f *failingSource) Categories(context.Context) ([]core.Category, error) {
	return nil, api.ErrUnauthenticated
}

func (f *failingSource) Transactions(context.Context) ([]core.Transaction, error) {
	return []core.Transaction{{ID: 1}}, nil
}

func TestLoadSnapshotCancelsSiblings(t *testing.T) {
	src := &failingSource{}
	snap, err := LoadSnapshot(context.Background(), src)
	assert.True(t, errors.Is(err, api.ErrUnauthenticated))
	assert.True(t, src.cancelled.Load())
	assert.Equal(t, Snapshot{}, snap)
}
