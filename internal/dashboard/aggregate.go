// Package dashboard derives summary figures from a loaded snapshot of
// accounts, categories and transactions. Apart from LoadSnapshot nothing
// here performs I/O.
package dashboard

import (
	"time"

	"flowfinance/internal/core"
)

const (
	// DefaultWindowDays is the length of the daily series.
	DefaultWindowDays = 7
	// RecentCount is how many transactions the recent list shows.
	RecentCount = 5
)

// Fallback labels for transactions whose references do not resolve.
const (
	NoAccount       = "No Account"
	UnknownAccount  = "Unknown Account"
	NoCategory      = "No Category"
	UnknownCategory = "Unknown Category"
)

// TotalIncome sums revenue amounts.
func TotalIncome(txs []core.Transaction) core.Amount {
	return sumOf(txs, core.Revenue)
}

// TotalExpenses sums expense amounts.
func TotalExpenses(txs []core.Transaction) core.Amount {
	return sumOf(txs, core.Expense)
}

func sumOf(txs []core.Transaction, typ core.TransactionType) core.Amount {
	total := core.Zero
	for _, tx := range txs {
		if tx.Type == typ {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// InitialBalance sums the opening balances of all accounts.
func InitialBalance(accounts []core.Account) core.Amount {
	total := core.Zero
	for _, a := range accounts {
		total = total.Add(a.InitialBalance)
	}
	return total
}

// CurrentBalance is the opening balances plus income minus expenses.
// Transactions count regardless of which account they reference.
func CurrentBalance(accounts []core.Account, txs []core.Transaction) core.Amount {
	return InitialBalance(accounts).Add(TotalIncome(txs)).Sub(TotalExpenses(txs))
}

// DailySeries returns one bucket per calendar day of the windowDays days
// ending on now's date, oldest first. Days without transactions are zero.
// A transaction belongs to the bucket whose date string it carries, so days
// are those of now's location; transactions outside the window are skipped.
func DailySeries(txs []core.Transaction, windowDays int, now time.Time) []core.DailyBucket {
	if windowDays <= 0 {
		return []core.DailyBucket{}
	}

	buckets := make([]core.DailyBucket, windowDays)
	index := make(map[string]int, windowDays)
	y, m, d := now.Date()
	for i := range buckets {
		day := time.Date(y, m, d-(windowDays-1-i), 0, 0, 0, 0, time.UTC)
		buckets[i] = core.DailyBucket{Date: core.Date{Time: day}, Income: core.Zero, Expenses: core.Zero}
		index[day.Format(core.DateLayout)] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.Date.String()]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Revenue:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case core.Expense:
			buckets[i].Expenses = buckets[i].Expenses.Add(tx.Amount)
		}
	}
	return buckets
}

// CategoryBreakdown totals transaction amounts per category, revenue and
// expense alike, in category order. Categories no transaction references
// are omitted, as are transactions whose category is missing or unknown.
func CategoryBreakdown(categories []core.Category, txs []core.Transaction) []core.CategoryAmount {
	type tally struct {
		total core.Amount
		count int
	}
	byID := make(map[core.ID]*tally, len(categories))
	for _, c := range categories {
		byID[c.ID] = &tally{total: core.Zero}
	}
	for _, tx := range txs {
		if tx.CategoryID == nil {
			continue
		}
		if t, ok := byID[*tx.CategoryID]; ok {
			t.total = t.total.Add(tx.Amount)
			t.count++
		}
	}

	out := []core.CategoryAmount{}
	for _, c := range categories {
		t := byID[c.ID]
		if t.count == 0 {
			continue
		}
		out = append(out, core.CategoryAmount{CategoryID: c.ID, Name: c.Name, Amount: t.total})
	}
	return out
}

// AccountLabel names the account id refers to.
func AccountLabel(accounts []core.Account, id *core.ID) string {
	if id == nil {
		return NoAccount
	}
	for _, a := range accounts {
		if a.ID == *id {
			return a.Name
		}
	}
	return UnknownAccount
}

// CategoryLabel names the category id refers to.
func CategoryLabel(categories []core.Category, id *core.ID) string {
	if id == nil {
		return NoCategory
	}
	for _, c := range categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return UnknownCategory
}

// RecentTransactions returns the first n transactions in server order with
// their labels resolved.
func RecentTransactions(s Snapshot, n int) []core.LabeledTransaction {
	n = max(0, min(n, len(s.Transactions)))
	out := make([]core.LabeledTransaction, n)
	for i, tx := range s.Transactions[:n] {
		out[i] = core.LabeledTransaction{
			Transaction: tx,
			Account:     AccountLabel(s.Accounts, tx.AccountID),
			Category:    CategoryLabel(s.Categories, tx.CategoryID),
		}
	}
	return out
}
