// Package sheets defines the spreadsheet mirror the worker writes
// transactions to. Adapters live in the google and memory subpackages.
package sheets

import "context"

// Header is the first row of the mirror sheet.
var Header = []string{"Date", "Type", "Amount", "Description", "Source", "Account", "Category"}

// Row is one mirrored transaction with its references already resolved to
// display labels.
type Row struct {
	Date        string
	Type        string
	Amount      string
	Description string
	Source      string
	Account     string
	Category    string
}

// Values returns the row cells in Header order.
func (r Row) Values() []any {
	return []any{r.Date, r.Type, r.Amount, r.Description, r.Source, r.Account, r.Category}
}

// TransactionMirror replaces the mirrored transaction list.
type TransactionMirror interface {
	// Replace overwrites the mirror with rows, header included.
	Replace(ctx context.Context, rows []Row) error
}
