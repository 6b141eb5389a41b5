package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"flowfinance/internal/core"
	"flowfinance/internal/log"
	"flowfinance/internal/transfer"
)

// Resource names used in logs and change events.
const (
	NameAccounts     = "accounts"
	NameCategories   = "categories"
	NameTransactions = "transactions"
)

// AccountsAPI is the part of api.Client the accounts controller needs.
type AccountsAPI interface {
	Accounts(ctx context.Context) ([]core.Account, error)
	CreateAccount(ctx context.Context, in core.AccountInput) (core.Account, error)
	UpdateAccount(ctx context.Context, id core.ID, in core.AccountInput) (core.Account, error)
	DeleteAccount(ctx context.Context, id core.ID) error
}

type CategoriesAPI interface {
	Categories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error)
	UpdateCategory(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error)
	DeleteCategory(ctx context.Context, id core.ID) error
}

type TransactionsAPI interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id core.ID, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id core.ID) error
	ExportTransactions(ctx context.Context) ([]byte, error)
	ImportTransactions(ctx context.Context, filename string, file io.Reader) ([]core.Transaction, error)
}

type (
	Accounts   = Controller[core.Account, core.AccountInput]
	Categories = Controller[core.Category, core.CategoryInput]
)

func NewAccounts(c AccountsAPI, opts ...Option) *Accounts {
	return New(Ops[core.Account, core.AccountInput]{
		Name:   NameAccounts,
		List:   c.Accounts,
		Create: c.CreateAccount,
		Update: c.UpdateAccount,
		Delete: c.DeleteAccount,
		ID:     func(a core.Account) core.ID { return a.ID },
		Blank:  func() core.AccountInput { return core.AccountInput{InitialBalance: core.Zero} },
		FormOf: core.Account.Input,
	}, opts...)
}

func NewCategories(c CategoriesAPI, opts ...Option) *Categories {
	return New(Ops[core.Category, core.CategoryInput]{
		Name:   NameCategories,
		List:   c.Categories,
		Create: c.CreateCategory,
		Update: c.UpdateCategory,
		Delete: c.DeleteCategory,
		ID:     func(cat core.Category) core.ID { return cat.ID },
		Blank:  func() core.CategoryInput { return core.CategoryInput{} },
		FormOf: core.Category.Input,
	}, opts...)
}

// Transactions is the transactions controller plus bulk import and export.
type Transactions struct {
	*Controller[core.Transaction, core.TransactionInput]
	api TransactionsAPI
}

// NewTransactions creates the transactions controller. The blank form is
// an expense dated today.
func NewTransactions(c TransactionsAPI, today func() core.Date, opts ...Option) *Transactions {
	ctrl := New(Ops[core.Transaction, core.TransactionInput]{
		Name:   NameTransactions,
		List:   c.Transactions,
		Create: c.CreateTransaction,
		Update: c.UpdateTransaction,
		Delete: c.DeleteTransaction,
		ID:     func(t core.Transaction) core.ID { return t.ID },
		Blank: func() core.TransactionInput {
			return core.TransactionInput{Amount: core.Zero, Type: core.Expense, Date: today()}
		},
		FormOf: core.Transaction.Input,
	}, opts...)
	return &Transactions{Controller: ctrl, api: c}
}

// Import checks file, uploads it and reloads the collection. A malformed
// file is rejected before any request is made.
func (t *Transactions) Import(ctx context.Context, filename string, file io.Reader) ([]core.Transaction, error) {
	if !t.writing.TryLock() {
		return nil, ErrBusy
	}
	defer t.writing.Unlock()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if _, err := transfer.ValidateImport(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("import %s: %w", filename, err)
	}

	created, err := t.api.ImportTransactions(ctx, filename, bytes.NewReader(data))
	if err != nil {
		t.logFailure(ctx, log.OpImport, 0, err)
		return nil, t.settings.guard(fmt.Errorf("import %s: %w", filename, err))
	}

	t.settings.logger.InfoContext(ctx, "Transactions imported",
		log.FieldOperation, log.OpImport, log.FieldCount, len(created))
	t.publish(ctx, log.OpImport, 0)
	return created, t.Refresh(ctx)
}

// Export downloads the archive of all transactions.
func (t *Transactions) Export(ctx context.Context) ([]byte, error) {
	data, err := t.api.ExportTransactions(ctx)
	if err != nil {
		return nil, t.settings.guard(fmt.Errorf("export transactions: %w", err))
	}
	t.settings.logger.DebugContext(ctx, "Transactions exported", log.FieldOperation, log.OpExport)
	return data, nil
}
