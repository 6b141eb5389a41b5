package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"flowfinance/internal/core"
	"flowfinance/internal/resource"
)

// formFlags registers the editable fields of F on fs. The returned function
// copies the flags the user actually set onto a form.
type formFlags[F any] func(fs *flag.FlagSet) func(set map[string]bool, form *F) error

// records drives one resource controller from the command line.
type records[R any, F any] struct {
	ctrl   *resource.Controller[R, F]
	noun   string
	idOf   func(R) core.ID
	label  func(R) string
	flags  formFlags[F]
	render func() string
	// load replaces the plain collection refresh of list, for pages that
	// render several collections.
	load func(ctx context.Context) error
}

func (r records[R, F]) run(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s list|add|edit|delete", errUsage, r.ctrl.Name())
	}
	switch args[0] {
	case "list":
		return r.list(ctx, a)
	case "add":
		return r.add(ctx, a, args[1:])
	case "edit":
		return r.edit(ctx, a, args[1:])
	case "delete":
		return r.remove(ctx, a, args[1:])
	default:
		return fmt.Errorf("%w: unknown %s command %q", errUsage, r.ctrl.Name(), args[0])
	}
}

func (r records[R, F]) list(ctx context.Context, a *app) error {
	load := r.ctrl.Refresh
	if r.load != nil {
		load = r.load
	}
	if err := load(ctx); err != nil {
		return err
	}
	if len(r.ctrl.Items()) == 0 {
		fmt.Fprintf(a.stdout, "No %s yet.\n", r.ctrl.Name())
		return nil
	}
	fmt.Fprintln(a.stdout, r.render())
	return nil
}

func (r records[R, F]) add(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet(r.ctrl.Name() + " add")
	apply := r.flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	r.ctrl.BeginCreate()
	defer r.ctrl.CancelDialog()
	form := r.ctrl.State().Dialog.Form
	if err := apply(visited(fs), &form); err != nil {
		return err
	}

	saved, err := r.ctrl.Submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Created %s #%d %s.\n", r.noun, r.idOf(saved), r.label(saved))
	return nil
}

func (r records[R, F]) edit(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet(r.ctrl.Name() + " edit")
	id := fs.Int64("id", 0, "id of the record to edit")
	apply := r.flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	record, err := r.find(ctx, core.ID(*id))
	if err != nil {
		return err
	}

	r.ctrl.BeginEdit(record)
	defer r.ctrl.CancelDialog()
	form := r.ctrl.State().Dialog.Form
	if err := apply(visited(fs), &form); err != nil {
		return err
	}

	saved, err := r.ctrl.Submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated %s #%d %s.\n", r.noun, r.idOf(saved), r.label(saved))
	return nil
}

func (r records[R, F]) remove(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet(r.ctrl.Name() + " delete")
	id := fs.Int64("id", 0, "id of the record to delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	record, err := r.find(ctx, core.ID(*id))
	if err != nil {
		return err
	}

	r.ctrl.RequestDelete(record)
	if !*yes {
		ok, err := a.confirm(fmt.Sprintf("Delete %s #%d %s?", r.noun, r.idOf(record), r.label(record)))
		if err != nil || !ok {
			r.ctrl.CancelDelete()
			if err == nil {
				fmt.Fprintln(a.stdout, "Cancelled.")
			}
			return err
		}
	}

	if err := r.ctrl.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s #%d.\n", r.noun, r.idOf(record))
	return nil
}

// find reloads the collection and returns the record with id.
func (r records[R, F]) find(ctx context.Context, id core.ID) (R, error) {
	var zero R
	if id <= 0 {
		return zero, fmt.Errorf("%w: -id is required", errUsage)
	}
	if err := r.ctrl.Refresh(ctx); err != nil {
		return zero, err
	}
	record, ok := r.ctrl.Lookup(id)
	if !ok {
		return zero, fmt.Errorf("%s #%d not found", r.noun, id)
	}
	return record, nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (a *app) accountsCmd(ctx context.Context, args []string) error {
	return records[core.Account, core.AccountInput]{
		ctrl:   a.accounts,
		noun:   "account",
		idOf:   func(acc core.Account) core.ID { return acc.ID },
		label:  func(acc core.Account) string { return strconv.Quote(acc.Name) },
		flags:  accountFlags,
		render: func() string { return renderAccounts(a.accounts.Items()) },
	}.run(ctx, a, args)
}

func (a *app) categoriesCmd(ctx context.Context, args []string) error {
	return records[core.Category, core.CategoryInput]{
		ctrl:   a.categories,
		noun:   "category",
		idOf:   func(cat core.Category) core.ID { return cat.ID },
		label:  func(cat core.Category) string { return strconv.Quote(cat.Name) },
		flags:  categoryFlags,
		render: func() string { return renderCategories(a.categories.Items()) },
	}.run(ctx, a, args)
}

func (a *app) transactionsCmd(ctx context.Context, args []string) error {
	return records[core.Transaction, core.TransactionInput]{
		ctrl: a.transactions.Controller,
		noun: "transaction",
		idOf: func(tx core.Transaction) core.ID { return tx.ID },
		label: func(tx core.Transaction) string {
			return fmt.Sprintf("(%s %s on %s)", tx.Type, tx.Amount, tx.Date)
		},
		flags: transactionFlags,
		render: func() string {
			return renderTransactions(a.transactions.Items(), a.accounts.Items(), a.categories.Items())
		},
		load: a.loadTransactionsPage,
	}.run(ctx, a, args)
}

// loadTransactionsPage loads the transactions together with the accounts and
// categories that label them, as one batch.
func (a *app) loadTransactionsPage(ctx context.Context) error {
	return resource.RefreshAll(ctx, a.accounts, a.categories, a.transactions.Controller)
}

func accountFlags(fs *flag.FlagSet) func(map[string]bool, *core.AccountInput) error {
	name := fs.String("name", "", "account name")
	balance := fs.String("balance", "", "initial balance, e.g. 120.50")
	return func(set map[string]bool, form *core.AccountInput) error {
		if set["name"] {
			form.Name = *name
		}
		if set["balance"] {
			amount, err := core.ParseAmount(*balance)
			if err != nil {
				return fmt.Errorf("-balance %q: %w", *balance, err)
			}
			form.InitialBalance = amount
		}
		return nil
	}
}

func categoryFlags(fs *flag.FlagSet) func(map[string]bool, *core.CategoryInput) error {
	name := fs.String("name", "", "category name")
	return func(set map[string]bool, form *core.CategoryInput) error {
		if set["name"] {
			form.Name = *name
		}
		return nil
	}
}

func transactionFlags(fs *flag.FlagSet) func(map[string]bool, *core.TransactionInput) error {
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	typ := fs.String("type", "", "revenue or expense")
	date := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	desc := fs.String("desc", "", "description")
	source := fs.String("source", "", "source of a revenue")
	account := fs.Int64("account", 0, "account id, 0 for none")
	category := fs.Int64("category", 0, "category id, 0 for none")

	return func(set map[string]bool, form *core.TransactionInput) error {
		if set["amount"] {
			a, err := core.ParseAmount(*amount)
			if err != nil {
				return fmt.Errorf("-amount %q: %w", *amount, err)
			}
			form.Amount = a
		}
		if set["type"] {
			form.Type = core.TransactionType(strings.ToLower(*typ))
		}
		if set["date"] {
			d, err := core.ParseDate(*date)
			if err != nil {
				return fmt.Errorf("-date %q: %w", *date, err)
			}
			form.Date = d
		}
		if set["desc"] {
			form.Description = *desc
		}
		if set["source"] {
			form.Source = *source
		}
		if set["account"] {
			form.AccountID = optionalRef(*account)
		}
		if set["category"] {
			form.CategoryID = optionalRef(*category)
		}
		return nil
	}
}

func optionalRef(id int64) *core.ID {
	if id <= 0 {
		return nil
	}
	return core.Ref(core.ID(id))
}
