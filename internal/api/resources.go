package api

import (
	"context"
	"fmt"
	"net/http"

	"flowfinance/internal/core"
)

const (
	accountsPath     = "/accounts/"
	categoriesPath   = "/categories/"
	transactionsPath = "/transactions/"
)

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	req, _ := jsonRequest(http.MethodGet, path, nil)
	var out []T
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func createOne[T any](ctx context.Context, c *Client, path string, in any) (T, error) {
	var out T
	req, err := jsonRequest(http.MethodPost, path, in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, req, &out)
	return out, err
}

func updateOne[T any](ctx context.Context, c *Client, path string, id core.ID, in any) (T, error) {
	var out T
	req, err := jsonRequest(http.MethodPut, fmt.Sprintf("%s%d", path, id), in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, req, &out)
	return out, err
}

func deleteOne(ctx context.Context, c *Client, path string, id core.ID) error {
	req, _ := jsonRequest(http.MethodDelete, fmt.Sprintf("%s%d", path, id), nil)
	return c.do(ctx, req, nil)
}

func (c *Client) Accounts(ctx context.Context) ([]core.Account, error) {
	return listAll[core.Account](ctx, c, accountsPath)
}

func (c *Client) CreateAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	return createOne[core.Account](ctx, c, accountsPath, in)
}

func (c *Client) UpdateAccount(ctx context.Context, id core.ID, in core.AccountInput) (core.Account, error) {
	return updateOne[core.Account](ctx, c, accountsPath, id, in)
}

func (c *Client) DeleteAccount(ctx context.Context, id core.ID) error {
	return deleteOne(ctx, c, accountsPath, id)
}

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	return listAll[core.Category](ctx, c, categoriesPath)
}

func (c *Client) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	return createOne[core.Category](ctx, c, categoriesPath, in)
}

func (c *Client) UpdateCategory(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error) {
	return updateOne[core.Category](ctx, c, categoriesPath, id, in)
}

func (c *Client) DeleteCategory(ctx context.Context, id core.ID) error {
	return deleteOne(ctx, c, categoriesPath, id)
}

func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return listAll[core.Transaction](ctx, c, transactionsPath)
}

func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	return createOne[core.Transaction](ctx, c, transactionsPath, in)
}

func (c *Client) UpdateTransaction(ctx context.Context, id core.ID, in core.TransactionInput) (core.Transaction, error) {
	return updateOne[core.Transaction](ctx, c, transactionsPath, id, in)
}

func (c *Client) DeleteTransaction(ctx context.Context, id core.ID) error {
	return deleteOne(ctx, c, transactionsPath, id)
}
