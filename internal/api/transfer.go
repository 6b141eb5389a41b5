package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"flowfinance/internal/core"
)

// ExportTransactions downloads the zip archive of all transactions.
func (c *Client) ExportTransactions(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   transactionsPath + "export",
		accept: "application/zip",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read export archive: %w", ErrTransport, err)
	}
	return data, nil
}

// ImportTransactions uploads a JSON file of transaction records and returns
// the transactions the server created from it.
func (c *Client) ImportTransactions(ctx context.Context, filename string, file io.Reader) ([]core.Transaction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy import file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var out []core.Transaction
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        transactionsPath + "import",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		accept:      "application/json",
	}, &out)
	return out, err
}
