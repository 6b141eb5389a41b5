package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowfinance/internal/api"
	"flowfinance/internal/core"
	"flowfinance/internal/fakeapi"
	"flowfinance/internal/log"
	"flowfinance/internal/session"
	"flowfinance/internal/storage"
)

type harness struct {
	fake   *fakeapi.Server
	client *api.Client
	tokens storage.TokenStore
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := fakeapi.New(fakeapi.Config{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return &harness{
		fake:   fake,
		client: api.New(srv.URL, nil, api.WithLogger(log.Discard())),
		tokens: storage.NewMemoryTokenStore(),
		now:    time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (h *harness) newApp(stdin string, out *bytes.Buffer) *app {
	return newApp(h.client, h.tokens, appOptions{
		windowDays: 7,
		logger:     log.Discard(),
		now:        func() time.Time { return h.now },
	}, strings.NewReader(stdin), out)
}

// run executes one invocation of the client, as a fresh process would.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := h.newApp(stdin, &out).run(context.Background(), args)
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func (h *harness) signedIn(t *testing.T) {
	t.Helper()
	h.mustRun(t, "register", "-email", "alice@example.com", "-u", "alice", "-p", "secret")
}

func TestRegisterLoginWhoami(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "register", "-email", "alice@example.com", "-u", "alice", "-p", "secret")
	assert.Contains(t, out, "Account alice created and logged in.")

	out = h.mustRun(t, "whoami")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "alice@example.com")

	h.mustRun(t, "logout")
	_, err := h.run(t, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	out, err = h.run(t, "alice\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice.")
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.mustRun(t, "logout")

	_, err := h.run(t, "", "login", "-u", "alice", "-p", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)

	_, err = h.run(t, "", "accounts", "list")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestAccountsLifecycle(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	out := h.mustRun(t, "accounts", "list")
	assert.Contains(t, out, "No accounts yet.")

	out = h.mustRun(t, "accounts", "add", "-name", "Checking", "-balance", "100,5")
	assert.Contains(t, out, `"Checking"`)

	accounts, err := h.client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	id := strconv.FormatInt(int64(accounts[0].ID), 10)
	assert.Equal(t, "100.50", accounts[0].InitialBalance.String())

	out = h.mustRun(t, "accounts", "edit", "-id", id, "-name", "Main")
	assert.Contains(t, out, `"Main"`)

	out = h.mustRun(t, "accounts", "list")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "100.50")
	assert.NotContains(t, out, "Checking")

	out, err = h.run(t, "n\n", "accounts", "delete", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = h.run(t, "y\n", "accounts", "delete", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted account #"+id)

	accounts, err = h.client.Accounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestRecordCommandErrors(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "missing subcommand", args: []string{"categories"}, wantErr: errUsage},
		{name: "unknown subcommand", args: []string{"categories", "rename"}, wantErr: errUsage},
		{name: "edit without id", args: []string{"categories", "edit", "-name", "x"}, wantErr: errUsage},
		{name: "unknown id", args: []string{"categories", "delete", "-id", "999", "-yes"}, wantMsg: "category #999 not found"},
		{name: "empty name", args: []string{"categories", "add", "-name", " "}, wantErr: core.ErrEmptyName},
		{name: "bad amount", args: []string{"transactions", "add", "-amount", "abc"}, wantErr: core.ErrInvalidAmount},
		{name: "bad type", args: []string{"transactions", "add", "-amount", "1", "-type", "gift"}, wantErr: core.ErrInvalidType},
		{name: "unknown command", args: []string{"budgets"}, wantErr: errUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(t, "", tt.args...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func seedLedger(t *testing.T, h *harness) {
	t.Helper()
	h.mustRun(t, "accounts", "add", "-name", "Checking", "-balance", "100")
	h.mustRun(t, "categories", "add", "-name", "Food")

	ctx := context.Background()
	accounts, err := h.client.Accounts(ctx)
	require.NoError(t, err)
	categories, err := h.client.Categories(ctx)
	require.NoError(t, err)

	h.mustRun(t, "transactions", "add", "-amount", "12.50", "-desc", "Lunch",
		"-account", strconv.FormatInt(int64(accounts[0].ID), 10),
		"-category", strconv.FormatInt(int64(categories[0].ID), 10))
	h.mustRun(t, "transactions", "add", "-amount", "1000", "-type", "revenue",
		"-source", "Salary", "-date", "2024-05-09")
}

func TestTransactionsListResolvesLabels(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	seedLedger(t, h)

	txs, err := h.client.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.Expense, txs[0].Type)
	assert.Equal(t, "2024-05-10", txs[0].Date.String())

	out := h.mustRun(t, "transactions", "list")
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Checking")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "-12.50")
	assert.Contains(t, out, "No Account")
	assert.Contains(t, out, "No Category")

	id := strconv.FormatInt(int64(txs[0].ID), 10)
	h.mustRun(t, "transactions", "edit", "-id", id, "-category", "0")
	out = h.mustRun(t, "transactions", "list")
	assert.NotContains(t, out, "Food")
}

func TestTransactionsListLoadsAsOneBatch(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	seedLedger(t, h)

	h.fake.FailNext(http.MethodGet, "/categories/", http.StatusInternalServerError)
	var out bytes.Buffer
	a := h.newApp("", &out)
	err := a.run(context.Background(), []string{"transactions", "list"})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrTransport)
	assert.Contains(t, err.Error(), "load categories")

	assert.Empty(t, a.accounts.Items())
	assert.Empty(t, a.categories.Items())
	assert.Empty(t, a.transactions.Items())
	assert.Empty(t, out.String())

	out.Reset()
	a = h.newApp("", &out)
	require.NoError(t, a.run(context.Background(), []string{"transactions", "list"}))
	assert.Len(t, a.accounts.Items(), 1)
	assert.Len(t, a.categories.Items(), 1)
	assert.Len(t, a.transactions.Items(), 2)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	seedLedger(t, h)

	out := h.mustRun(t, "dashboard")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "1087.50")
	assert.Contains(t, out, "Last 7 days")
	assert.Contains(t, out, "2024-05-04")
	assert.Contains(t, out, "2024-05-10")
	assert.Contains(t, out, "Food")

	assert.Contains(t, out, "Accounts")
	assert.Contains(t, out, "Recent transactions")
	assert.Contains(t, out, "-12.50")
	assert.Contains(t, out, "+1000.00")
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Salary")
	assert.Contains(t, out, "Checking / Food")
	assert.Contains(t, out, "No Account / No Category")

	out = h.mustRun(t, "dashboard", "-days", "3")
	assert.Contains(t, out, "Last 3 days")
	assert.NotContains(t, out, "2024-05-07")
}

func TestExportThenImport(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	seedLedger(t, h)

	dir := t.TempDir()
	archive := filepath.Join(dir, "out.zip")
	out := h.mustRun(t, "export", "-o", archive)
	assert.Contains(t, out, "Exported 2 transactions")
	_, err := os.Stat(archive)
	require.NoError(t, err)

	doc := `[{"amount": 4.2, "transaction_type": "expense", "date": "2024-05-08", "description": "Coffee"}]`
	file := filepath.Join(dir, "import.json")
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o600))

	out = h.mustRun(t, "import", file)
	assert.Contains(t, out, "Imported 1 transactions.")

	txs, err := h.client.Transactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestImportRejectsMalformedFileLocally(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"not": "a list"}`), 0o600))

	_, err := h.run(t, "", "import", file)
	require.Error(t, err)

	txs, err := h.client.Transactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestProfileUpdateEndsSession(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	_, err := h.run(t, "", "profile", "update")
	assert.ErrorIs(t, err, errUsage)

	out := h.mustRun(t, "profile", "update", "-u", "alicia")
	assert.Contains(t, out, "Profile updated for alicia")

	_, err = h.run(t, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	h.mustRun(t, "login", "-u", "alicia", "-p", "secret")
}

func TestProfileDeleteNeedsExactConfirmation(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	_, err := h.run(t, "delete my account\n", "profile", "delete")
	assert.ErrorIs(t, err, session.ErrConfirmationMismatch)
	h.mustRun(t, "whoami")

	out, err := h.run(t, session.DeleteConfirmation+"\n", "profile", "delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Account deleted.")

	_, err = h.run(t, "", "login", "-u", "alice", "-p", "secret")
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		out  string
	}{
		{name: "success", err: nil, want: 0},
		{name: "help", err: flag.ErrHelp, want: 0},
		{name: "usage", err: errUsage, want: 2, out: "Usage: flow"},
		{name: "failure", err: errors.New("boom"), want: 1, out: "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.want, exitCode(tt.err, &stderr))
			assert.Contains(t, stderr.String(), tt.out)
		})
	}
}
