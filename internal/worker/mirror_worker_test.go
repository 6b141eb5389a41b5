package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowfinance/internal/amqp"
	"flowfinance/internal/api"
	"flowfinance/internal/core"
	"flowfinance/internal/dashboard"
	"flowfinance/internal/fakeapi"
	"flowfinance/internal/log"
	"flowfinance/internal/sheets"
	"flowfinance/internal/sheets/memory"
)

func newClient(t *testing.T) (*api.Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(fakeapi.Config{})
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	var token string
	client := api.New(srv.URL, api.TokenFunc(func() string { return token }), api.WithLogger(log.Discard()))
	ctx := context.Background()
	_, err := client.Register(ctx, core.Registration{Email: "w@example.com", Username: "w", Password: "pw"})
	require.NoError(t, err)
	token, err = client.Login(ctx, core.Credentials{Username: "w", Password: "pw"})
	require.NoError(t, err)
	return client, fake
}

func seed(t *testing.T, client *api.Client) {
	t.Helper()
	ctx := context.Background()
	acc, err := client.CreateAccount(ctx, core.AccountInput{Name: "Checking", InitialBalance: core.MustAmount("100")})
	require.NoError(t, err)
	cat, err := client.CreateCategory(ctx, core.CategoryInput{Name: "Food"})
	require.NoError(t, err)

	_, err = client.CreateTransaction(ctx, core.TransactionInput{
		Amount: core.MustAmount("12.5"), Type: core.Expense, Description: "Lunch",
		Date: core.NewDate(2024, 5, 2), AccountID: core.Ref(acc.ID), CategoryID: core.Ref(cat.ID),
	})
	require.NoError(t, err)
	_, err = client.CreateTransaction(ctx, core.TransactionInput{
		Amount: core.MustAmount("1000"), Type: core.Revenue, Source: "Salary",
		Date: core.NewDate(2024, 5, 1),
	})
	require.NoError(t, err)
}

func TestMirrorWritesResolvedRows(t *testing.T) {
	client, _ := newClient(t)
	seed(t, client)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	require.NoError(t, w.Mirror(context.Background()))

	assert.Equal(t, 1, store.Writes())
	assert.Equal(t, []sheets.Row{
		{Date: "2024-05-02", Type: "expense", Amount: "12.50", Description: "Lunch", Account: "Checking", Category: "Food"},
		{Date: "2024-05-01", Type: "revenue", Amount: "1000.00", Source: "Salary", Account: dashboard.NoAccount, Category: dashboard.NoCategory},
	}, store.Rows())
}

func TestMirrorSkipsWriteOnPartialSnapshot(t *testing.T) {
	client, fake := newClient(t)
	seed(t, client)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	fake.FailNext(http.MethodGet, "/categories/", http.StatusInternalServerError)

	err := w.Mirror(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load snapshot")
	assert.Zero(t, store.Writes())
}

func TestHandleChangeMirrors(t *testing.T) {
	client, _ := newClient(t)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	msg := amqp.NewChangeMessage("transactions", log.OpCreate, 3)
	require.NoError(t, w.HandleChange(context.Background(), msg))

	assert.Equal(t, 1, store.Writes())
	assert.Empty(t, store.Rows())
}

type failingMirror struct{}

func (failingMirror) Replace(context.Context, []sheets.Row) error {
	return errors.New("quota exceeded")
}

func TestMirrorWrapsWriteFailure(t *testing.T) {
	client, _ := newClient(t)
	w := NewMirrorWorker(client, failingMirror{}, log.Discard())

	err := w.Mirror(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace mirror: quota exceeded")
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	client, _ := newClient(t)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.RunPeriodic(ctx, 10*time.Millisecond))
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Writes() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not return after cancel")
	}
}

func TestRunPeriodicStopsOnAuthFailure(t *testing.T) {
	client, fake := newClient(t)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	fake.FailNext(http.MethodGet, "/accounts/", http.StatusUnauthorized)

	errc := make(chan error, 1)
	go func() { errc <- w.RunPeriodic(context.Background(), 10*time.Millisecond) }()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic kept running after an authentication failure")
	}
	assert.Zero(t, store.Writes())
}

func TestRunPeriodicRetriesOtherFailures(t *testing.T) {
	client, fake := newClient(t)
	store := memory.New()
	w := NewMirrorWorker(client, store, log.Discard())

	fake.FailNext(http.MethodGet, "/accounts/", http.StatusInternalServerError)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.RunPeriodic(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return store.Writes() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-errc)
}
