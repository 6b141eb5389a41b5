package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowfinance/internal/api"
)

func TestRefreshAllAppliesEveryCollection(t *testing.T) {
	first, firstBackend := newNotes()
	second, secondBackend := newNotes()
	firstBackend.items = []note{{ID: 1, Text: "a"}}
	secondBackend.items = []note{{ID: 2, Text: "b"}, {ID: 3, Text: "c"}}

	require.NoError(t, RefreshAll(context.Background(), first, second))

	assert.Equal(t, []note{{ID: 1, Text: "a"}}, first.Items())
	assert.Len(t, second.Items(), 2)
	assert.False(t, first.State().Loading)
	assert.False(t, second.State().Loading)
}

func TestRefreshAllFailureAppliesNothing(t *testing.T) {
	first, firstBackend := newNotes()
	second, secondBackend := newNotes()
	ctx := context.Background()

	firstBackend.items = []note{{ID: 1, Text: "old"}}
	require.NoError(t, first.Refresh(ctx))

	firstBackend.items = []note{{ID: 1, Text: "old"}, {ID: 2, Text: "new"}}
	secondBackend.items = []note{{ID: 3, Text: "c"}}
	secondBackend.listErr = api.ErrTransport

	err := RefreshAll(ctx, first, second)
	assert.ErrorIs(t, err, api.ErrTransport)

	assert.Equal(t, []note{{ID: 1, Text: "old"}}, first.Items())
	assert.Empty(t, second.Items())
	assert.False(t, first.State().Loading)
	assert.False(t, second.State().Loading)
}

func TestRefreshAllGuardsAuthFailures(t *testing.T) {
	var guarded int
	guard := WithGuard(func(err error) error {
		if api.IsAuth(err) {
			guarded++
		}
		return err
	})
	c, backend := newNotes(guard)
	backend.listErr = api.ErrUnauthenticated

	err := RefreshAll(context.Background(), c)
	assert.ErrorIs(t, err, api.ErrUnauthenticated)
	assert.Equal(t, 1, guarded)
}
