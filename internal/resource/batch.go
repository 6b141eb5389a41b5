package resource

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Member is a controller that can take part in a batch refresh.
// *Controller satisfies it for every record type.
type Member interface {
	Name() string
	setLoading(bool)
	fetch(ctx context.Context) (func(), error)
}

// RefreshAll reloads every member concurrently. The results are applied
// only when all loads succeed; if any fails, the pending requests are
// cancelled and every member keeps its previous items.
func RefreshAll(ctx context.Context, members ...Member) error {
	for _, m := range members {
		m.setLoading(true)
	}
	defer func() {
		for _, m := range members {
			m.setLoading(false)
		}
	}()

	applies := make([]func(), len(members))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range members {
		g.Go(func() error {
			apply, err := m.fetch(gctx)
			if err != nil {
				return err
			}
			applies[i] = apply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, apply := range applies {
		apply()
	}
	return nil
}
