//go:build integration

package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletgate/pkg/testutil/containers"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	pg := containers.GetManager().GetPostgres(t)
	_, err := pg.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tx_probe (v TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	require.NoError(t, pg.Truncate(ctx, "tx_probe"))

	count := func() int {
		var n int
		require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tx_probe`).Scan(&n))
		return n
	}
	insert := func(ctx context.Context, v string) error {
		_, err := Q(ctx, pg.DB).ExecContext(ctx, `INSERT INTO tx_probe (v) VALUES ($1)`, v)
		return err
	}

	t.Run("commits on success", func(t *testing.T) {
		err := Run(ctx, pg.DB, "probe", func(ctx context.Context) error {
			return insert(ctx, "a")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Run(ctx, pg.DB, "probe", func(ctx context.Context) error {
			if err := insert(ctx, "b"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})

	t.Run("nested runs join the outer transaction", func(t *testing.T) {
		boom := errors.New("outer failed")
		err := Run(ctx, pg.DB, "outer", func(ctx context.Context) error {
			outer, _ := From(ctx)
			if err := Run(ctx, pg.DB, "inner", func(ctx context.Context) error {
				inner, _ := From(ctx)
				assert.Same(t, outer, inner)
				return insert(ctx, "c")
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count(), "inner write rolled back with the outer transaction")
	})
}
