package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	t.Run("no transaction", func(t *testing.T) {
		_, ok := From(context.Background())
		assert.False(t, ok)
		assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
	})

	t.Run("transaction round trips", func(t *testing.T) {
		tx := new(sql.Tx)
		got, ok := From(WithTx(context.Background(), tx))
		require.True(t, ok)
		assert.Same(t, tx, got)
	})

	t.Run("exec prefers the transaction", func(t *testing.T) {
		tx := new(sql.Tx)
		assert.Same(t, tx, Exec(WithTx(context.Background(), tx), nil))
	})
}

func TestRunInTx(t *testing.T) {
	t.Run("direct runs fn as is", func(t *testing.T) {
		boom := errors.New("boom")
		err := Direct{}.RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := From(ctx)
			assert.False(t, ok)
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		outer := new(sql.Tx)
		called := false
		err := NewSQLRunner(nil).RunInTx(WithTx(context.Background(), outer), func(ctx context.Context) error {
			got, _ := From(ctx)
			assert.Same(t, outer, got)
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	})
}
