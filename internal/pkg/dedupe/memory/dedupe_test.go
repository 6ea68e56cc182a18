package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeenMarksAndDetectsRepeats(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	defer d.Close()

	seen, err := d.Seen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	require.False(t, seen, "primeira vez não é repetição")

	seen, err = d.Seen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	require.True(t, seen)

	seen, err = d.Seen(context.Background(), "evt-2", time.Minute)
	require.NoError(t, err)
	require.False(t, seen, "chaves diferentes não colidem")
}

func TestSeenExpiredKeyIsFresh(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	defer d.Close()

	_, err := d.Seen(context.Background(), "evt-1", time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	seen, err := d.Seen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	require.False(t, seen, "chave expirada volta a contar como nova")
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	d := NewDeduper()
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	// O store continua utilizável depois do Close; só a limpeza periódica para.
	seen, err := d.Seen(context.Background(), "evt-1", time.Minute)
	require.NoError(t, err)
	require.False(t, seen)
}
