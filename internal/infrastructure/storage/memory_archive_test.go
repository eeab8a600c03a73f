package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySettlementArchive(t *testing.T) {
	archive := NewMemorySettlementArchive()
	ctx := context.Background()

	_, ok, err := archive.Get(ctx, "acct-1", "DOC-1")
	require.NoError(t, err)
	assert.False(t, ok)

	doc := []byte("a\tb\n")
	require.NoError(t, archive.Put(ctx, "acct-1", "DOC-1", doc))
	doc[0] = 'z'

	got, ok, err := archive.Get(ctx, "acct-1", "DOC-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a\tb\n", string(got))
	assert.Equal(t, 1, archive.Len())

	_, ok, err = archive.Get(ctx, "acct-2", "DOC-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, archive.Put(ctx, "acct-1", "", doc))
}
