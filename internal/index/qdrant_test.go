package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointIDStable(t *testing.T) {
	a := pointID("CryptoNews", 42)
	b := pointID("CryptoNews", 42)
	require.Equal(t, a, b)

	require.NotEqual(t, a, pointID("CryptoNews", 43))
	require.NotEqual(t, a, pointID("TechFeed", 42))
}

func TestConnectDefaults(t *testing.T) {
	idx, err := Connect("", "")
	require.NoError(t, err)
	require.Equal(t, defaultCollection, idx.Collection())
	require.NoError(t, idx.Close())
}

func TestIndexNilSafety(t *testing.T) {
	var idx *Index
	require.NoError(t, idx.Close())
	require.Equal(t, "", idx.Collection())
	require.Error(t, idx.EnsureCollection(nil, 768))
	require.Error(t, idx.Upsert(nil, []Point{{Vector: []float32{1}}}))
	_, err := idx.Query(nil, []float32{1}, 5)
	require.Error(t, err)
}
