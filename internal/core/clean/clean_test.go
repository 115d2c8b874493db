package clean

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForMatchingStripsNoise(t *testing.T) {
	c := New()

	require.Equal(t, "check this out", c.ForMatching("check this out 🚀🚀 https://t.me/spam"))
	require.Equal(t, "contact me", c.ForMatching("contact me admin@example.com"))
	require.Equal(t, "Bitcoin UP", c.ForMatching("Bitcoin  UP ✨"))
}

func TestForMatchingPreservesCase(t *testing.T) {
	c := New()
	require.Equal(t, "BiTcOiN", c.ForMatching("BiTcOiN"))
}

func TestForEmbeddingNormalizes(t *testing.T) {
	c := New()

	require.Equal(t, "cafe prices rising", c.ForEmbedding("Café prices are rising!!!"))
	require.Equal(t, "wallet hacked", c.ForEmbedding("The wallet was hacked 😱"))
	require.Equal(t, "", c.ForEmbedding("123 456 !!! 🎉"))
}

func TestForEmbeddingDropsStopwords(t *testing.T) {
	c := New()
	require.Equal(t, "market crashed", c.ForEmbedding("the market crashed"))
}

func TestForEmbeddingCustomStopwords(t *testing.T) {
	c := &Cleaner{Stopwords: map[string]struct{}{"foo": {}}}
	require.Equal(t, "the bar", c.ForEmbedding("foo the bar"))
}

func TestStripEmoji(t *testing.T) {
	require.Equal(t, "hello  world", StripEmoji("hello 🌍world"))
	require.Equal(t, "plain text", StripEmoji("plain text"))
}

func TestEmptyInput(t *testing.T) {
	c := New()
	require.Equal(t, "", c.ForMatching(""))
	require.Equal(t, "", c.ForEmbedding(""))
}
