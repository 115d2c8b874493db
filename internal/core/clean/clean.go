// Package clean normalizes scraped message text for keyword matching and
// embedding. Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 strip URLs, email addresses and emoji
// 3 Unicode NFKD normalization and case folding
// 4 remove combining marks and format chars
// 5 strip punctuation and digits
// 6 collapse whitespace and trim
// 7 drop stopwords
package clean

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// Cleaner is concurrency safe when used with the pool below.
type Cleaner struct {
	Stopwords map[string]struct{}
}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
		)
	},
}

// defaultStopwords is the small English set applied before embedding.
var defaultStopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"if", "in", "into", "is", "it", "no", "not", "of", "on", "or",
		"such", "that", "the", "their", "then", "there", "these", "they",
		"this", "to", "was", "will", "with",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// New constructs a Cleaner with the default stopword set.
func New() *Cleaner {
	return &Cleaner{Stopwords: defaultStopwords}
}

// ForMatching prepares text for keyword matching: noise removal only, no
// case folding or stopword drop, so substring matches stay intuitive.
func (c *Cleaner) ForMatching(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	s = urlPattern.ReplaceAllString(s, " ")
	s = emailPattern.ReplaceAllString(s, " ")
	s = StripEmoji(s)
	return collapseSpaces(s)
}

// ForEmbedding returns the fully normalized form used as embedding input.
func (c *Cleaner) ForEmbedding(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")
	s = urlPattern.ReplaceAllString(s, " ")
	s = emailPattern.ReplaceAllString(s, " ")
	s = StripEmoji(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	ns = stripPunctDigits(ns)
	ns = collapseSpaces(ns)
	return c.dropStopwords(ns)
}

// StripEmoji removes emoji and pictographic symbols.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // misc symbols, emoticons, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // dingbats and misc symbols
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	}
	return false
}

func stripPunctDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsDigit(r) || unicode.IsSymbol(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Cleaner) dropStopwords(s string) string {
	if s == "" {
		return s
	}
	stop := c.Stopwords
	if stop == nil {
		stop = defaultStopwords
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, ok := stop[f]; ok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// collapseSpaces converts whitespace runs to a single ASCII space and trims.
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
