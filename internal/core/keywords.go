package core

import (
	"strings"

	"github.com/gramsift/gramsift/internal/core/clean"
)

// matchCleaner strips URLs, email addresses, and emoji before matching,
// so keywords buried in link noise do not count as hits.
var matchCleaner = clean.New()

// KeywordFilter keeps messages containing any of its keywords as a
// case-insensitive substring. An empty filter keeps everything.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter builds a filter from raw keywords, dropping blanks.
func NewKeywordFilter(keywords []string) *KeywordFilter {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	return &KeywordFilter{keywords: cleaned}
}

// Empty reports whether the filter passes everything through.
func (f *KeywordFilter) Empty() bool {
	return f == nil || len(f.keywords) == 0
}

// Keywords returns the normalized keyword list.
func (f *KeywordFilter) Keywords() []string {
	if f == nil {
		return nil
	}
	return f.keywords
}

// Match returns the keywords occurring in text, or nil when none match.
func (f *KeywordFilter) Match(text string) []string {
	if f.Empty() {
		return nil
	}
	lowered := strings.ToLower(matchCleaner.ForMatching(text))
	var matched []string
	for _, kw := range f.keywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Apply filters a batch, annotating kept messages with their matches.
// With an empty filter the batch is returned unchanged.
func (f *KeywordFilter) Apply(messages []Message) []Message {
	if f.Empty() {
		return messages
	}
	kept := make([]Message, 0, len(messages))
	for _, msg := range messages {
		matched := f.Match(msg.Text)
		if len(matched) == 0 {
			continue
		}
		msg.KeywordsMatched = matched
		kept = append(kept, msg)
	}
	return kept
}
