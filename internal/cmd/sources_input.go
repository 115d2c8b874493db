package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/gramsift/gramsift/internal/core"
)

var sourcePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

func validateSource(name string) error {
	if !sourcePattern.MatchString(name) {
		return fmt.Errorf("invalid source %q: must be 1-64 letters, digits, or underscores", name)
	}
	return nil
}

// resolveSources builds the ordered source list from positional args or a
// file. A leading @ is stripped so channel links can be pasted directly.
func resolveSources(positional []string, sourcesFile string) ([]core.SourceID, error) {
	trimmed := strings.TrimSpace(sourcesFile)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional sources with --sources-file")
		}
		return readSourcesFile(trimmed)
	}

	sources := make([]core.SourceID, 0, len(positional))
	for _, raw := range positional {
		name := strings.TrimPrefix(strings.TrimSpace(raw), "@")
		if name == "" {
			continue
		}
		if err := validateSource(name); err != nil {
			return nil, err
		}
		sources = append(sources, core.SourceID(name))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	return sources, nil
}

func readSourcesFile(path string) ([]core.SourceID, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	sources := make([]core.SourceID, 0)
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		name := strings.TrimPrefix(raw, "@")
		if err := validateSource(name); err != nil {
			return nil, fmt.Errorf("invalid source on line %d: %w", line, err)
		}
		sources = append(sources, core.SourceID(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources found")
	}
	return sources, nil
}
