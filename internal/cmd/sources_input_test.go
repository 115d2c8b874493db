package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateSource(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"cryptonews", false},
		{"Crypto_News_2024", false},
		{"a", false},
		{"bad name", true},
		{"bad-name", true},
		{"@prefixed", true},
		{"", true},
	}

	for _, tc := range cases {
		err := validateSource(tc.name)
		if tc.wantErr && err == nil {
			t.Fatalf("expected error for %q", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.name, err)
		}
	}
}

func TestResolveSourcesPositional(t *testing.T) {
	sources, err := resolveSources([]string{"@cryptonews", " techtalk ", ""}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0] != "cryptonews" || sources[1] != "techtalk" {
		t.Fatalf("unexpected sources: %v", sources)
	}
}

func TestResolveSourcesEmpty(t *testing.T) {
	if _, err := resolveSources(nil, ""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestResolveSourcesFileConflict(t *testing.T) {
	if _, err := resolveSources([]string{"cryptonews"}, "sources.txt"); err == nil {
		t.Fatal("expected error when combining positional sources with a file")
	}
}

func TestReadSourcesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.txt")
	content := "# watchlist\n@cryptonews\n\ntechtalk\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	sources, err := readSourcesFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0] != "cryptonews" || sources[1] != "techtalk" {
		t.Fatalf("unexpected sources: %v", sources)
	}
}

func TestReadSourcesFileBadEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte("good\nbad source\n"), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := readSourcesFile(path); err == nil {
		t.Fatal("expected error for invalid source entry")
	}
}
