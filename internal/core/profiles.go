package core

import (
	"strings"
	"time"
)

// Profile bundles sources and keywords for a named scraping run.
type Profile struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Sources      []SourceID `json:"sources,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	Conservative bool       `json:"conservative,omitempty"`
}

// ProfileRecord wraps a profile with persistence metadata.
type ProfileRecord struct {
	Profile   Profile
	IsBuiltin bool
	UpdatedAt time.Time
}

// BuiltInProfiles provides default profiles bundled with gramsift.
var BuiltInProfiles = []Profile{
	{
		Name:        "crypto",
		Description: "Cryptocurrency discussion channels filtered to coin mentions",
		Sources:     []SourceID{"CryptoNews", "BitcoinTalks", "AltcoinDaily"},
		Keywords:    []string{"bitcoin", "ethereum", "wallet", "airdrop"},
	},
	{
		Name:        "tech",
		Description: "Technology news channels, unfiltered",
		Sources:     []SourceID{"TechCrunchRU", "HackerNewsFeed"},
	},
	{
		Name:         "cautious",
		Description:  "Low-volume probe of a single channel with conservative pacing",
		Sources:      []SourceID{"TechCrunchRU"},
		Conservative: true,
	},
}

// FindBuiltInProfile looks up a built-in profile by name.
func FindBuiltInProfile(name string) (*Profile, bool) {
	needle := strings.TrimSpace(strings.ToLower(name))
	if needle == "" {
		return nil, false
	}

	for _, profile := range BuiltInProfiles {
		if strings.EqualFold(profile.Name, needle) {
			copied := profile
			return &copied, true
		}
	}

	return nil, false
}
