package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gramsift/gramsift/internal/core"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage source profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		profiles, err := db.ListProfiles(ctx)
		if err != nil {
			return err
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}

		fmt.Println("Profiles:")
		for _, record := range profiles {
			suffix := ""
			if record.IsBuiltin {
				suffix = " (builtin)"
			}
			fmt.Printf("- %s%s\n", record.Profile.Name, suffix)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("profile name is required")
		}

		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup; errors logged internally

		record, err := loadProfileRecord(ctx, db, name)
		if err != nil {
			return err
		}

		printProfile(record.Profile, record.IsBuiltin)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func printProfile(profile core.Profile, builtin bool) {
	fmt.Printf("Profile: %s\n", profile.Name)
	if builtin {
		fmt.Println("Type: builtin")
	}
	if profile.Description != "" {
		fmt.Printf("Description: %s\n", profile.Description)
	}
	if len(profile.Sources) > 0 {
		names := make([]string, 0, len(profile.Sources))
		for _, id := range profile.Sources {
			names = append(names, string(id))
		}
		fmt.Printf("Sources: %s\n", strings.Join(names, ", "))
	}
	if len(profile.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(profile.Keywords, ", "))
	}
	if profile.Conservative {
		fmt.Println("Pacing: conservative")
	}
}
