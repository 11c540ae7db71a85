package main

import (
	"fmt"

	"github.com/jonathan/hiring-pipeline/internal/observability"
	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedName     string
	seedPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin account if it does not exist",
	Long:  "Create an admin account. Admins cannot self-register through the API, so this is how the first one is made.",
	RunE:  runSeedAdmin,
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "Admin email (required)")
	seedAdminCmd.Flags().StringVar(&seedName, "name", "Administrator", "Admin display name")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password (required)")
	_ = seedAdminCmd.MarkFlagRequired("email")
	_ = seedAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedAdminCmd)
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	admin, created, err := a.accounts.EnsureAdmin(ctx, seedName, seedEmail, seedPassword)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !created {
		_, _ = fmt.Fprintln(out, "admin already exists")
	}
	observability.NewPrinter(out).PrintActor(admin)
	return nil
}
