package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dotify/internal/app"
	"dotify/internal/config"
	"dotify/internal/logging"
)

var (
	// Global flags
	timeout    time.Duration
	jsonOutput bool

	// Promote flags
	email  string
	revoke bool
)

var rootCmd = &cobra.Command{
	Use:   "dotifyctl",
	Short: "Maintenance commands for a dotify deployment",
	Long: `dotifyctl runs one-off maintenance against the store configured by the
usual environment variables (MONGODB_URL, STORE_DRIVER, ...).`,
	SilenceUsage: true,
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant or revoke the admin role",
	Long: `Grant the admin role to the user with the given email, or revoke it.

Examples:
  dotifyctl promote --email ops@example.com
  dotifyctl promote --email ops@example.com --revoke`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			user, err := a.Accounts.SetAdmin(ctx, email, !revoke)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(user)
			}
			fmt.Printf("%s (%s) admin=%t\n", user.Email, user.ID.Hex(), user.IsAdmin)
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair dangling references and back-reference lists",
	Long: `Delete songs and albums whose artist is gone, clear song album references
to missing albums, rebuild artist and album membership lists and pull ids of
deleted documents from user libraries and playlists, then recount likes and
followers from the user sets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			report, err := a.Catalog.Reconcile(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(report)
			}
			if !report.Changed() {
				fmt.Println("Nothing to repair")
				return nil
			}
			fmt.Printf("Orphan songs deleted:   %d\n", report.OrphanSongsDeleted)
			fmt.Printf("Orphan albums deleted:  %d\n", report.OrphanAlbumsDeleted)
			fmt.Printf("Album refs cleared:     %d\n", report.AlbumRefsCleared)
			fmt.Printf("Artists repaired:       %d\n", report.ArtistsRepaired)
			fmt.Printf("Albums repaired:        %d\n", report.AlbumsRepaired)
			fmt.Printf("Dangling refs pulled:   %d\n", report.DanglingRefsPulled)
			fmt.Printf("Counters repaired:      %d\n", report.CountersRepaired)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort after this long")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	promoteCmd.Flags().StringVar(&email, "email", "", "Email of the user to change")
	promoteCmd.Flags().BoolVar(&revoke, "revoke", false, "Revoke the admin role instead of granting it")
	_ = promoteCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(promoteCmd, reconcileCmd)
}

// withApp loads configuration, connects the store and runs fn
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, logFile := logging.New(cfg.LoggingConfig)
	slog.SetDefault(logger)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
