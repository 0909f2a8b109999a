// ABOUTME: Sync commands for Charm cloud backup of the memory archive
// ABOUTME: Provides status, backup, now, wipe, and keys management
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harper/secondme/internal/charm"
	"github.com/harper/secondme/internal/config"
	"github.com/harper/secondme/internal/storage/sqlite"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud backup",
		Long: `Manage the Charm cloud backup of the memory archive.

SecondMe uses Charm for SSH-key authenticated cloud backup. Snapshots
of memories and flowmos sync across devices linked to the same Charm
account. The local SQLite database stays the source of truth.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncBackupCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backup status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			id, err := client.ID()
			if err != nil {
				fmt.Println("Status: Not connected")
				fmt.Println("Run 'secondme sync keys' to check your SSH keys")
				return nil
			}

			fmt.Println("Status: Connected")
			fmt.Printf("User ID: %s\n", id)
			fmt.Printf("Host: %s\n", os.Getenv("CHARM_HOST"))

			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("failed to read backup status: %w", err)
			}
			fmt.Printf("Backed up: %d memories, %d flowmos\n", status.Memories, status.Flowmos)
			if !status.At.IsZero() {
				fmt.Printf("Last backup: %s\n", status.At.Format("2006-01-02 15:04:05 MST"))
			} else {
				fmt.Println("Last backup: never")
			}

			return nil
		},
	}
}

func newSyncBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot all memories and flowmos to the cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			db, err := sqlite.Open(filepath.Join(cfg.DataDir, "secondme.db"))
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			memories, err := sqlite.NewMemoryStore(db).All()
			if err != nil {
				return fmt.Errorf("failed to load memories: %w", err)
			}
			flowmos, err := sqlite.NewFlowmoStore(db).All()
			if err != nil {
				return fmt.Errorf("failed to load flowmos: %w", err)
			}

			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			fmt.Println("Backing up...")
			result, err := client.Backup(memories, flowmos)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			fmt.Printf("Backed up %d memories and %d flowmos\n", result.Memories, result.Flowmos)
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			fmt.Println("Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Println("Sync complete")
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe all local backup data (nuclear option)",
		Long: `Completely wipe all locally cached Charm backup data.

WARNING: This deletes the local backup cache only. Your cloud data
and the SQLite archive remain intact.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Println("This will wipe ALL local backup data!")
				fmt.Println("Run with --confirm to proceed")
				return nil
			}

			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}

			fmt.Println("Local backup data wiped successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			keys, err := client.GetAuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			if keys == "" {
				fmt.Println("No authorized keys found")
				return nil
			}

			fmt.Println("Authorized SSH keys:")
			fmt.Println(keys)

			return nil
		},
	}
}
