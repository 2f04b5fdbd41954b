package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/session"
)

var restoreFlags struct {
	folderID string
	name     string
}

var restoreCmd = &cobra.Command{
	Use:   "restore <dest-path>",
	Short: "Fetch, decrypt, and unpack a sync session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		destPath := args[0]

		if restoreFlags.folderID == "" {
			return fmt.Errorf("--folder-id is required")
		}
		if restoreFlags.name == "" {
			return fmt.Errorf("--name is required")
		}

		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		token, err := cmdutil.RequireToken(cfg)
		if err != nil {
			return err
		}

		keys, err := cmdutil.LoadKeys(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := cmdutil.OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}

		blockCache, err := cache.Open(cache.Config{Dir: cfg.Cache.Dir, Shard: cfg.Cache.Shard})
		if err != nil {
			return err
		}
		defer blockCache.Close()

		opts := session.RestoreOptions{
			DestPath:  destPath,
			FolderID:  restoreFlags.folderID,
			SessionID: restoreFlags.name,
			Name:      restoreFlags.name,
			Progress:  printProgress,
			Issue:     printIssue,
		}

		if err := session.Restore(ctx, store, blockCache, token, keys, opts); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Session '%s' restored to %s", restoreFlags.name, destPath))
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreFlags.folderID, "folder-id", "", "Remote folder ID the session belongs to")
	restoreCmd.Flags().StringVar(&restoreFlags.name, "name", "", "Name of the sync session to restore")
}
