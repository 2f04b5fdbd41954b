package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/pkg/binformat"
	"github.com/safedrive/safedrive-engine/pkg/block"
	"github.com/safedrive/safedrive-engine/pkg/cache"
	"github.com/safedrive/safedrive-engine/pkg/session"
	"github.com/safedrive/safedrive-engine/pkg/upload"
)

var syncFlags struct {
	folderID string
	name     string
	beta     bool
}

var syncCmd = &cobra.Command{
	Use:   "sync <path>",
	Short: "Chunk, encrypt, and upload a folder as a new sync session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderPath := args[0]

		if syncFlags.folderID == "" {
			return fmt.Errorf("--folder-id is required")
		}
		name := syncFlags.name
		if name == "" {
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

		channel := block.ChannelStable
		if syncFlags.beta {
			channel = block.ChannelBeta
		}

		uploadCfg := upload.DefaultConfig()
		uploadCfg.ItemLimit = cfg.Upload.ItemLimit
		uploadCfg.SizeLimit = cfg.Upload.SizeLimit.Int64()
		uploadCfg.MaxRetries = cfg.Upload.MaxRetries
		uploadCfg.ServiceUnavailableRetries = cfg.Upload.ServiceUnavailableRetries
		uploadCfg.QueueDepth = cfg.Upload.QueueDepth

		stats, rerr := upload.Recover(ctx, store, token, blockCache, uploadCfg)
		if rerr != nil {
			return fmt.Errorf("startup recovery failed: %w", rerr)
		}
		if stats.BlocksFound > 0 {
			cmdutil.PrintSuccessWithInfo(fmt.Sprintf("recovered %d unconfirmed block(s) from a prior run", stats.BlocksUploaded))
		}

		opts := session.BuildOptions{
			FolderPath: folderPath,
			FolderID:   syncFlags.folderID,
			Name:       name,
			Version:    binformat.Version(cfg.SyncVersion),
			Channel:    channel,
			Production: !syncFlags.beta,
			Progress:   printProgress,
			Issue:      printIssue,
		}

		meta, err := session.Build(ctx, store, blockCache, uploadCfg, token, keys, opts)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cmdutil.PrintSuccessWithInfo(
			fmt.Sprintf("Sync session '%s' complete", meta.Name),
			fmt.Sprintf("  Folder: %s", meta.FolderID),
			fmt.Sprintf("  Size:   %d bytes", meta.Size),
		)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncFlags.folderID, "folder-id", "", "Remote folder ID to sync under (see 'safedrive add')")
	syncCmd.Flags().StringVar(&syncFlags.name, "name", "", "Name for the new sync session (e.g. a UUID)")
	syncCmd.Flags().BoolVar(&syncFlags.beta, "beta", false, "Mark blocks/sessions as produced by a beta build")
}

func printProgress(estimated, processed, lastDelta uint64, percent float64, done bool) {
	if done {
		fmt.Printf("\r%-60s\n", "done.")
		return
	}
	fmt.Printf("\r%8.2f%%  %d/%d bytes", percent, processed, estimated)
}

func printIssue(message string) {
	fmt.Printf("\nwarning: %s\n", message)
}
