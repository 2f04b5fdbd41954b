package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/internal/cli/output"
	"github.com/safedrive/safedrive-engine/internal/cli/timeutil"
	"github.com/safedrive/safedrive-engine/pkg/cache"
)

// monitorCmd is a one-shot local status display: account state, storage
// usage, and per-folder syncing flags as currently reported by the remote
// store, plus the local cache's on-disk size. It does not watch for
// changes; run it again to refresh.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show account and folder sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		token, err := cmdutil.RequireToken(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := cmdutil.OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}

		status, err := store.AccountStatus(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to read account status: %w", err)
		}
		details, err := store.AccountDetails(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to read account details: %w", err)
		}
		folders, err := store.ListFolders(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}

		var cacheSize int64 = -1
		if blockCache, err := cache.Open(cache.Config{Dir: cfg.Cache.Dir, Shard: cfg.Cache.Shard}); err == nil {
			defer blockCache.Close()
			if n, err := blockCache.Size(); err == nil {
				cacheSize = n
			}
		}

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		if format != output.FormatTable {
			summary := struct {
				Status  any    `json:"status" yaml:"status"`
				Details any    `json:"details" yaml:"details"`
				Folders any    `json:"folders" yaml:"folders"`
				CacheBytes int64 `json:"cache_bytes" yaml:"cache_bytes"`
			}{status, details, folders, cacheSize}
			return cmdutil.PrintOutput(os.Stdout, summary, false, "", nil)
		}

		pairs := [][2]string{
			{"Account state", status.State},
			{"Host", fmt.Sprintf("%s:%d", status.Host, status.Port)},
			{"User", status.User},
			{"Storage used", fmt.Sprintf("%d / %d bytes", details.Used, details.Assigned)},
			{"Plan expires", details.Expires.Format(timeutil.LocalTimeFormat)},
			{"Local cache", fmt.Sprintf("%d bytes", cacheSize)},
		}
		if err := output.SimpleTable(os.Stdout, pairs); err != nil {
			return err
		}

		fmt.Println()
		return cmdutil.PrintOutput(os.Stdout, folders, len(folders) == 0, "No folders registered.", folderTable(folders))
	},
}
