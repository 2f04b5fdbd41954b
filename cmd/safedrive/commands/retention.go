package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/pkg/metrics"
	"github.com/safedrive/safedrive-engine/pkg/retention"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Manage sync session retention",
}

var retentionRunFlags struct {
	folderID string
	schedule string
	dryRun   bool
}

var retentionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the retention schedule and delete superseded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if retentionRunFlags.folderID == "" {
			return fmt.Errorf("--folder-id is required")
		}

		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		token, err := cmdutil.RequireToken(cfg)
		if err != nil {
			return err
		}

		scheduleName := retentionRunFlags.schedule
		if scheduleName == "" {
			scheduleName = cfg.Retention.DefaultSchedule
		}
		schedule, err := retention.ParseSchedule(scheduleName)
		if err != nil {
			return err
		}

		ctx := context.Background()
		store, err := cmdutil.OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}

		byFolder, err := store.ListSessions(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		sessions := byFolder[retentionRunFlags.folderID]

		toDelete, err := retention.Evaluate(sessions, schedule, time.Now(), nil)
		if err != nil {
			return err
		}

		if retentionRunFlags.dryRun {
			cmdutil.PrintSuccessWithInfo(fmt.Sprintf("%d session(s) would be deleted", len(toDelete)))
			return nil
		}

		for _, id := range toDelete {
			if err := store.DeleteSession(ctx, token, id); err != nil {
				return fmt.Errorf("failed to delete session %s: %w", id, err)
			}
		}

		metrics.RecordRetentionDeletions(retentionRunFlags.folderID, len(toDelete))
		cmdutil.PrintSuccess(fmt.Sprintf("%d session(s) deleted under schedule %q", len(toDelete), schedule))
		return nil
	},
}

func init() {
	retentionRunCmd.Flags().StringVar(&retentionRunFlags.folderID, "folder-id", "", "Remote folder ID to evaluate retention for")
	retentionRunCmd.Flags().StringVar(&retentionRunFlags.schedule, "schedule", "", "Retention schedule name (default: the account's configured default)")
	retentionRunCmd.Flags().BoolVar(&retentionRunFlags.dryRun, "dry-run", false, "Report what would be deleted without deleting")

	retentionCmd.AddCommand(retentionRunCmd)
}
