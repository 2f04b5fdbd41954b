package commands

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/safedrive/safedrive-engine/cmd/safedrive/cmdutil"
	"github.com/safedrive/safedrive-engine/internal/cli/timeutil"
	"github.com/safedrive/safedrive-engine/pkg/remote"
)

var listFlags struct {
	sessions bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered folders, or their sync sessions",
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

		if listFlags.sessions {
			return listSessions(ctx, store, token)
		}
		return listFolders(ctx, store, token)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listFlags.sessions, "sessions", false, "List sync sessions instead of folders")
}

type folderTable []remote.Folder

func (t folderTable) Headers() []string {
	return []string{"ID", "NAME", "PATH", "ENCRYPTED", "SYNCING", "ADDED"}
}

func (t folderTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, f := range t {
		rows = append(rows, []string{
			f.ID, f.Name, f.Path,
			cmdutil.BoolToYesNo(f.Encrypted),
			cmdutil.BoolToYesNo(f.Syncing),
			timeutil.FormatTime(f.Added.Format("2006-01-02T15:04:05Z07:00")),
		})
	}
	return rows
}

func listFolders(ctx context.Context, store remote.Store, token remote.Token) error {
	folders, err := store.ListFolders(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	return cmdutil.PrintOutput(os.Stdout, folders, len(folders) == 0, "No folders registered.", folderTable(folders))
}

type sessionRow struct {
	remote.SessionInfo
	FolderID string
}

type sessionTable []sessionRow

func (t sessionTable) Headers() []string {
	return []string{"FOLDER", "ID", "NAME", "SIZE", "TIME"}
}

func (t sessionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{
			s.FolderID, s.ID, s.Name,
			fmt.Sprintf("%d", s.Size),
			timeutil.FormatTime(s.Time.Format("2006-01-02T15:04:05Z07:00")),
		})
	}
	return rows
}

func listSessions(ctx context.Context, store remote.Store, token remote.Token) error {
	byFolder, err := store.ListSessions(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	folderIDs := make([]string, 0, len(byFolder))
	for id := range byFolder {
		folderIDs = append(folderIDs, id)
	}
	sort.Strings(folderIDs)

	var rows sessionTable
	for _, id := range folderIDs {
		for _, s := range byFolder[id] {
			rows = append(rows, sessionRow{SessionInfo: s, FolderID: id})
		}
	}

	return cmdutil.PrintOutput(os.Stdout, byFolder, len(rows) == 0, "No sync sessions found.", rows)
}
