package cmd

import (
	"context"
	"fmt"

	internalApp "github.com/haierkeys/fast-note-image-uploader/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)
	var all bool

	backupCmd := &cobra.Command{
		Use:   "backup [note.md]...",
		Short: "Refresh the backup copy of notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("give at least one note or --all")
			}
			return withApp(flags, func(ctx context.Context, a *internalApp.App) error {
				notes := args
				if all {
					found, err := a.Backup.NotesWithBackup(ctx)
					if err != nil {
						return err
					}
					notes = found
				}
				for _, note := range notes {
					if err := a.Reconciler.RefreshBackup(ctx, note); err != nil {
						return fmt.Errorf("%s: %w", note, err)
					}
					fmt.Println(a.Backup.ShadowPath(note))
				}
				return nil
			})
		},
	}
	flags.bind(backupCmd)
	backupCmd.Flags().BoolVar(&all, "all", false, "refresh every note that has a backup folder")
	rootCmd.AddCommand(backupCmd)
}
