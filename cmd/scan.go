package cmd

import (
	"context"

	internalApp "github.com/haierkeys/fast-note-image-uploader/internal/app"
	"github.com/haierkeys/fast-note-image-uploader/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)
	var trashLocal bool

	scanCmd := &cobra.Command{
		Use:   "scan <note.md>...",
		Short: "Upload the local images of notes and rewrite their links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *internalApp.App) error {
				reports := make([]*service.ScanReport, 0, len(args))
				var firstErr error
				for _, note := range args {
					report, err := a.Reconciler.HandleScan(ctx, note, service.ScanOptions{TrashLocal: trashLocal})
					reports = append(reports, report)
					if err != nil && firstErr == nil {
						firstErr = err
					}
				}
				if err := printJSON(reports); err != nil {
					return err
				}
				return firstErr
			})
		},
	}
	flags.bind(scanCmd)
	scanCmd.Flags().BoolVar(&trashLocal, "trash", false, "move uploaded local images to the vault trash")
	rootCmd.AddCommand(scanCmd)
}
