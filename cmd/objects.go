package cmd

import (
	"context"

	internalApp "github.com/haierkeys/fast-note-image-uploader/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)
	var prefix, marker string
	var maxKeys int

	objectsCmd := &cobra.Command{
		Use:   "objects",
		Short: "Inspect the configured object storage",
	}

	listCmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *internalApp.App) error {
				client, err := a.Uploader.Client()
				if err != nil {
					return err
				}
				res, err := client.ListObjects(ctx, prefix, marker, maxKeys)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	flags.bind(listCmd)
	listCmd.Flags().StringVar(&prefix, "prefix", "", "key prefix")
	listCmd.Flags().StringVar(&marker, "marker", "", "continue after this key")
	listCmd.Flags().IntVar(&maxKeys, "max", 100, "max keys")

	rmFlags := new(cliFlags)
	rmCmd := &cobra.Command{
		Use:   "rm <key>...",
		Short: "Delete stored objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rmFlags, func(ctx context.Context, a *internalApp.App) error {
				client, err := a.Uploader.Client()
				if err != nil {
					return err
				}
				res, err := client.DeleteObjects(ctx, args)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	rmFlags.bind(rmCmd)

	objectsCmd.AddCommand(listCmd, rmCmd)
	rootCmd.AddCommand(objectsCmd)
}
