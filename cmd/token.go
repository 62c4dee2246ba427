package cmd

import (
	"fmt"

	internalApp "github.com/haierkeys/fast-note-image-uploader/internal/app"
	pkgapp "github.com/haierkeys/fast-note-image-uploader/pkg/app"

	"github.com/spf13/cobra"
)

func init() {
	flags := new(cliFlags)

	tokenCmd := &cobra.Command{
		Use:   "token <client-name>",
		Short: "Issue an API token for an editor client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runEnv := &runFlags{dir: flags.dir, config: flags.config}
			if err := resolveConfig(runEnv); err != nil {
				return err
			}
			cfg, _, err := internalApp.LoadConfig(runEnv.config)
			if err != nil {
				return err
			}
			tm := pkgapp.NewTokenManager(pkgapp.TokenConfig{
				SecretKey: cfg.Security.AuthTokenKey,
				Issuer:    pkgapp.DefaultTokenIssuer,
				Expiry:    cfg.GetTokenExpiry(),
			})
			if !tm.Enabled() {
				return fmt.Errorf("security.auth-token-key is empty, authentication is disabled")
			}
			token, err := tm.Generate(args[0], "")
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	flags.bind(tokenCmd)
	rootCmd.AddCommand(tokenCmd)
}
