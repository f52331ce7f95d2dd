package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazysauce/collector/internal/license"
)

var advertiserCmd = &cobra.Command{
	Use:   "advertiser",
	Short: "Manage advertiser accounts",
}

var (
	advName    string
	advHost    string
	advLicense string
)

var advertiserAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an advertiser and print its id and license",
	Long: `Creates an advertiser row in the shard directory. Tenants first seen
with this advertiser's id are placed on --host. A random license is
generated unless --license is given.

Example:
  lsctl advertiser add --name acme --host db2.internal`,
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		lic := advLicense
		if lic == "" {
			var err error
			if lic, err = license.Generate(); err != nil {
				return fmt.Errorf("generate license: %w", err)
			}
		}
		adv, err := e.dir.CreateAdvertiser(ctx, advName, lic, advHost)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "id:      %d\nlicense: %s\n", adv.ID, adv.License)
		return nil
	}),
}

func init() {
	advertiserAddCmd.Flags().StringVar(&advName, "name", "", "advertiser name")
	advertiserAddCmd.Flags().StringVar(&advHost, "host", "", "database host for new tenants (defaults to the directory host)")
	advertiserAddCmd.Flags().StringVar(&advLicense, "license", "", "license secret (generated when empty)")
	advertiserAddCmd.MarkFlagRequired("name")

	advertiserCmd.AddCommand(advertiserAddCmd)
	rootCmd.AddCommand(advertiserCmd)
}
