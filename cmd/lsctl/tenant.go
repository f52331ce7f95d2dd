package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Inspect tenants",
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tenant with its shard id and host",
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		tenants, err := e.dir.ListTenants(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SHARD\tDOMAIN\tADVERTISER\tHOST\tCREATED")
		for _, t := range tenants {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", t.ShardID, t.Name, t.AdvertiserID, t.Host, t.CreatedAt.Format(time.DateTime))
		}
		return tw.Flush()
	}),
}

var provisionCmd = &cobra.Command{
	Use:   "provision <shard-id>...",
	Short: "Create missing shard databases for the given tenants",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid shard id %q", arg)
			}
			t, err := e.dir.ResolveTenant(ctx, id)
			if err != nil {
				return fmt.Errorf("shard %d: %w", id, err)
			}
			created, err := e.prov.Ensure(ctx, t.Host, t.ShardID)
			if err != nil {
				return fmt.Errorf("shard %d: %w", id, err)
			}
			state := "ready"
			if created {
				state = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", t.ShardID, t.Name, state)
		}
		return nil
	}),
}

func init() {
	tenantCmd.AddCommand(tenantListCmd)
	rootCmd.AddCommand(tenantCmd)
	rootCmd.AddCommand(provisionCmd)
}
