package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/store"
)

var affiliateCmd = &cobra.Command{
	Use:   "affiliate",
	Short: "Manage a tenant's affiliate channels",
}

var (
	affDomain     string
	affName       string
	affChannel    string
	affSubchannel string
	affPixel      string
	affRevShare   string
	affCPA        string
)

var affiliateAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an affiliate for a channel or channel/subchannel pair",
	Long: `Adds an affiliate row to the tenant's shard. A non-empty --pixel puts
conversions from that channel in pixel mode.`,
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		revShare, err := decimal.NewFromString(affRevShare)
		if err != nil {
			return fmt.Errorf("invalid --revshare: %w", err)
		}
		cpa, err := decimal.NewFromString(affCPA)
		if err != nil {
			return fmt.Errorf("invalid --cpa: %w", err)
		}
		t, err := e.dir.TenantByName(ctx, affDomain)
		if err != nil {
			return fmt.Errorf("domain %s: %w", affDomain, err)
		}
		if _, err := e.prov.Ensure(ctx, t.Host, t.ShardID); err != nil {
			return err
		}
		a := &models.Affiliate{
			Name:       affName,
			Channel:    affChannel,
			Subchannel: affSubchannel,
			RevShare:   revShare,
			CPA:        cpa,
			Pixel:      affPixel,
		}
		if err := models.InsertAffiliate(ctx, e.router, store.Shard(t.Host, t.ShardID), a); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "affiliate %d added to %s\n", a.Key, t.Name)
		return nil
	}),
}

func init() {
	f := affiliateAddCmd.Flags()
	f.StringVar(&affDomain, "domain", "", "tenant domain")
	f.StringVar(&affName, "name", "", "affiliate name")
	f.StringVar(&affChannel, "channel", "", "channel the affiliate owns")
	f.StringVar(&affSubchannel, "subchannel", "", "narrow to one subchannel")
	f.StringVar(&affPixel, "pixel", "", "conversion pixel URL")
	f.StringVar(&affRevShare, "revshare", "0", "revenue share")
	f.StringVar(&affCPA, "cpa", "0", "cost per acquisition")
	affiliateAddCmd.MarkFlagRequired("domain")
	affiliateAddCmd.MarkFlagRequired("name")
	affiliateAddCmd.MarkFlagRequired("channel")

	affiliateCmd.AddCommand(affiliateAddCmd)
	rootCmd.AddCommand(affiliateCmd)
}
