package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/netip"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/store"
)

type weighted[T any] struct {
	v      T
	weight float64
}

func pick[T any](items []weighted[T], rng *rand.Rand) T {
	var total float64
	for _, item := range items {
		total += item.weight
	}
	r := rng.Float64() * total
	for _, item := range items {
		r -= item.weight
		if r <= 0 {
			return item.v
		}
	}
	return items[len(items)-1].v
}

type source struct {
	channel    string
	subchannel string
	target     string
}

var sources = []weighted[source]{
	{source{"organic", "", ""}, 30},
	{source{"google", "cpc.brand", "running shoes"}, 20},
	{source{"google", "cpc.generic", "trail shoes"}, 12},
	{source{"facebook", "feed", ""}, 15},
	{source{"email", "newsletter", ""}, 10},
	{source{"affiliate", "partner.1", ""}, 8},
	{source{"tiktok", "", ""}, 5},
}

// funnel is the chance a visit reaches each step, in order.
var funnel = []struct {
	name   string
	chance float64
}{
	{"view_product", 0.55},
	{"add_to_cart", 0.35},
	{"buy_click", 0.40},
}

var (
	seedDomain     string
	seedAdvertiser int64
	seedVisits     int
	seedDays       int
	seedRandom     int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a tenant's shard with synthetic visits and conversions",
	Long: `Creates the tenant when needed and writes --visits visits spread over
the last --days days, each walking a simple product funnel. Visits that
reach buy_click carry revenue, so social proof has data to show.

Example:
  lsctl seed --domain shop.test --advertiser 1 --visits 5000`,
	RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
		adv, err := e.dir.ResolveAdvertiser(ctx, seedAdvertiser)
		if err != nil {
			return fmt.Errorf("advertiser %d: %w", seedAdvertiser, err)
		}
		tenant, _, err := e.dir.ResolveOrCreateTenant(ctx, seedDomain, adv)
		if err != nil {
			return err
		}
		if _, err := e.prov.Ensure(ctx, tenant.Host, tenant.ShardID); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Seeding %s (shard %d on %s)...\n", tenant.Name, tenant.ShardID, tenant.Host)
		st, err := seedShard(ctx, e.router, tenant, rand.New(rand.NewSource(seedRandom)), time.Now().UTC(), seedVisits, seedDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Done! %d visits, %d actions, %d sales (%s revenue).\n", st.visits, st.actions, st.sales, st.revenue.StringFixed(2))
		return nil
	}),
}

type seedStats struct {
	visits  int
	actions int
	sales   int
	revenue decimal.Decimal
}

func seedShard(ctx context.Context, r *store.Router, t directory.Tenant, rng *rand.Rand, now time.Time, visits, days int) (seedStats, error) {
	scope := store.Shard(t.Host, t.ShardID)
	start := now.AddDate(0, 0, -days)
	span := now.Sub(start)

	var st seedStats
	for i := 0; i < visits; i++ {
		at := start.Add(time.Duration(rng.Int63n(int64(span)))).Truncate(time.Second)
		src := pick(sources, rng)
		v := models.Visit{
			DomainKey:  t.ShardID,
			IP:         netip.AddrFrom4([4]byte{byte(rng.Intn(223) + 1), byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256))}),
			Variant:    rng.Intn(2) + 1,
			Channel:    src.channel,
			Subchannel: src.subchannel,
			Target:     src.target,
			IsBot:      rng.Float64() < 0.03,
			Engagement: 1,
			CreatedAt:  at,
		}
		if err := models.InsertVisit(ctx, r, scope, &v); err != nil {
			return st, err
		}
		st.visits++

		for _, step := range funnel {
			if rng.Float64() > step.chance {
				break
			}
			at = at.Add(time.Duration(rng.Intn(300)+5) * time.Second)
			if at.After(now) {
				break
			}
			a := models.Action{
				VisitKey:     v.Key,
				Name:         step.name,
				Variant:      v.Variant,
				IsEngagement: 1,
				CreatedAt:    at,
				RevenueAt:    models.NoRevenue,
			}
			if step.name == "buy_click" {
				a.Revenue = decimal.NewFromInt(int64(rng.Intn(15000) + 999)).Shift(-2)
				a.RevenueAt = at
				st.sales++
				st.revenue = st.revenue.Add(a.Revenue)
			}
			if err := models.InsertAction(ctx, r, scope, &a); err != nil {
				return st, err
			}
			st.actions++
		}
	}
	return st, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedDomain, "domain", "", "tenant domain to seed")
	seedCmd.Flags().Int64Var(&seedAdvertiser, "advertiser", 0, "advertiser id owning new tenants")
	seedCmd.Flags().IntVar(&seedVisits, "visits", 1000, "number of visits to generate")
	seedCmd.Flags().IntVar(&seedDays, "days", 30, "spread visits over this many days")
	seedCmd.Flags().Int64Var(&seedRandom, "seed", 42, "random seed")
	seedCmd.MarkFlagRequired("domain")
	seedCmd.MarkFlagRequired("advertiser")
	rootCmd.AddCommand(seedCmd)
}
