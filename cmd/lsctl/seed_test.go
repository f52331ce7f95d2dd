package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/provision"
	"github.com/lazysauce/collector/internal/store"
)

func TestPick_RespectsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	items := []weighted[string]{{"never", 0}, {"always", 1}}
	for i := 0; i < 100; i++ {
		if got := pick(items, rng); got != "always" {
			t.Fatalf("pick = %q", got)
		}
	}
}

func TestSeedShard(t *testing.T) {
	ctx := context.Background()
	r, err := store.Open(ctx, store.Options{Driver: "sqlite", DataDir: t.TempDir(), DirectoryHost: "localhost"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })

	dir, err := directory.New(r, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	adv, err := dir.CreateAdvertiser(ctx, "acme", "lic", "")
	if err != nil {
		t.Fatal(err)
	}
	tenant, _, err := dir.ResolveOrCreateTenant(ctx, "shop.test", adv)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := provision.New(r, nil).Ensure(ctx, tenant.Host, tenant.ShardID); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st, err := seedShard(ctx, r, tenant, rand.New(rand.NewSource(42)), now, 200, 7)
	if err != nil {
		t.Fatalf("seedShard: %v", err)
	}
	if st.visits != 200 {
		t.Errorf("visits = %d, want 200", st.visits)
	}
	if st.actions < st.sales {
		t.Errorf("actions = %d, sales = %d", st.actions, st.sales)
	}

	proofs, err := models.RecentConversions(ctx, r, store.Shard(tenant.Host, tenant.ShardID), models.ProofQuery{
		Trigger: "buy_click",
		Since:   now.AddDate(0, 0, -8),
		Limit:   1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(proofs) != st.sales {
		t.Errorf("conversions = %d, want %d", len(proofs), st.sales)
	}
}
