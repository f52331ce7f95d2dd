package ingest

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lazysauce/collector/internal/analytics"
	"github.com/lazysauce/collector/internal/datacenter"
	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/provision"
	"github.com/lazysauce/collector/internal/ref"
	"github.com/lazysauce/collector/internal/store"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fixture struct {
	svc *Service
	adv directory.Advertiser
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, err := store.Open(context.Background(), store.Options{
		Driver:        "sqlite",
		DataDir:       t.TempDir(),
		DirectoryHost: "localhost",
	}, nil)
	if err != nil {
		t.Fatalf("open router: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	dir, err := directory.New(r, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	adv, err := dir.CreateAdvertiser(context.Background(), "acme", "lic-123", "")
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{adv: adv, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.svc = &Service{
		Router:      r,
		Directory:   dir,
		Provisioner: provision.New(r, nil),
		Now:         func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) aid() string { return strconv.FormatInt(f.adv.ID, 10) }

func (f *fixture) hit(t *testing.T, pageURL string) (HitResponse, ref.Reference) {
	t.Helper()
	resp, err := f.svc.Hit(context.Background(), HitRequest{
		URL:          pageURL,
		AdvertiserID: f.aid(),
		License:      "lic-123",
		ClientIP:     "203.0.113.7",
		UserAgent:    chromeUA,
		Variant:      1,
		Engagement:   1,
	})
	if err != nil {
		t.Fatalf("Hit: %v", err)
	}
	r, err := ref.Parse(resp.Hash, 3)
	if err != nil {
		t.Fatalf("hit reference %q: %v", resp.Hash, err)
	}
	return resp, r
}

func (f *fixture) scope(r ref.Reference) store.Scope {
	return store.Shard("localhost", r.ShardID)
}

func count(t *testing.T, rt *store.Router, s store.Scope, query string, args ...any) int {
	t.Helper()
	var n int
	err := rt.Query(context.Background(), s, func(rows *sql.Rows) error {
		return rows.Scan(&n)
	}, query, args...)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func wantValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("err = %v (%T), want ValidationError", err, err)
	}
	if msg != "" && v.Msg != msg {
		t.Errorf("message = %q, want %q", v.Msg, msg)
	}
}

// ── Hit ─────────────────────────────────────────────────────────────

func TestHit_CreatesTenantAndVisit(t *testing.T) {
	f := newFixture(t)
	resp, r := f.hit(t, "https://www.Shop.test/landing?lz_c=facebook&lz_s=spring_sale_&k=shoes&campid=77")

	if resp.Domain != "shop.test" {
		t.Errorf("Domain = %q", resp.Domain)
	}
	if resp.Channel != "facebook" || resp.Subchannel != "spring.sale" {
		t.Errorf("attribution = %q / %q", resp.Channel, resp.Subchannel)
	}
	if !resp.Created || resp.IsBot != 0 {
		t.Errorf("Created = %v, IsBot = %d", resp.Created, resp.IsBot)
	}
	if ref.VerifyChecksum(resp.PKey) != r.VisitKey {
		t.Errorf("pkey %q does not verify to visit %d", resp.PKey, r.VisitKey)
	}
	if r.SubKey != f.now.UnixMilli() {
		t.Errorf("sub key = %d, want issue time %d", r.SubKey, f.now.UnixMilli())
	}
	if resp.Screen != "0x0" || resp.Browser != "Chrome" {
		t.Errorf("Screen = %q Browser = %q", resp.Screen, resp.Browser)
	}

	v, err := models.GetVisit(context.Background(), f.svc.Router, f.scope(r), r.VisitKey)
	if err != nil {
		t.Fatal(err)
	}
	if v.Target != "shoes-.-77" || v.IP.String() != "203.0.113.7" || v.DomainKey != r.ShardID {
		t.Errorf("visit = %+v", v)
	}
}

func TestHit_ExistingKeyReusesTenantAndVisit(t *testing.T) {
	f := newFixture(t)
	first, r1 := f.hit(t, "https://shop.test/a")

	resp, err := f.svc.Hit(context.Background(), HitRequest{
		URL:          "https://shop.test/b",
		AdvertiserID: f.aid(),
		License:      "lic-123",
		Key:          first.PKey,
	})
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := ref.Parse(resp.Hash, 3)
	if r2.ShardID != r1.ShardID || r2.VisitKey != r1.VisitKey || resp.Created {
		t.Errorf("second hit %+v created=%v, want shard %d visit %d", r2, resp.Created, r1.ShardID, r1.VisitKey)
	}
	if n := count(t, f.svc.Router, store.Directory(), "SELECT COUNT(*) FROM domain WHERE name = ?", "shop.test"); n != 1 {
		t.Errorf("domain rows = %d, want 1", n)
	}
	if n := count(t, f.svc.Router, f.scope(r1), "SELECT COUNT(*) FROM visit"); n != 1 {
		t.Errorf("visit rows = %d, want 1", n)
	}
}

func TestHit_SameHostDifferentVisitsShareShard(t *testing.T) {
	f := newFixture(t)
	_, r1 := f.hit(t, "https://shop.test/a?c=google")
	_, r2 := f.hit(t, "https://shop.test/a?c=bing")
	if r1.ShardID != r2.ShardID || r1.VisitKey == r2.VisitKey {
		t.Errorf("r1 = %+v, r2 = %+v", r1, r2)
	}
}

func TestHit_Blocked(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Hit(context.Background(), HitRequest{
		URL: "https://besthomewarranty.deals/redr?x=1",
		Key: "123",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Blocked || resp.Hash != "redr_hash" || resp.PKey != "123" {
		t.Errorf("resp = %+v", resp)
	}
	if n := count(t, f.svc.Router, store.Directory(), "SELECT COUNT(*) FROM domain"); n != 0 {
		t.Errorf("blocked hit created %d tenants", n)
	}
}

func TestHit_AdvertiserErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Hit(ctx, HitRequest{URL: "https://shop.test", AdvertiserID: "abc"})
	wantValidation(t, err, "Advertiser ID invalid: abc")

	_, err = f.svc.Hit(ctx, HitRequest{URL: "https://shop.test", AdvertiserID: "999", License: "x"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Msg != "Advertiser not found: 999" {
		t.Errorf("unknown advertiser err = %v", err)
	}

	_, err = f.svc.Hit(ctx, HitRequest{URL: "https://shop.test", AdvertiserID: f.aid(), License: "wrong"})
	var ae *AuthError
	if !errors.As(err, &ae) || ae.Msg != "Invalid license for advertiser: "+f.aid() {
		t.Errorf("bad license err = %v", err)
	}
}

func TestHit_InvalidKeyAndMissingURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Hit(ctx, HitRequest{URL: "https://shop.test", AdvertiserID: f.aid(), License: "lic-123", Key: "429"})
	wantValidation(t, err, msgInvalidKey)

	_, err = f.svc.Hit(ctx, HitRequest{AdvertiserID: f.aid(), License: "lic-123"})
	wantValidation(t, err, msgMissingParams)

	_, err = f.svc.Hit(ctx, HitRequest{URL: "https://shop.test", AdvertiserID: f.aid(), License: "lic-123", Key: ref.Checksum(555)})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("unknown visit key err = %v, want NotFoundError", err)
	}
}

func TestHit_UnparseableURLMapsToUnknown(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.hit(t, "not a url")
	if resp.Domain != "unknown" {
		t.Errorf("Domain = %q, want unknown", resp.Domain)
	}
}

func TestHit_BotFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Hit(ctx, HitRequest{
		URL: "https://shop.test", AdvertiserID: f.aid(), License: "lic-123",
		UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IsBot != 1 {
		t.Error("crawler user agent should be flagged")
	}

	dc := datacenter.New([]datacenter.Source{{Name: "test", Static: []string{"198.51.100.0/24"}}}, nil)
	if err := dc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	f.svc.Datacenter = dc
	resp, err = f.svc.Hit(ctx, HitRequest{
		URL: "https://shop.test", AdvertiserID: f.aid(), License: "lic-123",
		UserAgent: chromeUA, ClientIP: "10.0.0.1", IP: "198.51.100.20",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IsBot != 1 {
		t.Error("datacenter address (explicit override) should be flagged")
	}
}

// ── Action ──────────────────────────────────────────────────────────

func TestAction_SameNameReusesHash(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	ctx := context.Background()

	a1, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "add_to_cart|sku=1"})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "add_to_cart|sku=2"})
	if err != nil {
		t.Fatal(err)
	}
	if a1.Hash != a2.Hash || !a2.Reused {
		t.Errorf("a1 = %+v, a2 = %+v", a1, a2)
	}
	if a1.PKey != hit.PKey || a1.Status != "success" {
		t.Errorf("a1 = %+v", a1)
	}
	if n := count(t, f.svc.Router, f.scope(r), "SELECT COUNT(*) FROM action WHERE name = ?", "add_to_cart"); n != 1 {
		t.Errorf("action rows = %d, want 1", n)
	}
}

func TestAction_DifferentNamesIncreasingHashes(t *testing.T) {
	f := newFixture(t)
	hit, _ := f.hit(t, "https://shop.test")
	ctx := context.Background()

	a1, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "view"})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "buy_click"})
	if err != nil {
		t.Fatal(err)
	}
	r1, _ := ref.Parse(a1.Hash, 3)
	r2, _ := ref.Parse(a2.Hash, 3)
	if r2.SubKey <= r1.SubKey {
		t.Errorf("hashes not increasing: %d then %d", r1.SubKey, r2.SubKey)
	}
}

func TestAction_RevenueAndPixel(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test/?c=partner")
	ctx := context.Background()
	if err := models.InsertAffiliate(ctx, f.svc.Router, f.scope(r), &models.Affiliate{Channel: "partner", Pixel: "https://partner.test/px"}); err != nil {
		t.Fatal(err)
	}

	resp, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "purchase", Revenue: "19.99"})
	if err != nil {
		t.Fatal(err)
	}
	ar, _ := ref.Parse(resp.Hash, 3)
	a, err := models.GetAction(ctx, f.svc.Router, f.scope(r), ar.SubKey)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Pixel || !a.Revenue.Equal(decimal.RequireFromString("19.99")) || !a.RevenueAt.Equal(f.now) {
		t.Errorf("action = %+v", a)
	}

	resp, err = f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "browse"})
	if err != nil {
		t.Fatal(err)
	}
	ar, _ = ref.Parse(resp.Hash, 3)
	a, _ = models.GetAction(ctx, f.svc.Router, f.scope(r), ar.SubKey)
	if a.Pixel || !a.RevenueAt.Equal(models.NoRevenue) {
		t.Errorf("zero-revenue action = %+v", a)
	}
}

func TestAction_ResolvesShardFromURL(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")

	resp, err := f.svc.Action(context.Background(), ActionRequest{
		Key: hit.PKey, URL: "https://shop.test/cart", AdvertiserID: f.aid(), License: "lic-123", Name: "cart",
	})
	if err != nil {
		t.Fatal(err)
	}
	ar, _ := ref.Parse(resp.Hash, 3)
	if ar.ShardID != r.ShardID || ar.VisitKey != r.VisitKey {
		t.Errorf("reference = %+v, want shard %d visit %d", ar, r.ShardID, r.VisitKey)
	}
}

func TestAction_Errors(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	ctx := context.Background()

	_, err := f.svc.Action(ctx, ActionRequest{Name: "x"})
	wantValidation(t, err, msgInvalidKey)

	_, err = f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Name: "x"})
	wantValidation(t, err, msgInvalidHash)

	_, err = f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash})
	wantValidation(t, err, msgMissingParams)

	_, err = f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "x", Revenue: "lots"})
	wantValidation(t, err, "Invalid revenue: lots")

	var nf *NotFoundError
	_, err = f.svc.Action(ctx, ActionRequest{Hash: ref.New(r.ShardID+50, r.VisitKey, 0).String(), Name: "x"})
	if !errors.As(err, &nf) || nf.Msg != msgDomain {
		t.Errorf("unknown shard err = %v", err)
	}
	_, err = f.svc.Action(ctx, ActionRequest{Hash: ref.New(r.ShardID, r.VisitKey+50, 0).String(), Name: "x"})
	if !errors.As(err, &nf) || nf.Msg != msgVisit {
		t.Errorf("unknown visit err = %v", err)
	}
}

// ── Checkpoint and Param ────────────────────────────────────────────

func TestCheckpoint_InlineWrite(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	ctx := context.Background()

	resp, err := f.svc.Checkpoint(ctx, CheckpointRequest{Key: hit.PKey, Hash: hit.Hash, Name: "step_2"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Checkpoint != "step_2" || resp.Hash != hit.Hash || resp.Status != "success" {
		t.Errorf("resp = %+v", resp)
	}
	params, err := models.ListParameters(ctx, f.svc.Router, f.scope(r), r.VisitKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 1 || params[0].Value != "1" || params[0].ActionHash != r.SubKey {
		t.Errorf("params = %+v", params)
	}
}

func TestCheckpoint_QueuedThroughCollector(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	c := analytics.NewCollector(f.svc.Router, nil, 10, time.Hour)
	f.svc.Checkpoints = c

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Checkpoint(context.Background(), CheckpointRequest{Hash: hit.Hash, Name: "scroll"}); err != nil {
			t.Fatal(err)
		}
	}
	c.Shutdown()

	if n := count(t, f.svc.Router, f.scope(r), "SELECT COUNT(*) FROM parameters WHERE name = 'scroll'"); n != 1 {
		t.Errorf("parameter rows = %d, want 1 (duplicates skipped)", n)
	}
}

func TestCheckpoint_Validation(t *testing.T) {
	f := newFixture(t)
	hit, _ := f.hit(t, "https://shop.test")
	ctx := context.Background()

	_, err := f.svc.Checkpoint(ctx, CheckpointRequest{Hash: hit.Hash})
	wantValidation(t, err, msgMissingParams)

	_, err = f.svc.Checkpoint(ctx, CheckpointRequest{Key: hit.PKey, Name: "a"})
	wantValidation(t, err, msgInvalidHash)
}

func TestParam_ScopesAndDuplicates(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	ctx := context.Background()

	visitRef := ref.Reference{ShardID: r.ShardID, VisitKey: r.VisitKey, Segments: 2}.String()
	resp, err := f.svc.Param(ctx, ParamRequest{Key: hit.PKey, Hash: visitRef, Name: "email", Value: "a@b.test"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ParamName != "email" || resp.ParamValue != "a@b.test" || resp.Hash != visitRef {
		t.Errorf("resp = %+v", resp)
	}

	_, err = f.svc.Param(ctx, ParamRequest{Key: hit.PKey, Hash: visitRef, Name: "email", Value: "c@d.test"})
	var se *store.Error
	if !errors.As(err, &se) || !store.IsUniqueViolation(err) {
		t.Fatalf("duplicate param err = %v, want unique-violation store error", err)
	}

	_, err = f.svc.Param(ctx, ParamRequest{Key: hit.PKey, Hash: ref.New(r.ShardID, r.VisitKey, 9).String(), Name: "email", Value: "e@f.test"})
	if err != nil {
		t.Fatalf("action-scoped param: %v", err)
	}

	params, _ := models.ListParameters(ctx, f.svc.Router, f.scope(r), r.VisitKey)
	if len(params) != 2 {
		t.Fatalf("params = %+v", params)
	}
}

func TestParam_Validation(t *testing.T) {
	f := newFixture(t)
	hit, _ := f.hit(t, "https://shop.test")

	_, err := f.svc.Param(context.Background(), ParamRequest{Key: hit.PKey, Hash: hit.Hash})
	wantValidation(t, err, msgMissingParams)

	_, err = f.svc.Param(context.Background(), ParamRequest{Name: "x"})
	wantValidation(t, err, msgMissingParams)
}

// ── Sale ────────────────────────────────────────────────────────────

func TestSale_UpdatesAction(t *testing.T) {
	f := newFixture(t)
	hit, r := f.hit(t, "https://shop.test")
	ctx := context.Background()
	act, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: hit.Hash, Name: "buy_click"})
	if err != nil {
		t.Fatal(err)
	}

	f.now = f.now.Add(time.Hour)
	resp, err := f.svc.Sale(ctx, SaleRequest{Hash: act.Hash, Revenue: "42.50", LogString: "order-9"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Revenue.String() != "42.5" || resp.Hash != act.Hash {
		t.Errorf("resp = %+v", resp)
	}

	ar, _ := ref.Parse(act.Hash, 3)
	a, _ := models.GetAction(ctx, f.svc.Router, f.scope(r), ar.SubKey)
	if !a.Revenue.Equal(decimal.RequireFromString("42.5")) || a.LogString != "order-9" || !a.RevenueAt.Equal(f.now) || a.Pixel {
		t.Errorf("action = %+v", a)
	}
}

func TestSale_Errors(t *testing.T) {
	f := newFixture(t)
	_, r := f.hit(t, "https://shop.test")
	ctx := context.Background()

	_, err := f.svc.Sale(ctx, SaleRequest{})
	wantValidation(t, err, msgMissingHash)

	_, err = f.svc.Sale(ctx, SaleRequest{Hash: "7_42"})
	wantValidation(t, err, msgInvalidHash)

	_, err = f.svc.Sale(ctx, SaleRequest{Hash: ref.New(r.ShardID, r.VisitKey, 999).String(), Revenue: "1"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Msg != msgAction {
		t.Errorf("unknown action err = %v", err)
	}
}

// ── Malformed references ────────────────────────────────────────────

func TestMalformedReferences_AreValidationErrors(t *testing.T) {
	f := newFixture(t)
	hit, _ := f.hit(t, "https://shop.test")
	ctx := context.Background()

	for _, bad := range []string{"7", "abc_def", "0_5_1", "1_2_3_4", "-1_2_3", "redr_hash"} {
		t.Run(bad, func(t *testing.T) {
			_, err := f.svc.Action(ctx, ActionRequest{Key: hit.PKey, Hash: bad, Name: "x"})
			wantValidation(t, err, "")
			_, err = f.svc.Checkpoint(ctx, CheckpointRequest{Key: hit.PKey, Hash: bad, Name: "x"})
			wantValidation(t, err, "")
			_, err = f.svc.Param(ctx, ParamRequest{Key: hit.PKey, Hash: bad, Name: "x"})
			wantValidation(t, err, "")
			_, err = f.svc.Sale(ctx, SaleRequest{Hash: bad})
			wantValidation(t, err, "")
		})
	}
}

// ── Social proof ────────────────────────────────────────────────────

func TestSocialProof_WindowAndThreshold(t *testing.T) {
	f := newFixture(t)
	_, r := f.hit(t, "https://shop.test")
	ctx := context.Background()
	s := f.scope(r)

	insert := func(name, revenue string, age time.Duration) {
		t.Helper()
		at := f.now.Add(-age)
		if err := models.InsertAction(ctx, f.svc.Router, s, &models.Action{
			VisitKey: r.VisitKey, Name: name, CreatedAt: at, RevenueAt: at,
			Revenue: decimal.RequireFromString(revenue),
		}); err != nil {
			t.Fatal(err)
		}
	}
	insert("buy_click", "10", 30*time.Minute)
	insert("buy_click", "75", 10*time.Minute)
	insert("buy_click", "90", 3*time.Hour)
	insert("view", "500", time.Minute)

	resp, err := f.svc.SocialProof(ctx, SocialProofRequest{Domain: "shop.test", MinRevenue: "50", Hours: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || len(resp.Proofs) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	p := resp.Proofs[0]
	if p.Revenue.String() != "75" || p.TimeAgo != "10 minutes ago" || p.Action != "buy_click" {
		t.Errorf("proof = %+v", p)
	}

	resp, err = f.svc.SocialProof(ctx, SocialProofRequest{Domain: "shop.test"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 || resp.Proofs[0].Revenue.String() != "75" || resp.Proofs[2].TimeAgo != "3 hours ago" {
		t.Errorf("default query = %+v", resp)
	}
}

func TestSocialProof_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SocialProof(context.Background(), SocialProofRequest{})
	wantValidation(t, err, msgMissingDomain)

	_, err = f.svc.SocialProof(context.Background(), SocialProofRequest{Domain: "nope.test"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Msg != msgDomain {
		t.Errorf("err = %v", err)
	}
}

func TestIntInRange(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 24},
		{"abc", 24},
		{"0", 1},
		{"-5", 1},
		{"48", 48},
		{"100000", 8760},
	}
	for _, tt := range tests {
		if got := intInRange(tt.raw, DefaultProofHours, 1, MaxProofHours); got != tt.want {
			t.Errorf("intInRange(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{59 * time.Minute, "59 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{75 * 24 * time.Hour, "75 days ago"},
	}
	for _, tt := range tests {
		if got := timeAgo(now, now.Add(-tt.ago)); got != tt.want {
			t.Errorf("timeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestClientMessage(t *testing.T) {
	if msg, ok := ClientMessage(invalid("bad")); !ok || msg != "bad" {
		t.Errorf("validation: %q %v", msg, ok)
	}
	if msg, ok := ClientMessage(notFound("gone", sql.ErrNoRows)); !ok || msg != "gone" {
		t.Errorf("not found: %q %v", msg, ok)
	}
	if _, ok := ClientMessage(errors.New("raw")); ok {
		t.Error("plain errors are not client messages")
	}
}
