package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lazysauce/collector/internal/directory"
	"github.com/lazysauce/collector/internal/models"
)

const (
	DefaultTrigger    = "buy_click"
	DefaultProofHours = 24
	DefaultProofCount = 10
	MaxProofHours     = 8760
	MaxProofCount     = 100
)

type SocialProofRequest struct {
	Domain     string
	Trigger    string
	MinRevenue string
	Hours      string
	Count      string
}

type ProofItem struct {
	Revenue json.Number `json:"revenue"`
	TimeAgo string      `json:"time_ago"`
	Action  string      `json:"action"`
}

type SocialProofResponse struct {
	Status string      `json:"status"`
	Count  int         `json:"count"`
	Proofs []ProofItem `json:"proofs"`
}

// intInRange parses raw, falling back to def when it is not an integer,
// and clamps the result to [lo, hi].
func intInRange(raw string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	return min(max(n, lo), hi)
}

// SocialProof lists a tenant's recent conversions whose action name
// contains the trigger and whose revenue reaches the minimum.
func (s *Service) SocialProof(ctx context.Context, req SocialProofRequest) (resp SocialProofResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("socialproof", outcome, err) }()

	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		return SocialProofResponse{}, invalid(msgMissingDomain)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = DefaultTrigger
	}
	minRevenue, err := decimal.NewFromString(strings.TrimSpace(req.MinRevenue))
	if err != nil {
		minRevenue = decimal.Zero
	}
	hours := intInRange(req.Hours, DefaultProofHours, 1, MaxProofHours)
	count := intInRange(req.Count, DefaultProofCount, 1, MaxProofCount)

	tenant, err := s.Directory.TenantByName(ctx, domain)
	if errors.Is(err, directory.ErrTenantNotFound) {
		return SocialProofResponse{}, notFound(msgDomain, err)
	}
	if err != nil {
		return SocialProofResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return SocialProofResponse{}, err
	}

	now := s.now().UTC()
	proofs, err := models.RecentConversions(ctx, s.Router, scope, models.ProofQuery{
		Trigger:    trigger,
		MinRevenue: minRevenue,
		Since:      now.Add(-time.Duration(hours) * time.Hour).Truncate(time.Second),
		Limit:      count,
	})
	if err != nil {
		return SocialProofResponse{}, err
	}

	resp = SocialProofResponse{Status: "success", Count: len(proofs), Proofs: make([]ProofItem, 0, len(proofs))}
	for _, p := range proofs {
		resp.Proofs = append(resp.Proofs, ProofItem{
			Revenue: revenueJSON(p.Revenue),
			TimeAgo: timeAgo(now, p.CreatedAt),
			Action:  p.Name,
		})
	}
	return resp, nil
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func timeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}
