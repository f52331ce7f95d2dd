package ingest

import (
	"context"
	"strings"

	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/ref"
)

type ActionRequest struct {
	Key          string
	Hash         string
	URL          string
	AdvertiserID string
	License      string
	// Name may carry a "|"-delimited suffix; only the part before it is kept.
	Name       string
	Variant    int
	Engagement int
	LogString  string
	Revenue    string
}

type ActionResponse struct {
	PKey   string `json:"pkey"`
	Hash   string `json:"hash"`
	Status string `json:"status"`

	// Reused reports that the visit's latest action had the same name.
	Reused bool `json:"-"`
}

// ActionName strips the "|" parameter suffix from a raw action name.
func ActionName(raw string) string {
	name, _, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(name)
}

// Action records a named event on a visit. When the visit's most recent
// action has the same name its hash is returned and nothing is written.
// The check and the insert are not atomic; two concurrent identical calls
// can both insert.
func (s *Service) Action(ctx context.Context, req ActionRequest) (resp ActionResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("action", outcome, err) }()

	r, err := parseOptionalRef(req.Hash, 2)
	if err != nil {
		return ActionResponse{}, err
	}
	key := visitKey(req.Key, r)
	if key == ref.Invalid {
		return ActionResponse{}, invalid(msgInvalidKey)
	}
	name := ActionName(req.Name)
	if name == "" {
		return ActionResponse{}, invalid(msgMissingParams)
	}
	revenue, err := parseRevenue(req.Revenue)
	if err != nil {
		return ActionResponse{}, err
	}

	tenant, err := s.tenantFor(ctx, r, req.URL, req.AdvertiserID, req.License)
	if err != nil {
		return ActionResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return ActionResponse{}, err
	}

	visit, err := models.GetVisit(ctx, s.Router, scope, key)
	if err != nil {
		if models.IsNotFound(err) {
			return ActionResponse{}, notFound(msgVisit, err)
		}
		return ActionResponse{}, err
	}

	resp = ActionResponse{PKey: ref.Checksum(key), Status: "success"}

	latest, err := models.LatestAction(ctx, s.Router, scope, key)
	switch {
	case err == nil && latest.Name == name:
		outcome = "reused"
		resp.Reused = true
		resp.Hash = ref.New(tenant.ShardID, key, latest.Hash).String()
		return resp, nil
	case err != nil && !models.IsNotFound(err):
		return ActionResponse{}, err
	}

	now := s.rowTime()
	a := models.Action{
		VisitKey:     key,
		Name:         name,
		Variant:      req.Variant,
		IsEngagement: req.Engagement,
		CreatedAt:    now,
		RevenueAt:    models.NoRevenue,
		Revenue:      revenue,
		LogString:    req.LogString,
	}
	if revenue.IsPositive() {
		a.RevenueAt = now
		a.Pixel, err = models.PixelMode(ctx, s.Router, scope, visit.Channel, visit.Subchannel)
		if err != nil {
			return ActionResponse{}, err
		}
	}
	if err := models.InsertAction(ctx, s.Router, scope, &a); err != nil {
		return ActionResponse{}, err
	}

	resp.Hash = ref.New(tenant.ShardID, key, a.Hash).String()
	return resp, nil
}
