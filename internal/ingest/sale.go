package ingest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/ref"
)

type SaleRequest struct {
	Hash      string
	Revenue   string
	LogString string
}

type SaleResponse struct {
	Hash    string      `json:"hash"`
	Revenue json.Number `json:"revenue"`
	Status  string      `json:"status"`
}

// Sale sets revenue on the action named by a three-segment reference.
// Only the shard and action segments are used: the visit segment is not
// checked against the action.
func (s *Service) Sale(ctx context.Context, req SaleRequest) (resp SaleResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("sale", outcome, err) }()

	hash := strings.TrimSpace(req.Hash)
	if hash == "" {
		return SaleResponse{}, invalid(msgMissingHash)
	}
	r, err := ref.Parse(hash, 3)
	if err != nil {
		return SaleResponse{}, invalid(msgInvalidHash)
	}
	revenue, err := parseRevenue(req.Revenue)
	if err != nil {
		return SaleResponse{}, err
	}

	tenant, err := s.tenantByShard(ctx, r.ShardID)
	if err != nil {
		return SaleResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return SaleResponse{}, err
	}

	pixel, err := models.ActionPixelMode(ctx, s.Router, scope, r.SubKey)
	if err != nil {
		if models.IsNotFound(err) {
			return SaleResponse{}, notFound(msgAction, err)
		}
		return SaleResponse{}, err
	}
	err = models.UpdateSale(ctx, s.Router, scope, models.Sale{
		Hash:      r.SubKey,
		Revenue:   revenue,
		LogString: req.LogString,
		Pixel:     pixel,
		At:        s.rowTime(),
	})
	if err != nil {
		if models.IsNotFound(err) {
			return SaleResponse{}, notFound(msgAction, err)
		}
		return SaleResponse{}, err
	}

	return SaleResponse{Hash: hash, Revenue: revenueJSON(revenue), Status: "success"}, nil
}
