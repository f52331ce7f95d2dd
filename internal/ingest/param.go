package ingest

import (
	"context"
	"strings"

	"github.com/lazysauce/collector/internal/analytics"
	"github.com/lazysauce/collector/internal/models"
	"github.com/lazysauce/collector/internal/ref"
)

type CheckpointRequest struct {
	Key  string
	Hash string
	Name string
}

type CheckpointResponse struct {
	PKey       string `json:"pkey"`
	Hash       string `json:"hash"`
	Checkpoint string `json:"checkpoint"`
	Status     string `json:"status"`
}

// Checkpoint records a conversion step as a parameter with value "1",
// scoped to the reference's third segment. With a collector configured the
// write is queued and the call returns before it lands.
func (s *Service) Checkpoint(ctx context.Context, req CheckpointRequest) (resp CheckpointResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("checkpoint", outcome, err) }()

	name := strings.TrimSpace(req.Name)
	hash := strings.TrimSpace(req.Hash)
	if name == "" || (hash == "" && ref.VerifyChecksum(strings.TrimSpace(req.Key)) == ref.Invalid) {
		return CheckpointResponse{}, invalid(msgMissingParams)
	}
	r, err := parseOptionalRef(hash, 2)
	if err != nil {
		return CheckpointResponse{}, err
	}
	if r == nil {
		return CheckpointResponse{}, invalid(msgInvalidHash)
	}
	key := visitKey(req.Key, r)
	if key == ref.Invalid {
		return CheckpointResponse{}, invalid(msgInvalidKey)
	}

	tenant, err := s.tenantByShard(ctx, r.ShardID)
	if err != nil {
		return CheckpointResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return CheckpointResponse{}, err
	}

	cp := analytics.RawCheckpoint{
		Scope:      scope,
		VisitKey:   key,
		ActionHash: r.SubKey,
		Name:       name,
		At:         s.rowTime(),
	}
	if s.Checkpoints != nil {
		if !s.Checkpoints.Push(cp) {
			outcome = "dropped"
		}
	} else {
		err := models.InsertParameter(ctx, s.Router, scope, &models.Parameter{
			VisitKey:   cp.VisitKey,
			ActionHash: cp.ActionHash,
			Name:       cp.Name,
			Value:      "1",
			CreatedAt:  cp.At,
		})
		if err != nil {
			return CheckpointResponse{}, err
		}
	}

	return CheckpointResponse{PKey: ref.Checksum(key), Hash: hash, Checkpoint: name, Status: "success"}, nil
}

type ParamRequest struct {
	Key          string
	Hash         string
	URL          string
	AdvertiserID string
	License      string
	Name         string
	Value        string
}

type ParamResponse struct {
	PKey       string `json:"pkey"`
	Hash       string `json:"hash"`
	ParamName  string `json:"param_name"`
	ParamValue string `json:"param_value"`
	Status     string `json:"status"`
}

// Param attaches a name/value pair to a visit, or to one of its actions
// when the reference carries a third segment. A repeated name in the same
// scope is a store error.
func (s *Service) Param(ctx context.Context, req ParamRequest) (resp ParamResponse, err error) {
	outcome := "ok"
	defer func() { s.observe("param", outcome, err) }()

	r, err := parseOptionalRef(req.Hash, 2)
	if err != nil {
		return ParamResponse{}, err
	}
	key := visitKey(req.Key, r)
	name := strings.TrimSpace(req.Name)
	if key == ref.Invalid || name == "" {
		return ParamResponse{}, invalid(msgMissingParams)
	}

	tenant, err := s.tenantFor(ctx, r, req.URL, req.AdvertiserID, req.License)
	if err != nil {
		return ParamResponse{}, err
	}
	scope, err := s.shard(ctx, tenant)
	if err != nil {
		return ParamResponse{}, err
	}
	if _, err := models.GetVisit(ctx, s.Router, scope, key); err != nil {
		if models.IsNotFound(err) {
			return ParamResponse{}, notFound(msgVisit, err)
		}
		return ParamResponse{}, err
	}

	var actionHash int64
	if r != nil && r.HasSubKey() {
		actionHash = r.SubKey
	}
	err = models.InsertParameter(ctx, s.Router, scope, &models.Parameter{
		VisitKey:   key,
		ActionHash: actionHash,
		Name:       name,
		Value:      req.Value,
		CreatedAt:  s.rowTime(),
	})
	if err != nil {
		return ParamResponse{}, err
	}

	return ParamResponse{
		PKey:       ref.Checksum(key),
		Hash:       strings.TrimSpace(req.Hash),
		ParamName:  name,
		ParamValue: req.Value,
		Status:     "success",
	}, nil
}
