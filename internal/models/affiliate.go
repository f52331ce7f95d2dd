package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lazysauce/collector/internal/store"
)

// Affiliate is the revenue-share configuration of one channel, optionally
// narrowed to a subchannel. A non-empty Pixel URL puts the channel in
// pixel mode.
type Affiliate struct {
	Key        int64
	Name       string
	Channel    string
	Subchannel string
	MaxBucket  decimal.Decimal
	RevShare   decimal.Decimal
	CPA        decimal.Decimal
	Pixel      string
}

func InsertAffiliate(ctx context.Context, r *store.Router, s store.Scope, a *Affiliate) error {
	res, err := r.Execute(ctx, s,
		`INSERT INTO affiliate (name, channel, subchannel, maxbucket, revshare, cpa, pixel) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Channel, a.Subchannel, a.MaxBucket, a.RevShare, a.CPA, a.Pixel)
	if err != nil {
		return fmt.Errorf("insert affiliate: %w", err)
	}
	a.Key = res.InsertID
	return nil
}

// PixelMode reports whether conversions from channel/subchannel fire a
// pixel. An exact subchannel row wins over the channel-wide row.
func PixelMode(ctx context.Context, r *store.Router, s store.Scope, channel, subchannel string) (bool, error) {
	var pixel string
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		return rows.Scan(&pixel)
	}, `SELECT pixel FROM affiliate WHERE channel = ? AND (subchannel = ? OR subchannel = '') ORDER BY subchannel = '' LIMIT 1`,
		channel, subchannel)
	if err != nil {
		return false, fmt.Errorf("pixel mode: %w", err)
	}
	return pixel != "", nil
}

// ActionPixelMode applies PixelMode to the visit behind an action. It
// returns sql.ErrNoRows when the action is unknown.
func ActionPixelMode(ctx context.Context, r *store.Router, s store.Scope, hash int64) (bool, error) {
	var channel, subchannel string
	found := false
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&channel, &subchannel)
	}, `SELECT v.channel, v.subchannel FROM action a JOIN visit v ON v.pkey = a.pkey WHERE a.hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("action channel: %w", err)
	}
	if !found {
		return false, sql.ErrNoRows
	}
	return PixelMode(ctx, r, s, channel, subchannel)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
