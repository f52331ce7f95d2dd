package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lazysauce/collector/internal/store"
)

// NoRevenue marks an action whose revenue has not been realised.
var NoRevenue = time.Unix(0, 0).UTC()

type Action struct {
	Hash         int64
	VisitKey     int64
	Name         string
	Variant      int
	IsEngagement int
	CreatedAt    time.Time
	RevenueAt    time.Time
	Revenue      decimal.Decimal
	Pixel        bool
	LogString    string
}

const actionColumns = "hash, pkey, name, variant, is_engagement, date_created, date_revenue, revenue, pixel, logstring"

func scanAction(rows *sql.Rows, a *Action) error {
	var pixel int
	if err := rows.Scan(&a.Hash, &a.VisitKey, &a.Name, &a.Variant, &a.IsEngagement,
		&a.CreatedAt, &a.RevenueAt, &a.Revenue, &pixel, &a.LogString); err != nil {
		return err
	}
	a.Pixel = pixel != 0
	return nil
}

func queryAction(ctx context.Context, r *store.Router, s store.Scope, where string, arg any) (*Action, error) {
	var a Action
	found := false
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		found = true
		return scanAction(rows, &a)
	}, "SELECT "+actionColumns+" FROM action WHERE "+where, arg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

// LatestAction returns the most recent action of a visit, or sql.ErrNoRows.
func LatestAction(ctx context.Context, r *store.Router, s store.Scope, visitKey int64) (*Action, error) {
	return queryAction(ctx, r, s, "pkey = ? ORDER BY hash DESC LIMIT 1", visitKey)
}

func GetAction(ctx context.Context, r *store.Router, s store.Scope, hash int64) (*Action, error) {
	return queryAction(ctx, r, s, "hash = ?", hash)
}

// InsertAction stores a and sets a.Hash.
func InsertAction(ctx context.Context, r *store.Router, s store.Scope, a *Action) error {
	res, err := r.Execute(ctx, s,
		`INSERT INTO action (pkey, name, variant, is_engagement, date_created, date_revenue, revenue, pixel, logstring) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.VisitKey, a.Name, a.Variant, a.IsEngagement, a.CreatedAt, a.RevenueAt, a.Revenue, boolInt(a.Pixel), a.LogString)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	a.Hash = res.InsertID
	return nil
}

// Sale is the revenue update applied to one action.
type Sale struct {
	Hash      int64
	Revenue   decimal.Decimal
	LogString string
	Pixel     bool
	At        time.Time
}

// UpdateSale records revenue on an existing action. It returns
// sql.ErrNoRows when no action has that hash.
func UpdateSale(ctx context.Context, r *store.Router, s store.Scope, sale Sale) error {
	res, err := r.Execute(ctx, s,
		`UPDATE action SET revenue = ?, logstring = ?, date_revenue = ?, pixel = ? WHERE hash = ?`,
		sale.Revenue, sale.LogString, sale.At, boolInt(sale.Pixel), sale.Hash)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if res.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
