package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lazysauce/collector/internal/store"
)

// Parameter annotates a visit, or one action of it when ActionHash is set.
type Parameter struct {
	ID         int64
	VisitKey   int64
	ActionHash int64
	Name       string
	Value      string
	CreatedAt  time.Time
}

const insertParameter = `INSERT INTO parameters (pkey, hash, name, value, date_created) VALUES (?, ?, ?, ?, ?)`

// InsertParameter stores p and sets p.ID. A repeated (visit, action, name)
// triple fails with a unique violation; nothing is overwritten.
func InsertParameter(ctx context.Context, r *store.Router, s store.Scope, p *Parameter) error {
	res, err := r.Execute(ctx, s, insertParameter, p.VisitKey, p.ActionHash, p.Name, p.Value, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert parameter: %w", err)
	}
	p.ID = res.InsertID
	return nil
}

type BatchResult struct {
	Written    int
	Duplicates int
	Failed     int
}

// BatchInsertParameters writes params in one transaction. Rows rejected by
// the uniqueness constraint are counted as duplicates and rows rejected
// for any other reason as failures; neither aborts the batch.
func BatchInsertParameters(ctx context.Context, r *store.Router, s store.Scope, params []Parameter) (BatchResult, error) {
	var res BatchResult
	if len(params) == 0 {
		return res, nil
	}
	err := r.Tx(ctx, s, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertParameter)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, p := range params {
			_, err := stmt.ExecContext(ctx, p.VisitKey, p.ActionHash, p.Name, p.Value, p.CreatedAt)
			switch {
			case err == nil:
				res.Written++
			case store.IsUniqueViolation(err):
				res.Duplicates++
			default:
				res.Failed++
			}
		}
		return nil
	})
	if err != nil {
		return BatchResult{Failed: len(params)}, err
	}
	return res, nil
}

// ListParameters returns a visit's parameters in insertion order.
func ListParameters(ctx context.Context, r *store.Router, s store.Scope, visitKey int64) ([]Parameter, error) {
	var out []Parameter
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		var p Parameter
		if err := rows.Scan(&p.ID, &p.VisitKey, &p.ActionHash, &p.Name, &p.Value, &p.CreatedAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, `SELECT pid, pkey, hash, name, value, date_created FROM parameters WHERE pkey = ? ORDER BY pid`, visitKey)
	return out, err
}
