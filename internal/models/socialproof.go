package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lazysauce/collector/internal/store"
)

// Proof is one qualifying conversion.
type Proof struct {
	Hash      int64
	Name      string
	Revenue   decimal.Decimal
	CreatedAt time.Time
}

type ProofQuery struct {
	// Trigger is matched as a literal substring of the action name.
	Trigger    string
	MinRevenue decimal.Decimal
	Since      time.Time
	Limit      int
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// RecentConversions lists actions with revenue >= MinRevenue created at or
// after Since, newest first.
func RecentConversions(ctx context.Context, r *store.Router, s store.Scope, q ProofQuery) ([]Proof, error) {
	var out []Proof
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		var p Proof
		if err := rows.Scan(&p.Hash, &p.Name, &p.Revenue, &p.CreatedAt); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, `SELECT hash, name, revenue, date_created FROM action
WHERE revenue >= ? AND date_created >= ? AND name LIKE ? ESCAPE '!'
ORDER BY date_created DESC, hash DESC
LIMIT ?`,
		q.MinRevenue, q.Since, "%"+likeEscaper.Replace(q.Trigger)+"%", q.Limit)
	if err != nil {
		return nil, fmt.Errorf("recent conversions: %w", err)
	}
	return out, nil
}
