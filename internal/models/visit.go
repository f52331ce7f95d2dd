// Package models reads and writes the rows that live inside one shard.
// Every function takes the shard scope explicitly; nothing here crosses
// shards.
package models

import (
	"context"
	"database/sql"
	"fmt"
	"net/netip"
	"time"

	"github.com/lazysauce/collector/internal/store"
)

// Visit is the root row of a tracking session.
type Visit struct {
	Key        int64
	DomainKey  int64
	IP         netip.Addr
	Variant    int
	Channel    string
	Subchannel string
	Target     string
	IsBot      bool
	Engagement int
	CreatedAt  time.Time
}

// ipBytes is the binary column form: 4 bytes for IPv4, 16 for IPv6.
// Unparseable addresses are stored as 0.0.0.0.
func ipBytes(a netip.Addr) []byte {
	if !a.IsValid() {
		return []byte{0, 0, 0, 0}
	}
	return a.Unmap().AsSlice()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// InsertVisit stores v and sets v.Key. A visit identical in did, ip,
// channel, subchannel, target and instant already exists when the unique
// index rejects the row; its key is reused.
func InsertVisit(ctx context.Context, r *store.Router, s store.Scope, v *Visit) error {
	ip := ipBytes(v.IP)
	res, err := r.Execute(ctx, s,
		`INSERT INTO visit (did, ip, variant, channel, subchannel, target, is_bot, engagement, date_created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.DomainKey, ip, v.Variant, v.Channel, v.Subchannel, v.Target, boolInt(v.IsBot), v.Engagement, v.CreatedAt)
	if err == nil {
		v.Key = res.InsertID
		return nil
	}
	if !store.IsUniqueViolation(err) {
		return fmt.Errorf("insert visit: %w", err)
	}

	var key int64
	err = r.Query(ctx, s, func(rows *sql.Rows) error {
		return rows.Scan(&key)
	}, `SELECT pkey FROM visit WHERE did = ? AND ip = ? AND channel = ? AND subchannel = ? AND target = ? AND date_created = ? LIMIT 1`,
		v.DomainKey, ip, v.Channel, v.Subchannel, v.Target, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("reread duplicate visit: %w", err)
	}
	if key == 0 {
		return fmt.Errorf("reread duplicate visit: %w", sql.ErrNoRows)
	}
	v.Key = key
	return nil
}

// GetVisit returns sql.ErrNoRows when the key is unknown in this shard.
func GetVisit(ctx context.Context, r *store.Router, s store.Scope, key int64) (*Visit, error) {
	var (
		v     Visit
		ip    []byte
		isBot int
		found bool
	)
	err := r.Query(ctx, s, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&v.Key, &v.DomainKey, &ip, &v.Variant, &v.Channel, &v.Subchannel, &v.Target, &isBot, &v.Engagement, &v.CreatedAt)
	}, `SELECT pkey, did, ip, variant, channel, subchannel, target, is_bot, engagement, date_created FROM visit WHERE pkey = ?`, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}
	v.IP, _ = netip.AddrFromSlice(ip)
	v.IsBot = isBot != 0
	return &v, nil
}
