// Package store routes SQL to the shared directory database and to the
// per-tenant shard databases, one lazily opened pool per scope.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Kind int

const (
	// KindDirectory is the shared database holding advertiser and domain rows.
	KindDirectory Kind = iota
	// KindServer is a connection to a physical host with no database selected.
	KindServer
	// KindShard is one tenant's isolated database on a physical host.
	KindShard
)

// Scope names the database a statement runs against.
type Scope struct {
	Kind    Kind
	Host    string
	ShardID int64
}

func Directory() Scope { return Scope{Kind: KindDirectory} }

func Server(host string) Scope { return Scope{Kind: KindServer, Host: host} }

func Shard(host string, shardID int64) Scope {
	return Scope{Kind: KindShard, Host: host, ShardID: shardID}
}

func (s Scope) String() string {
	switch s.Kind {
	case KindDirectory:
		return "directory"
	case KindServer:
		return "server(" + s.Host + ")"
	default:
		return fmt.Sprintf("shard(%s/%d)", s.Host, s.ShardID)
	}
}

// Result is what a write reports back.
type Result struct {
	RowsAffected int64
	InsertID     int64
}

// Error carries the scope of a failed store call. Deadline expiry surfaces
// as an Error wrapping context.DeadlineExceeded.
type Error struct {
	Scope Scope
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Scope, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrClosed = errors.New("router closed")

// IsUniqueViolation reports whether err is a duplicate-key failure from
// either supported driver.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE constraint failed")
		}
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
