package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// dialect isolates what differs between the embedded and the networked
// backends: where a scope's database lives and how it is created.
type dialect interface {
	driverName() string
	dsn(s Scope) (string, error)
	maxOpenConns(s Scope) int
	directorySchema() []string
	shardSchema() []string
	shardExists(ctx context.Context, r *Router, host string, shardID int64) (bool, error)
	createShard(ctx context.Context, r *Router, host string, shardID int64) error
}

func newDialect(opts Options) (dialect, error) {
	switch opts.Driver {
	case "", "sqlite":
		return &sqliteDialect{opts: opts}, nil
	case "mysql":
		return &mysqlDialect{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
}

// ShardDBName is the database (or file stem) holding one tenant's rows.
func (o Options) ShardDBName(shardID int64) string {
	return o.DirectoryDB + "_" + strconv.FormatInt(shardID, 10)
}

type sqliteDialect struct {
	opts Options
}

// All writes serialise through one connection.
const sqlitePragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

func (d *sqliteDialect) driverName() string { return "sqlite" }

func (d *sqliteDialect) maxOpenConns(Scope) int { return 1 }

func (d *sqliteDialect) directoryPath() string {
	return filepath.Join(d.opts.DataDir, d.opts.DirectoryDB+".db")
}

func (d *sqliteDialect) shardPath(host string, shardID int64) string {
	return filepath.Join(d.opts.DataDir, hostSegment(host), d.opts.ShardDBName(shardID)+".db")
}

func (d *sqliteDialect) dsn(s Scope) (string, error) {
	switch s.Kind {
	case KindDirectory:
		if err := os.MkdirAll(d.opts.DataDir, 0o755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return d.directoryPath() + sqlitePragmas, nil
	case KindShard:
		return d.shardPath(s.Host, s.ShardID) + sqlitePragmas, nil
	default:
		return "", fmt.Errorf("sqlite has no %s scope", s)
	}
}

func (d *sqliteDialect) directorySchema() []string { return sqliteDirectorySchema }

func (d *sqliteDialect) shardSchema() []string { return sqliteShardSchema }

func (d *sqliteDialect) shardExists(_ context.Context, _ *Router, host string, shardID int64) (bool, error) {
	_, err := os.Stat(d.shardPath(host, shardID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// createShard only prepares the host directory; the file itself appears
// when the shard pool first connects.
func (d *sqliteDialect) createShard(_ context.Context, _ *Router, host string, _ int64) error {
	return os.MkdirAll(filepath.Join(d.opts.DataDir, hostSegment(host)), 0o755)
}

// hostSegment turns a host name into a single safe path element.
func hostSegment(host string) string {
	if host == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	seg := b.String()
	if seg == "." || seg == ".." {
		return "_"
	}
	return seg
}

type mysqlDialect struct {
	opts Options
}

func (d *mysqlDialect) driverName() string { return "mysql" }

func (d *mysqlDialect) maxOpenConns(s Scope) int {
	switch s.Kind {
	case KindDirectory:
		return d.opts.DirectoryPoolSize
	case KindServer:
		return 2
	default:
		return d.opts.ShardPoolSize
	}
}

func (d *mysqlDialect) dsn(s Scope) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = d.opts.User
	cfg.Passwd = d.opts.Password
	cfg.Net = "tcp"
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Timeout = 5 * time.Second

	host := s.Host
	switch s.Kind {
	case KindDirectory:
		host = d.opts.DirectoryHost
		cfg.DBName = d.opts.DirectoryDB
	case KindShard:
		cfg.DBName = d.opts.ShardDBName(s.ShardID)
	}
	if host == "" {
		return "", fmt.Errorf("no host for %s", s)
	}
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(d.opts.Port))
	return cfg.FormatDSN(), nil
}

func (d *mysqlDialect) directorySchema() []string { return mysqlDirectorySchema }

func (d *mysqlDialect) shardSchema() []string { return mysqlShardSchema }

func (d *mysqlDialect) shardExists(ctx context.Context, r *Router, host string, shardID int64) (bool, error) {
	var found bool
	err := r.Query(ctx, Server(host), func(rows *sql.Rows) error {
		found = true
		return nil
	}, "SELECT SCHEMA_NAME FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = ?", d.opts.ShardDBName(shardID))
	return found, err
}

func (d *mysqlDialect) createShard(ctx context.Context, r *Router, host string, shardID int64) error {
	_, err := r.Execute(ctx, Server(host),
		"CREATE SCHEMA IF NOT EXISTS `"+d.opts.ShardDBName(shardID)+"` DEFAULT CHARACTER SET latin1")
	return err
}
