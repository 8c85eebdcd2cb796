// Package journal persists access events to a SQL database so that they
// survive terminal restarts. PostgreSQL and MySQL/MariaDB are supported;
// the driver is picked from the URL scheme.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/kozaktomas/smartlock-gate/internal/config"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
)

// ErrUnsupportedScheme is returned for database URLs that are neither
// postgres nor mysql.
var ErrUnsupportedScheme = errors.New("unsupported journal database scheme")

// Store writes and reads access events.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Open connects to the journal database described by cfg.URL and pings it.
func Open(cfg *config.JournalConfig, logger *slog.Logger) (*Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("journal database URL is required")
	}

	dialect, dsn, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	return NewStore(db, dialect, logger), nil
}

// NewStore wraps an existing connection.
func NewStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing journal database: %w", err)
		}
	}
	return nil
}

// ParseURL maps a journal URL to a dialect and a driver-specific DSN.
// postgres:// and postgresql:// URLs are passed to lib/pq unchanged;
// mysql:// URLs are rewritten into the go-sql-driver format.
func ParseURL(raw string) (Dialect, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Dialect{}, "", fmt.Errorf("invalid journal database URL: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		return Postgres, raw, nil
	case "mysql", "mariadb":
		return MySQL, mysqlDSN(u), nil
	default:
		return Dialect{}, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		cfg.Addr = net.JoinHostPort(u.Host, "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Loc = time.UTC

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[key] = values[0]
	}
	return cfg.FormatDSN()
}

// Record inserts one event. It satisfies eventlog.Sink.
func (s *Store) Record(ctx context.Context, e eventlog.Event) error {
	query := fmt.Sprintf(`INSERT INTO access_events
		(id, terminal_id, session_id, identity, state, kind, message, success, similarity, occurred_at)
		VALUES (%s)`, s.dialect.Placeholders(10))

	var similarity any
	if e.Similarity != nil {
		similarity = *e.Similarity
	}

	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.TerminalID, e.SessionID, e.Identity, e.State, e.Kind,
		e.Message, e.Success, similarity, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert access event %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `id, terminal_id, session_id, identity, state, kind, message, success, similarity, occurred_at`

// Filter narrows Recent. Zero values are ignored.
type Filter struct {
	Identity   string
	TerminalID string
	Success    *bool
	Since      time.Time
}

// Recent returns up to limit events matching f, newest first.
func (s *Store) Recent(ctx context.Context, f Filter, limit int) ([]eventlog.Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, s.dialect.Placeholder(len(args))))
	}
	if f.Identity != "" {
		add("identity = %s", f.Identity)
	}
	if f.TerminalID != "" {
		add("terminal_id = %s", f.TerminalID)
	}
	if f.Success != nil {
		add("success = %s", *f.Success)
	}
	if !f.Since.IsZero() {
		add("occurred_at >= %s", f.Since.UTC())
	}

	query := "SELECT " + selectColumns + " FROM access_events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT %s", s.dialect.Placeholder(len(args)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query access events: %w", err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var (
			e          eventlog.Event
			similarity sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.TerminalID, &e.SessionID, &e.Identity, &e.State, &e.Kind,
			&e.Message, &e.Success, &similarity, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		if similarity.Valid {
			v := similarity.Float64
			e.Similarity = &v
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access events: %w", err)
	}
	return events, nil
}

// Summary counts events since a point in time.
type Summary struct {
	Total    int `json:"total"`
	Granted  int `json:"granted"`
	Denied   int `json:"denied"`
	Errored  int `json:"errored"`
	Unique   int `json:"unique_identities"`
	Sessions int `json:"sessions"`
}

// Summarize aggregates the journal since the given time.
func (s *Store) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	query := fmt.Sprintf(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN state = 'granted' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN state = 'denied' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN state = 'errored' THEN 1 ELSE 0 END), 0),
		COUNT(DISTINCT NULLIF(identity, '')),
		COUNT(DISTINCT session_id)
		FROM access_events WHERE occurred_at >= %s`, s.dialect.Placeholder(1))

	var sum Summary
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&sum.Total, &sum.Granted, &sum.Denied, &sum.Errored, &sum.Unique, &sum.Sessions)
	if err != nil {
		return nil, fmt.Errorf("summarize access events: %w", err)
	}
	return &sum, nil
}
