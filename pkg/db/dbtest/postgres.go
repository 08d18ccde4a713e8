package dbtest

import (
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Query is one rendered statement with its bound values.
type Query struct {
	SQL  string
	Vars []any
}

// Statements collects the queries a dry-run connection would have sent.
type Statements struct {
	mu      sync.Mutex
	queries []Query
}

func (s *Statements) record(db *gorm.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, Query{
		SQL:  db.Statement.SQL.String(),
		Vars: append([]any(nil), db.Statement.Vars...),
	})
}

// All returns the recorded queries in execution order.
func (s *Statements) All() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.queries...)
}

// DryRunPostgres returns a postgres-dialect connection that renders queries
// without reaching a server. Row locks, which sqlite drops, show up in the
// recorded SQL.
func DryRunPostgres(t testing.TB) (*gorm.DB, *Statements) {
	t.Helper()
	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=neline dbname=neline sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open dry-run postgres: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := &Statements{}
	if err := conn.Callback().Query().After("gorm:query").Register("dbtest:record", stmts.record); err != nil {
		t.Fatalf("register query recorder: %v", err)
	}
	return conn, stmts
}
