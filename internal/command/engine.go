package command

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roach88/relmap/internal/logging"
	"github.com/roach88/relmap/internal/marshal"
	"github.com/roach88/relmap/internal/querysql"
	"github.com/roach88/relmap/internal/schema"
)

// Executor runs SQL against a database. *sql.DB, *sql.Tx, *sql.Conn and
// *store.Store satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ Executor = (*sql.Conn)(nil)

// conner is implemented by pooled executors that can pin a connection, so
// an INSERT and its last-key query run on the same session.
type conner interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Engine assembles, caches and executes commands for mapped record types.
//
// Thread-safety model:
//   - Templates, schemas and plans are built outside the lock and published
//     under it; the first published entry wins
//   - Builders returned by NewInsert, NewSelect etc. are single-owner
//   - WithExecutor returns an Engine sharing every cache
type Engine struct {
	exec Executor
	sh   *shared
}

// shared is the cache state common to an Engine and its WithExecutor
// copies.
type shared struct {
	reg     *schema.Registry
	plans   *marshal.Cache
	dialect querysql.Dialect
	conv    marshal.Converter
	fac     marshal.Factory
	log     *logrus.Entry

	mu        sync.RWMutex
	templates map[templateKey]any
}

type templateKey struct {
	t    reflect.Type
	kind string
}

// EngineOption configures an Engine.
type EngineOption func(*shared)

// WithDialect sets the SQL dialect. Default: querysql.SQLite.
func WithDialect(d querysql.Dialect) EngineOption {
	return func(s *shared) {
		s.dialect = d
	}
}

// WithRegistry shares an existing schema registry.
func WithRegistry(reg *schema.Registry) EngineOption {
	return func(s *shared) {
		s.reg = reg
	}
}

// WithLogger sets the logger for template builds and executed SQL.
func WithLogger(log *logrus.Entry) EngineOption {
	return func(s *shared) {
		s.log = log
	}
}

// WithConverter replaces the materializer's value converter.
func WithConverter(conv marshal.Converter) EngineOption {
	return func(s *shared) {
		s.conv = conv
	}
}

// WithFactory replaces the record allocator.
func WithFactory(fac marshal.Factory) EngineOption {
	return func(s *shared) {
		s.fac = fac
	}
}

// New creates an Engine executing through exec.
func New(exec Executor, opts ...EngineOption) *Engine {
	sh := &shared{
		dialect:   querysql.SQLite,
		conv:      marshal.DefaultConverter{},
		fac:       marshal.DefaultFactory{},
		log:       logging.Discard(),
		templates: make(map[templateKey]any),
	}
	for _, opt := range opts {
		opt(sh)
	}
	if sh.reg == nil {
		sh.reg = schema.NewRegistry(schema.WithLogger(sh.log))
	}
	sh.plans = marshal.NewCache(sh.reg, sh.log)

	return &Engine{exec: exec, sh: sh}
}

// WithExecutor returns an Engine running on ex (for example a *sql.Tx)
// that shares this Engine's caches.
func (e *Engine) WithExecutor(ex Executor) *Engine {
	return &Engine{exec: ex, sh: e.sh}
}

// Registry returns the schema registry.
func (e *Engine) Registry() *schema.Registry {
	return e.sh.reg
}

// Dialect returns the SQL dialect.
func (e *Engine) Dialect() querysql.Dialect {
	return e.sh.dialect
}

// Executor returns the executor commands run on.
func (e *Engine) Executor() Executor {
	return e.exec
}

// template returns the cached template of kind for t, building it from
// t's plan on first use.
func (e *Engine) template(t reflect.Type, kind string, build func(*marshal.Plan) (any, error)) (any, error) {
	key := templateKey{t: t, kind: kind}

	e.sh.mu.RLock()
	tpl, ok := e.sh.templates[key]
	e.sh.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	plan, err := e.sh.plans.Plan(t)
	if err != nil {
		return nil, err
	}
	built, err := build(plan)
	if err != nil {
		return nil, fmt.Errorf("%s template for %s: %w", kind, t, err)
	}

	e.sh.mu.Lock()
	if existing, ok := e.sh.templates[key]; ok {
		e.sh.mu.Unlock()
		return existing, nil
	}
	e.sh.templates[key] = built
	e.sh.mu.Unlock()

	e.sh.log.WithFields(logrus.Fields{
		"type": t.String(),
		"kind": kind,
	}).Debug("template built")

	return built, nil
}

func (e *Engine) execSQL(ctx context.Context, ex Executor, stmt string, args []any) (sql.Result, error) {
	e.sh.log.WithFields(logrus.Fields{
		"sql":  stmt,
		"args": len(args),
	}).Debug("sql executed")

	res, err := ex.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", stmt, err)
	}
	return res, nil
}

func (e *Engine) querySQL(ctx context.Context, ex Executor, stmt string, args []any) (*sql.Rows, error) {
	e.sh.log.WithFields(logrus.Fields{
		"sql":  stmt,
		"args": len(args),
	}).Debug("sql executed")

	rows, err := ex.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", stmt, err)
	}
	return rows, nil
}
