package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/roach88/relmap/internal/ir"
	"github.com/roach88/relmap/internal/queryir"
	"github.com/roach88/relmap/internal/schema"
)

// ErrSchemaDrift is returned by Migrate when a table exists with a
// different mapped shape than the record type now declares.
var ErrSchemaDrift = errors.New("schema drift")

// schemaTable records one fingerprint per created table.
var schemaTable = &queryir.CreateTable{
	Table: queryir.Table{Name: "relmap_schema"},
	Columns: []queryir.ColumnDef{
		{Name: "table_name", Type: queryir.TypeString, Length: 255, PrimaryKey: true},
		{Name: "fingerprint", Type: queryir.TypeString, Length: 64, NotNull: true},
		{Name: "seq", Type: queryir.TypeInt64, NotNull: true},
	},
	IfNotExists: true,
}

// TableState is the outcome of Migrate for one table.
type TableState struct {
	Table       string `json:"table" yaml:"table"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Created     bool   `json:"created" yaml:"created"`
	Seq         int64  `json:"seq" yaml:"seq"`
}

// Fingerprint returns the fingerprint of a schema's mapped shape.
func Fingerprint(s *schema.Schema) (string, error) {
	v, err := ir.FromStruct(s.Describe())
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", s.Table, err)
	}
	return ir.Fingerprint(ir.DomainSchema, v)
}

// Migrate creates the tables of types (and the tables they reference)
// that do not exist yet. Tables already recorded with the same
// fingerprint are left alone. Every drifted table is reported in one
// error wrapping ErrSchemaDrift, and nothing is created.
//
// All tables created by one call share a seq number, one past the highest
// recorded.
func (s *Store) Migrate(ctx context.Context, reg *schema.Registry, types ...reflect.Type) ([]TableState, error) {
	ordered, err := orderedSchemas(reg, types)
	if err != nil {
		return nil, err
	}

	var states []TableState
	err = s.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCommand(ctx, tx, schemaTable); err != nil {
			return err
		}
		recorded, seq, err := s.recorded(ctx, tx)
		if err != nil {
			return err
		}
		seq++

		var drifted []string
		states = make([]TableState, 0, len(ordered))
		for _, sc := range ordered {
			fp, err := Fingerprint(sc)
			if err != nil {
				return err
			}
			st := TableState{Table: sc.Table, Fingerprint: fp}
			if prev, ok := recorded[sc.Table]; ok {
				if prev.fingerprint != fp {
					drifted = append(drifted, fmt.Sprintf("%s (recorded %.12s, declared %.12s)", sc.Table, prev.fingerprint, fp))
				}
				st.Seq = prev.seq
				states = append(states, st)
				continue
			}
			st.Created, st.Seq = true, seq
			states = append(states, st)
		}
		if len(drifted) > 0 {
			return fmt.Errorf("%w: %s", ErrSchemaDrift, strings.Join(drifted, ", "))
		}

		for i, sc := range ordered {
			if !states[i].Created {
				continue
			}
			if err := s.createTable(ctx, tx, reg, sc, states[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

type recordedTable struct {
	fingerprint string
	seq         int64
}

func (s *Store) recorded(ctx context.Context, tx *sql.Tx) (map[string]recordedTable, int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT table_name, fingerprint, seq FROM relmap_schema ORDER BY table_name`)
	if err != nil {
		return nil, 0, fmt.Errorf("read relmap_schema: %w", err)
	}
	defer rows.Close()

	out := make(map[string]recordedTable)
	var maxSeq int64
	for rows.Next() {
		var (
			name string
			rt   recordedTable
		)
		if err := rows.Scan(&name, &rt.fingerprint, &rt.seq); err != nil {
			return nil, 0, fmt.Errorf("scan relmap_schema: %w", err)
		}
		out[name] = rt
		maxSeq = max(maxSeq, rt.seq)
	}
	return out, maxSeq, rows.Err()
}

func (s *Store) createTable(ctx context.Context, tx *sql.Tx, reg *schema.Registry, sc *schema.Schema, st TableState) error {
	ct, indexes, err := TableCommands(reg, sc)
	if err != nil {
		return err
	}
	if err := s.execCommand(ctx, tx, ct); err != nil {
		return err
	}
	for _, idx := range indexes {
		if err := s.execCommand(ctx, tx, idx); err != nil {
			return err
		}
	}

	insert := &queryir.Insert{
		Table:   schemaTable.Table,
		Columns: []string{"table_name", "fingerprint", "seq"},
		Values: []queryir.Expr{
			queryir.Param{Value: st.Table},
			queryir.Param{Value: st.Fingerprint},
			queryir.Param{Value: st.Seq},
		},
	}
	if err := s.execCommand(ctx, tx, insert); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"table":       st.Table,
		"fingerprint": st.Fingerprint,
		"seq":         st.Seq,
	}).Info("table created")
	return nil
}

func (s *Store) execCommand(ctx context.Context, tx *sql.Tx, cmd queryir.Command) error {
	stmt, err := s.dialect.Compile(cmd)
	if err != nil {
		return err
	}
	s.log.WithField("sql", stmt.SQL).Debug("sql executed")
	if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return fmt.Errorf("exec %q: %w", stmt.SQL, err)
	}
	return nil
}
