package marshal

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/relmap/internal/schema"
)

// Plan holds the generated procedures of one record type.
type Plan struct {
	Schema *schema.Schema

	steps  []readStep
	width  int
	paths  []string
	binds  []bindStep
	fields []*schema.Field
}

// Paths returns the field path of every cursor position in materializer
// order.
func (p *Plan) Paths() []string {
	return p.paths
}

// Width is the number of cursor columns Materialize reads.
func (p *Plan) Width() int {
	return p.width
}

// BoundFields returns the fields the binder emits, in order.
func (p *Plan) BoundFields() []*schema.Field {
	return p.fields
}

// Materialize fills target, a pointer to the plan's record type, from the
// current row of cur. Nil conv and fac use the defaults.
func (p *Plan) Materialize(target any, cur Cursor, conv Converter, fac Factory) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != p.Schema.Type {
		return fmt.Errorf("materialize: target must be a non-nil *%s, got %T", p.Schema.Type, target)
	}
	if cur.Len() < p.width {
		return fmt.Errorf("materialize %s: cursor has %d columns, need %d", p.Schema.Type, cur.Len(), p.width)
	}
	if conv == nil {
		conv = DefaultConverter{}
	}
	if fac == nil {
		fac = DefaultFactory{}
	}

	e := &env{conv: conv, fac: fac}
	rec := v.Elem()
	for _, step := range p.steps {
		if err := step(rec, cur, e); err != nil {
			return err
		}
	}
	return nil
}

// Bind emits the column values of record (a value or pointer of the plan's
// type) into sink.
func (p *Plan) Bind(sink ParamSink, record any) error {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fmt.Errorf("bind: nil *%s", p.Schema.Type)
		}
		v = v.Elem()
	}
	if v.Type() != p.Schema.Type {
		return fmt.Errorf("bind: record must be %s, got %T", p.Schema.Type, record)
	}

	for _, step := range p.binds {
		if err := step(v, sink); err != nil {
			return err
		}
	}
	return nil
}

type env struct {
	conv Converter
	fac  Factory
}

// accessor locates a field from a record value: every hop but the last
// crosses an inline container, allocating nil pointer containers on
// demand.
type accessor [][]int

func (a accessor) into(index []int) accessor {
	return append(slices.Clone(a), index)
}

func (a accessor) resolve(v reflect.Value, fac Factory) (reflect.Value, bool) {
	for i, hop := range a {
		v = v.FieldByIndex(hop)
		if i == len(a)-1 {
			break
		}
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if fac == nil {
					return reflect.Value{}, false
				}
				v.Set(fac.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
	}
	return v, true
}

// generator builds a Plan, tracking cursor positions and the traversal
// path for cycle detection.
type generator struct {
	reg   *schema.Registry
	root  *schema.Schema
	pos   int
	paths []string
	stack []schema.FieldKey
	names []string
}

func generate(reg *schema.Registry, s *schema.Schema) (*Plan, error) {
	g := &generator{reg: reg, root: s}

	steps, err := g.record(s, "")
	if err != nil {
		return nil, err
	}

	p := &Plan{Schema: s, steps: steps, width: g.pos, paths: g.paths}
	if err := g.binder(p, s, nil); err != nil {
		return nil, err
	}
	return p, nil
}

func (g *generator) enter(f *schema.Field) error {
	key := f.Key()
	if slices.Contains(g.stack, key) {
		return schema.NewCycleError(g.root.Type.String(), append(slices.Clone(g.names), f.Name))
	}
	g.stack = append(g.stack, key)
	g.names = append(g.names, f.Name)
	return nil
}

func (g *generator) leave() {
	g.stack = g.stack[:len(g.stack)-1]
	g.names = g.names[:len(g.names)-1]
}

func (g *generator) path(prefix string, f *schema.Field) string {
	if prefix == "" {
		return f.Path
	}
	return prefix + "." + f.Path
}

// record generates the three passes for a record rooted at s. prefix is
// the field path of the eager join leading here.
func (g *generator) record(s *schema.Schema, prefix string) ([]readStep, error) {
	var steps []readStep

	if err := g.columns(s, nil, prefix, &steps); err != nil {
		return nil, err
	}
	if err := g.joins(s, nil, prefix, &steps); err != nil {
		return nil, err
	}
	if err := g.subqueries(s, nil, prefix, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// columns is pass 1.
func (g *generator) columns(s *schema.Schema, acc accessor, prefix string, steps *[]readStep) error {
	for _, f := range s.Fields {
		switch {
		case f.IsInline:
			if err := g.enter(f); err != nil {
				return err
			}
			err := g.columns(f.InlineSchema, acc.into(f.Index), prefix, steps)
			g.leave()
			if err != nil {
				return err
			}
		case f.IsEager || f.IsSubquery():
		default:
			*steps = append(*steps, g.column(f, acc.into(f.Index), prefix))
		}
	}
	return nil
}

// joins is pass 2.
func (g *generator) joins(s *schema.Schema, acc accessor, prefix string, steps *[]readStep) error {
	for _, f := range s.Fields {
		switch {
		case f.IsInline:
			if err := g.enter(f); err != nil {
				return err
			}
			err := g.joins(f.InlineSchema, acc.into(f.Index), prefix, steps)
			g.leave()
			if err != nil {
				return err
			}
		case f.IsEager:
			if err := g.enter(f); err != nil {
				return err
			}
			step, err := g.join(f, acc.into(f.Index), prefix)
			g.leave()
			if err != nil {
				return err
			}
			*steps = append(*steps, step)
		}
	}
	return nil
}

// subqueries is pass 3.
func (g *generator) subqueries(s *schema.Schema, acc accessor, prefix string, steps *[]readStep) error {
	for _, f := range s.Fields {
		switch {
		case f.IsInline:
			if err := g.enter(f); err != nil {
				return err
			}
			err := g.subqueries(f.InlineSchema, acc.into(f.Index), prefix, steps)
			g.leave()
			if err != nil {
				return err
			}
		case f.IsSubquery():
			*steps = append(*steps, g.column(f, acc.into(f.Index), prefix))
		}
	}
	return nil
}

func (g *generator) column(f *schema.Field, acc accessor, prefix string) readStep {
	pos := g.pos
	g.pos++
	path := g.path(prefix, f)
	g.paths = append(g.paths, path)

	if f.IsReference {
		return referenceStep(acc, pos, path)
	}
	return columnStep(acc, pos, path, setterFor(f.Type))
}

func (g *generator) join(f *schema.Field, acc accessor, prefix string) (readStep, error) {
	joined, err := g.reg.Foreign(f)
	if err != nil {
		return nil, fmt.Errorf("eager field %s: %w", f.Path, err)
	}
	pk, err := joined.PrimaryKey()
	if err != nil {
		return nil, fmt.Errorf("eager field %s: %w", f.Path, err)
	}

	path := g.path(prefix, f)
	start := g.pos
	nested, err := g.record(joined, path)
	if err != nil {
		return nil, err
	}

	keyPos := slices.Index(g.paths[start:], path+"."+pk.Path)
	if keyPos < 0 {
		return nil, fmt.Errorf("eager field %s: key column not selected", f.Path)
	}
	return eagerStep(acc, start+keyPos, f.ForeignType, nested), nil
}
