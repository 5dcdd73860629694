package marshal

// Cursor is a positional view of the current result row. Value returns
// nil for SQL NULL.
type Cursor interface {
	Len() int
	Value(i int) any
}

// SliceCursor is a Cursor over an in-memory row.
type SliceCursor []any

// Len implements Cursor.
func (c SliceCursor) Len() int {
	return len(c)
}

// Value implements Cursor.
func (c SliceCursor) Value(i int) any {
	return c[i]
}

// ParamSink receives bound column values in binder order.
type ParamSink interface {
	Add(name string, value any)
}

// ParamList is an ordered ParamSink with lookup by name.
type ParamList struct {
	names  []string
	values []any
	index  map[string]int
}

// Add implements ParamSink. A repeated name overwrites the earlier value.
func (l *ParamList) Add(name string, value any) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if i, ok := l.index[name]; ok {
		l.values[i] = value
		return
	}
	l.index[name] = len(l.names)
	l.names = append(l.names, name)
	l.values = append(l.values, value)
}

// Lookup returns the value bound under name.
func (l *ParamList) Lookup(name string) (any, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return l.values[i], true
}

// Names returns the bound names in order.
func (l *ParamList) Names() []string {
	return l.names
}

// Values returns the bound values in order.
func (l *ParamList) Values() []any {
	return l.values
}

// Len returns the number of bound values.
func (l *ParamList) Len() int {
	return len(l.names)
}

// Reset empties the list for reuse.
func (l *ParamList) Reset() {
	l.names = l.names[:0]
	l.values = l.values[:0]
	clear(l.index)
}
