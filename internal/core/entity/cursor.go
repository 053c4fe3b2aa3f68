package entity

import "sort"

// Cursor is the current read position of a stream. Closed cursors are never
// fetched again during the run.
type Cursor struct {
	ShardID string
	Token   string
	Closed  bool
}

// ShardIteratorTable maps stream name to its cursor.
type ShardIteratorTable map[string]Cursor

// Open returns the names of streams with a usable cursor, sorted.
func (t ShardIteratorTable) Open() []string {
	names := make([]string, 0, len(t))
	for name, c := range t {
		if !c.Closed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy safe to hand out of the loop goroutine.
func (t ShardIteratorTable) Clone() ShardIteratorTable {
	out := make(ShardIteratorTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
