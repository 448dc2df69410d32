// Package iter defines the pull-based mapping stream every algebra
// operator in the executor (C9) implements: the same Next()/io.EOF
// idiom the surrounding engine uses for row iteration, specialized to
// solution mappings instead of rows.
package iter

import (
	"io"

	"github.com/exocortex-kb/sparqlengine/internal/binding"
)

// Mapping is a lazy, pull-based stream of solution mappings. Next
// returns io.EOF once the stream is exhausted; any other error is an
// infrastructure failure and terminates the stream.
type Mapping interface {
	Next() (binding.Mapping, error)
	Close() error
}

// EOF re-exports io.EOF so callers of this package never need to
// import io just to compare against the end-of-stream sentinel.
var EOF = io.EOF

type sliceIter struct {
	rows []binding.Mapping
	pos  int
}

// FromSlice wraps an already-materialized set of mappings in the
// Mapping interface. Several operators in this engine (BGP matching,
// VALUES, ORDER BY's buffered sort, GROUP BY's bucket fold) compute
// their full output before any result is requested; FromSlice is how
// they still present the lazy pull contract to their caller.
func FromSlice(rows []binding.Mapping) Mapping {
	return &sliceIter{rows: rows}
}

func (s *sliceIter) Next() (binding.Mapping, error) {
	if s.pos >= len(s.rows) {
		return binding.Mapping{}, EOF
	}
	m := s.rows[s.pos]
	s.pos++
	return m, nil
}

func (s *sliceIter) Close() error { return nil }

// Collect drains it into a slice. Used by operators that must see every
// upstream mapping before producing output (DISTINCT's dedup set,
// ORDER BY, GROUP BY, the nested-loop join's cached right side).
func Collect(it Mapping) ([]binding.Mapping, error) {
	var out []binding.Mapping
	for {
		m, err := it.Next()
		if err == EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
}
