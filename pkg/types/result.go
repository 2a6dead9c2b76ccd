package types

import (
	"fmt"
	"iter"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ResultSet is the immutable mapping of id to Entry produced by one rebuild.
// A ResultSet is never patched; a newer rebuild replaces it wholesale.
// Callers must not modify the slices or maps reachable from returned entries.
type ResultSet struct {
	entries     map[string]Entry
	ids         []string // sorted
	fingerprint uint64
}

var emptyResultSet = &ResultSet{entries: map[string]Entry{}}

// EmptyResultSet returns the canonical empty result set
func EmptyResultSet() *ResultSet {
	return emptyResultSet
}

// NewResultSet builds a result set from entries, rejecting invalid or duplicate ids
func NewResultSet(entries []Entry) (*ResultSet, error) {
	rs := &ResultSet{
		entries: make(map[string]Entry, len(entries)),
		ids:     make([]string, 0, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := rs.entries[e.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntryID, e.ID)
		}
		rs.entries[e.ID] = e
		rs.ids = append(rs.ids, e.ID)
	}

	slices.Sort(rs.ids)
	rs.fingerprint = rs.computeFingerprint()
	return rs, nil
}

// Get returns the entry with the given id
func (rs *ResultSet) Get(id string) (Entry, bool) {
	e, ok := rs.entries[id]
	return e, ok
}

// Len returns the number of entries
func (rs *ResultSet) Len() int {
	return len(rs.entries)
}

// IDs returns the entry ids in ascending order
func (rs *ResultSet) IDs() []string {
	return slices.Clone(rs.ids)
}

// All iterates over the entries in ascending id order
func (rs *ResultSet) All() iter.Seq2[string, Entry] {
	return func(yield func(string, Entry) bool) {
		for _, id := range rs.ids {
			if !yield(id, rs.entries[id]) {
				return
			}
		}
	}
}

// Fingerprint returns a content digest; equal contents give equal fingerprints
func (rs *ResultSet) Fingerprint() uint64 {
	return rs.fingerprint
}

func (rs *ResultSet) computeFingerprint() uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	writeOpt := func(s *string) {
		if s == nil {
			_, _ = d.Write([]byte{1})
			return
		}
		write(*s)
	}

	for _, id := range rs.ids {
		e := rs.entries[id]
		write(e.ID)
		writeOpt(e.Title)
		writeOpt(e.Taxon)
		write(strconv.Itoa(len(e.Tags)))
		for _, tag := range e.Tags {
			write(tag)
		}
		write(e.Route)
		keys := make([]string, 0, len(e.Metas))
		for k := range e.Metas {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		write(strconv.Itoa(len(keys)))
		for _, k := range keys {
			write(k)
			write(e.Metas[k])
		}
		write(e.SourcePath)
	}
	return d.Sum64()
}
