// Package store implements the multiversion store keyed by (site, variable):
// an append-only list of timestamped versions per key, with point lookup by
// timestamp. It holds no knowledge of site availability or replication —
// that lives in the site and router packages.
package store

import (
	"fmt"
	"sort"

	"github.com/sharedcode/simdb"
)

// Version is a single ⟨timestamp, value⟩ pair for a variable at a site.
type Version struct {
	Timestamp int
	Value     int
}

// Store holds store[site][variable] = [versions...], versions kept in
// strictly increasing timestamp order.
type Store struct {
	data map[int]map[int][]Version
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[int]map[int][]Version)}
}

// InitSite allocates site s and seeds each variable in vars with ⟨0, 10*i⟩,
// the initial value of xi at logical time 0 (spec §3).
func (s *Store) InitSite(site int, vars []int) {
	vs, ok := s.data[site]
	if !ok {
		vs = make(map[int][]Version)
		s.data[site] = vs
	}
	for _, i := range vars {
		vs[i] = []Version{{Timestamp: 0, Value: 10 * i}}
	}
}

// HasVariable reports whether variable i is held at site.
func (s *Store) HasVariable(site, i int) bool {
	vs, ok := s.data[site]
	if !ok {
		return false
	}
	_, ok = vs[i]
	return ok
}

// AddVersion appends a new version for ⟨site, i⟩. Appending at a timestamp
// that does not strictly increase the sequence is a programmer error (spec
// §4.1, §7): it never happens from correctly sequenced directive processing,
// so it is reported as an internal simdb.Error rather than resolved
// silently.
func (s *Store) AddVersion(site, i, ts, value int) error {
	vs, ok := s.data[site]
	if !ok {
		return simdb.Error{Code: simdb.UnknownSite, Err: fmt.Errorf("site %d not initialized", site), UserData: site}
	}
	versions, ok := vs[i]
	if !ok {
		return simdb.Error{Code: simdb.UnknownVariable, Err: fmt.Errorf("variable x%d not present at site %d", i, site), UserData: i}
	}
	if len(versions) > 0 && ts <= versions[len(versions)-1].Timestamp {
		return simdb.Error{
			Code:     simdb.InvalidVersion,
			Err:      fmt.Errorf("non-increasing timestamp %d appended after %d for x%d@site%d", ts, versions[len(versions)-1].Timestamp, i, site),
			UserData: ts,
		}
	}
	vs[i] = append(versions, Version{Timestamp: ts, Value: value})
	return nil
}

// GetVersion returns the version with the maximal timestamp <= ts, or false
// if none exists (either the site/variable is unknown or every version
// postdates ts). The list is short in practice (one entry per committed
// write), so linear scan from the end suffices.
func (s *Store) GetVersion(site, i, ts int) (Version, bool) {
	versions, ok := s.data[site][i]
	if !ok {
		return Version{}, false
	}
	for j := len(versions) - 1; j >= 0; j-- {
		if versions[j].Timestamp <= ts {
			return versions[j], true
		}
	}
	return Version{}, false
}

// GetLatest returns the most recent version of ⟨site, i⟩, or false if none.
func (s *Store) GetLatest(site, i int) (Version, bool) {
	versions, ok := s.data[site][i]
	if !ok || len(versions) == 0 {
		return Version{}, false
	}
	return versions[len(versions)-1], true
}

// AllVariables returns the variable indexes held at site, ascending, for
// dump rendering.
func (s *Store) AllVariables(site int) []int {
	vs, ok := s.data[site]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(vs))
	for i := range vs {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
