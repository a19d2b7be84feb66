// Package router implements the replication router: given a variable and a
// read timestamp (or "write now"), it selects the eligible site(s) under
// the available-copies rule with the continuity constraint (spec §4.3).
package router

import (
	"sort"

	"github.com/sharedcode/simdb/site"
	"github.com/sharedcode/simdb/store"
)

// Router reads through a Store and a site.Manager; it owns neither.
type Router struct {
	store *store.Store
	sites *site.Manager
}

// New builds a Router over the given store and site manager.
func New(st *store.Store, sm *site.Manager) *Router {
	return &Router{store: st, sites: sm}
}

// ReadTarget is the outcome of a successful select_read_site: the chosen
// site and the timestamp of the version found there.
type ReadTarget struct {
	Site      int
	VersionTS int
}

// SelectReadSite implements available-copies-with-continuity: it tries
// candidate sites in ascending site ID order and returns the first one that
// passes all three gates -- can-read, has a version at or before beginTS,
// and was continuously up from that version's commit through beginTS.
func (r *Router) SelectReadSite(i, beginTS int) (ReadTarget, bool) {
	for _, s := range r.candidateSites(i) {
		if !r.sites.CanRead(s, i) {
			continue
		}
		v, ok := r.store.GetVersion(s, i, beginTS)
		if !ok {
			continue
		}
		if !r.sites.WasContinuouslyUp(s, v.Timestamp, beginTS) {
			continue
		}
		return ReadTarget{Site: s, VersionTS: v.Timestamp}, true
	}
	return ReadTarget{}, false
}

// SelectWriteSites snapshots where a write of variable i would land right
// now: every currently-available site holding xi if replicated, or the home
// site alone (if available) otherwise.
func (r *Router) SelectWriteSites(i int) []int {
	var out []int
	for _, s := range r.SitesForVariable(i) {
		if r.sites.IsAvailable(s) {
			out = append(out, s)
		}
	}
	return out
}

// SitesForVariable returns every site that physically holds xi, ascending.
func (r *Router) SitesForVariable(i int) []int {
	if site.IsReplicated(i) {
		out := make([]int, 0, site.NSites)
		for s := 1; s <= site.NSites; s++ {
			out = append(out, s)
		}
		return out
	}
	return []int{site.HomeSite(i)}
}

// candidateSites is SitesForVariable, kept as a distinct accessor so
// SelectReadSite's iteration order is explicit and documented as ascending
// site ID (spec §9 determinism requirement).
func (r *Router) candidateSites(i int) []int {
	sites := r.SitesForVariable(i)
	sort.Ints(sites)
	return sites
}
