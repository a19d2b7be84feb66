// Package txn implements the transaction manager: it owns transaction
// objects, buffers writes, dispatches reads through the router, and runs
// the commit protocol against the site manager, version store and
// concurrency controller (spec §4.4).
package txn

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/sharedcode/simdb"
	"github.com/sharedcode/simdb/concurrency"
	"github.com/sharedcode/simdb/router"
	"github.com/sharedcode/simdb/site"
	"github.com/sharedcode/simdb/store"
)

// Status is a transaction's lifecycle state.
type Status int

const (
	Active Status = iota
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Active:
		return "Active"
	case Committed:
		return "Committed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// readEntry is a read_set entry: the site a value was read from and the
// version timestamp of that read.
type readEntry struct {
	site      int
	versionTS int
}

// writeEntry is a write_set entry: the buffered value and the target sites
// snapshotted at write time.
type writeEntry struct {
	value   int
	targets []int
}

// Transaction is one transaction's full state (spec §3).
type Transaction struct {
	Name         string
	Status       Status
	BeginTS      int
	CommitTS     int
	correlation  simdb.UUID
	readSet      map[int]readEntry
	writeSet     map[int]writeEntry
	touchedSites map[int]bool
}

func newTransaction(name string, beginTS int) *Transaction {
	return &Transaction{
		Name:         name,
		Status:       Active,
		BeginTS:      beginTS,
		correlation:  simdb.NewUUID(),
		readSet:      make(map[int]readEntry),
		writeSet:     make(map[int]writeEntry),
		touchedSites: make(map[int]bool),
	}
}

func (t *Transaction) touch(sites ...int) {
	for _, s := range sites {
		t.touchedSites[s] = true
	}
}

func (t *Transaction) touchedSitesSorted() []int {
	out := make([]int, 0, len(t.touchedSites))
	for s := range t.touchedSites {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func (t *Transaction) writeVarsSorted() []int {
	out := make([]int, 0, len(t.writeSet))
	for i := range t.writeSet {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Manager owns every transaction plus the monotone logical clock, and
// orchestrates the store, site manager, router and concurrency controller
// to implement begin/read/write/end (spec §4.4).
type Manager struct {
	now   int
	txns  map[string]*Transaction
	store *store.Store
	sites *site.Manager
	route *router.Router
	conc  *concurrency.Controller
}

// New builds a Manager wired to freshly-initialized store, site manager,
// router and concurrency controller, seeded per spec §3 placement rules.
func New() *Manager {
	st := store.New()
	sm := site.New()
	for s := 1; s <= site.NSites; s++ {
		st.InitSite(s, site.VariablesAt(s))
	}
	return &Manager{
		txns:  make(map[string]*Transaction),
		store: st,
		sites: sm,
		route: router.New(st, sm),
		conc:  concurrency.New(),
	}
}

// Now returns the current logical clock value.
func (m *Manager) Now() int { return m.now }

// Store exposes the underlying version store, for dump rendering.
func (m *Manager) Store() *store.Store { return m.store }

// Sites exposes the underlying site manager, for dump rendering and driver
// fail/recover directives.
func (m *Manager) Sites() *site.Manager { return m.sites }

// Router exposes the underlying router, for dump rendering.
func (m *Manager) Router() *router.Router { return m.route }

// Begin starts transaction name. If it already exists, prints a message and
// returns without mutating state.
func (m *Manager) Begin(name string, out io.Writer) {
	if _, exists := m.txns[name]; exists {
		fmt.Fprintf(out, "%s already exists\n", name)
		return
	}
	t := newTransaction(name, m.now)
	m.txns[name] = t
	m.conc.RegisterTransaction(name)
	slog.Debug("begin", "tx", name, "begin_ts", t.BeginTS, "correlation", t.correlation.String())
	m.now++
}

func (m *Manager) requireActive(name string, out io.Writer) (*Transaction, bool) {
	t, ok := m.txns[name]
	if !ok {
		fmt.Fprintf(out, "%s does not exist\n", name)
		return nil, false
	}
	if t.Status != Active {
		fmt.Fprintf(out, "%s is already %s\n", name, t.Status)
		return nil, false
	}
	return t, true
}

// Read implements R(T, xi): buffered-write short-circuit, then
// available-copies routing, then read-set/touched-sites/graph bookkeeping
// (spec §4.4).
func (m *Manager) Read(name string, i int, out io.Writer) {
	t, ok := m.requireActive(name, out)
	if !ok {
		return
	}
	if w, ok := t.writeSet[i]; ok {
		fmt.Fprintf(out, "%s: R(x%d) -> %d (from write set)\n", name, i, w.value)
		return
	}
	target, ok := m.route.SelectReadSite(i, t.BeginTS)
	if !ok {
		fmt.Fprintf(out, "%s: R(x%d) -> cannot read (no eligible site)\n", name, i)
		return
	}
	v, found := m.store.GetVersion(target.Site, i, t.BeginTS)
	if !found || v.Timestamp != target.VersionTS {
		panic(fmt.Sprintf("internal invariant violated: re-fetch of x%d@site%d at ts<=%d mismatched router selection", i, target.Site, t.BeginTS))
	}
	t.readSet[i] = readEntry{site: target.Site, versionTS: v.Timestamp}
	t.touch(target.Site)
	m.conc.RecordRead(name, i, v.Timestamp)
	slog.Debug("read", "tx", name, "var", i, "site", target.Site, "version_ts", v.Timestamp)
	fmt.Fprintf(out, "%s: R(x%d) -> %d\n", name, i, v.Value)
}

// Write implements W(T, xi, v): buffers the value and snapshots its target
// sites now; nothing is installed until commit (spec §4.4).
func (m *Manager) Write(name string, i, value int, out io.Writer) {
	t, ok := m.requireActive(name, out)
	if !ok {
		return
	}
	targets := m.route.SelectWriteSites(i)
	t.writeSet[i] = writeEntry{value: value, targets: targets}
	t.touch(targets...)
	slog.Debug("write", "tx", name, "var", i, "value", value, "targets", targets)
}

// End implements the commit protocol of spec §4.4, in order: touched-site
// availability, write-target availability, FCW, serialization-cycle check,
// then install versions and notify the concurrency controller.
func (m *Manager) End(name string, out io.Writer) {
	t, ok := m.txns[name]
	if !ok {
		fmt.Fprintf(out, "%s does not exist\n", name)
		return
	}
	if t.Status != Active {
		fmt.Fprintf(out, "%s is already %s\n", name, t.Status)
		return
	}

	for _, s := range t.touchedSitesSorted() {
		if !m.sites.IsAvailable(s) {
			m.abort(t, "site failure after access", out)
			return
		}
	}

	for _, i := range t.writeVarsSorted() {
		if len(availableOf(t.writeSet[i].targets, m.sites)) == 0 {
			m.abort(t, "no available site for write", out)
			return
		}
	}

	if err := m.conc.CheckFCW(name, t.BeginTS, t.writeVarsSorted()); err != nil {
		m.abort(t, err.Error(), out)
		return
	}

	if err := m.conc.CheckSerializable(name, t.writeVarsSorted()); err != nil {
		m.abort(t, "Serialization cycle detected", out)
		return
	}

	t.CommitTS = m.now
	for _, i := range t.writeVarsSorted() {
		w := t.writeSet[i]
		for _, s := range availableOf(w.targets, m.sites) {
			if err := m.store.AddVersion(s, i, t.CommitTS, w.value); err != nil {
				panic(err)
			}
			if site.IsReplicated(i) {
				m.sites.EnableReplicatedRead(s, i)
			}
		}
	}
	m.conc.Commit(name, t.CommitTS, t.writeVarsSorted())
	t.Status = Committed
	slog.Debug("commit", "tx", name, "commit_ts", t.CommitTS)
	fmt.Fprintf(out, "%s commits\n", name)
	m.now++
}

func availableOf(sites []int, sm *site.Manager) []int {
	var out []int
	for _, s := range sites {
		if sm.IsAvailable(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) abort(t *Transaction, reason string, out io.Writer) {
	t.Status = Aborted
	m.conc.Abort(t.Name)
	slog.Debug("abort", "tx", t.Name, "reason", reason)
	fmt.Fprintf(out, "%s aborts (%s)\n", t.Name, reason)
}

// HandleSiteFailure aborts every Active transaction that has touched s.
// Invoked immediately after the site manager transitions s to Failed, and
// must run before now advances (spec §9's observable-ordering note).
func (m *Manager) HandleSiteFailure(s int, out io.Writer) {
	for _, name := range m.activeTxnNamesSorted() {
		t := m.txns[name]
		if t.touchedSites[s] {
			m.abort(t, fmt.Sprintf("site %d failed", s), out)
		}
	}
}

func (m *Manager) activeTxnNamesSorted() []string {
	out := make([]string, 0, len(m.txns))
	for name, t := range m.txns {
		if t.Status == Active {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Advance increments the logical clock by one. fail and recover directives
// draw their timestamp from Now() and then call Advance(), the same
// before-then-increment sequencing begin and end use (spec §5).
func (m *Manager) Advance() {
	m.now++
}
