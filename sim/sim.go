// Package sim provides the Simulator facade that owns one instance of the
// transaction manager (which in turn owns the store, site manager, router
// and concurrency controller) and renders dump output. It is the single
// owned aggregate a `reset()` directive replaces wholesale (spec §5, §9).
package sim

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sharedcode/simdb/directive"
	"github.com/sharedcode/simdb/site"
	"github.com/sharedcode/simdb/txn"
)

// Simulator owns the transaction manager and renders directive output.
type Simulator struct {
	mgr *txn.Manager
}

// New returns a freshly seeded Simulator.
func New() *Simulator {
	return &Simulator{mgr: txn.New()}
}

// Dispatch applies a single parsed directive, writing its report line(s) to
// out. Unrecognized directive kinds never reach here: the driver filters
// markers and handles Reset itself, since Reset replaces the whole
// Simulator.
func (s *Simulator) Dispatch(d directive.Directive, out io.Writer) {
	switch d.Kind {
	case directive.Begin:
		s.mgr.Begin(d.Tx, out)
	case directive.End:
		s.mgr.End(d.Tx, out)
	case directive.Read:
		s.mgr.Read(d.Tx, d.Var, out)
	case directive.Write:
		s.mgr.Write(d.Tx, d.Var, d.Value, out)
	case directive.Fail:
		s.fail(d.Site, out)
	case directive.Recover:
		s.recover(d.Site, out)
	case directive.DumpAll:
		s.dumpAll(out)
	case directive.DumpVariable:
		s.dumpVariable(d.Var, out)
	case directive.DumpSite:
		s.dumpSite(d.Site, out)
	}
}

// fail transitions a site to Failed and aborts its accessors before the
// clock advances, preserving the teacher-observed ordering (spec §9).
func (s *Simulator) fail(siteID int, out io.Writer) {
	now := s.mgr.Now()
	s.mgr.Sites().Fail(siteID, now)
	s.mgr.HandleSiteFailure(siteID, out)
	s.mgr.Advance()
}

func (s *Simulator) recover(siteID int, out io.Writer) {
	now := s.mgr.Now()
	s.mgr.Sites().Recover(siteID, now)
	s.mgr.Advance()
}

func (s *Simulator) dumpAll(out io.Writer) {
	printed := false
	for i := 1; i <= site.NVars; i++ {
		line, changed := s.variableLine(i)
		if changed {
			fmt.Fprintln(out, line)
			printed = true
		}
	}
	if printed {
		fmt.Fprintln(out, "All other variables have their initial values.")
	} else {
		fmt.Fprintln(out, "All variables have their initial values.")
	}
}

// variableLine renders one dump() line for variable i, and reports whether
// its current value differs from the initial 10*i. A replicated variable is
// judged by its latest version at site 1 only; other sites are not compared.
func (s *Simulator) variableLine(i int) (string, bool) {
	initial := 10 * i
	if site.IsReplicated(i) {
		v, ok := s.mgr.Store().GetLatest(1, i)
		if !ok || v.Value == initial {
			return "", false
		}
		return fmt.Sprintf("x%d: %d at all sites", i, v.Value), true
	}
	home := site.HomeSite(i)
	v, ok := s.mgr.Store().GetLatest(home, i)
	if !ok || v.Value == initial {
		return "", false
	}
	return fmt.Sprintf("x%d: %d at site %d", i, v.Value, home), true
}

func (s *Simulator) dumpVariable(i int, out io.Writer) {
	if site.IsReplicated(i) {
		var parts []string
		for _, siteID := range s.mgr.Router().SitesForVariable(i) {
			v, ok := s.mgr.Store().GetLatest(siteID, i)
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("%d at site %d", v.Value, siteID))
		}
		fmt.Fprintf(out, "x%d: %s\n", i, strings.Join(parts, ", "))
		return
	}
	home := site.HomeSite(i)
	v, _ := s.mgr.Store().GetLatest(home, i)
	fmt.Fprintf(out, "x%d: %d at site %d\n", i, v.Value, home)
}

func (s *Simulator) dumpSite(siteID int, out io.Writer) {
	vars := s.mgr.Store().AllVariables(siteID)
	sort.Ints(vars)
	for _, i := range vars {
		v, _ := s.mgr.Store().GetLatest(siteID, i)
		fmt.Fprintf(out, "x%d: %d\n", i, v.Value)
	}
}

// Run processes a directive transcript from r, writing the report to w. It
// partitions the input into independent "// Test <id>" segments, each run
// against a fresh Simulator and preceded by a banner; a file with no
// segment markers runs as a single implicit segment. Each segment that
// contains no explicit dump directive gets an implicit dump() at its end
// (spec §6).
func Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	type segment struct {
		id    string
		lines []string
	}
	var segments []segment
	current := segment{}
	started := false

	for scanner.Scan() {
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if d, ok := directive.Parse(trimmed); ok && d.IsMarker {
			if started || len(current.lines) > 0 {
				segments = append(segments, current)
			}
			current = segment{id: d.TestName}
			started = true
			continue
		}
		current.lines = append(current.lines, raw)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	segments = append(segments, current)

	multi := len(segments) > 1 || segments[0].id != ""
	for _, seg := range segments {
		if multi {
			fmt.Fprintf(w, "\n============== TEST %s ===============\n\n", seg.id)
		}
		runSegment(seg.lines, w)
	}
	return nil
}

func runSegment(lines []string, w io.Writer) {
	s := New()
	sawDump := false
	for _, raw := range lines {
		stripped := directive.StripComment(raw)
		trimmed := strings.TrimSpace(stripped)
		if trimmed == "" {
			continue
		}
		d, ok := directive.Parse(trimmed)
		if !ok {
			fmt.Fprintln(w, directive.ParseWarning(raw))
			continue
		}
		switch d.Kind {
		case directive.Reset:
			s = New()
		case directive.DumpAll, directive.DumpVariable, directive.DumpSite:
			sawDump = true
			s.Dispatch(d, w)
		default:
			s.Dispatch(d, w)
		}
	}
	if !sawDump {
		s.dumpAll(w)
	}
}

