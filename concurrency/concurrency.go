// Package concurrency implements the serialization-graph concurrency
// controller: first-committer-wins (FCW) over committed writers, plus
// WR/WW/RW edge tracking and cycle detection used to reject write-skew
// anomalies (spec §4.5).
package concurrency

import (
	"errors"
	"fmt"
	"sort"
)

// lastWriter records the most recent committer of a variable.
type lastWriter struct {
	txID     string
	commitTS int
}

// Controller owns last-writer-per-variable, per-transaction write/read
// history, and the serialization graph.
type Controller struct {
	lastWriter   map[int]lastWriter
	writeHistory map[string]map[int]int // tx -> variable -> commitTS
	readHistory  map[string]map[int]bool
	graph        map[string]map[string]bool // tx -> set of out-edges
}

// New returns an empty Controller.
func New() *Controller {
	return &Controller{
		lastWriter:   make(map[int]lastWriter),
		writeHistory: make(map[string]map[int]int),
		readHistory:  make(map[string]map[int]bool),
		graph:        make(map[string]map[string]bool),
	}
}

// RegisterTransaction ensures a graph node exists for tx.
func (c *Controller) RegisterTransaction(tx string) {
	if _, ok := c.graph[tx]; !ok {
		c.graph[tx] = make(map[string]bool)
	}
}

func (c *Controller) addEdge(from, to string) {
	if from == to {
		return
	}
	c.RegisterTransaction(from)
	c.RegisterTransaction(to)
	c.graph[from][to] = true
}

// RecordRead records that tx read variable i at versionTS, and adds a WR
// edge from the version's writer to tx, if that writer is known and isn't
// tx itself.
func (c *Controller) RecordRead(tx string, i, versionTS int) {
	if c.readHistory[tx] == nil {
		c.readHistory[tx] = make(map[int]bool)
	}
	c.readHistory[tx][i] = true

	writer := c.findWriterOfVersion(i, versionTS)
	if writer != "" && writer != tx {
		c.addEdge(writer, tx)
	}
}

// findWriterOfVersion returns the transaction whose committed write of
// variable i landed at commitTS, or "" if none is tracked (e.g. it's the
// seed version at ts 0).
func (c *Controller) findWriterOfVersion(i, commitTS int) string {
	for tx, vars := range c.writeHistory {
		if ts, ok := vars[i]; ok && ts == commitTS {
			return tx
		}
	}
	return ""
}

// CheckFCW enforces first-committer-wins: for each variable tx intends to
// write, if a committed writer's commit_ts is later than tx's begin_ts, tx
// must abort. Iterates the write set's variables ascending so the abort
// reason is deterministic when more than one conflict exists.
func (c *Controller) CheckFCW(tx string, beginTS int, writeVars []int) error {
	sorted := append([]int(nil), writeVars...)
	sort.Ints(sorted)
	for _, i := range sorted {
		lw, ok := c.lastWriter[i]
		if !ok || lw.txID == tx {
			continue
		}
		if lw.commitTS > beginTS {
			return fmt.Errorf("First-committer-wins conflict on x%d with %s", i, lw.txID)
		}
	}
	return nil
}

// CheckSerializable adds WW edges (prior committed writer -> tx) and RW
// edges (prior reader -> tx, i.e. anti-dependency) for every variable tx
// writes, then runs cycle detection from tx. Any cycle reachable from tx
// must pass through tx, since tx's edges are the only ones that just
// changed.
func (c *Controller) CheckSerializable(tx string, writeVars []int) error {
	sorted := append([]int(nil), writeVars...)
	sort.Ints(sorted)

	for _, i := range sorted {
		if lw, ok := c.lastWriter[i]; ok && lw.txID != tx {
			c.addEdge(lw.txID, tx)
		}
		for _, reader := range c.readersOf(i) {
			if reader != tx {
				c.addEdge(reader, tx)
			}
		}
	}

	if c.hasCycleFrom(tx) {
		return errors.New("Serialization cycle detected")
	}
	return nil
}

// readersOf returns, in a stable (sorted) order, every transaction that has
// i in its read history.
func (c *Controller) readersOf(i int) []string {
	var out []string
	for tx, vars := range c.readHistory {
		if vars[i] {
			out = append(out, tx)
		}
	}
	sort.Strings(out)
	return out
}

// hasCycleFrom runs DFS with a visited set and recursion stack starting at
// start; a back-edge to a node still on the stack means a cycle.
func (c *Controller) hasCycleFrom(start string) bool {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		neighbors := make([]string, 0, len(c.graph[node]))
		for n := range c.graph[node] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		for _, next := range neighbors {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[node] = false
		return false
	}
	return visit(start)
}

// Commit records tx's committed writes: last_writer[i] := (tx, commitTS),
// write_history[tx][i] := commitTS.
func (c *Controller) Commit(tx string, commitTS int, writeVars []int) {
	if c.writeHistory[tx] == nil {
		c.writeHistory[tx] = make(map[int]int)
	}
	for _, i := range writeVars {
		c.lastWriter[i] = lastWriter{txID: tx, commitTS: commitTS}
		c.writeHistory[tx][i] = commitTS
	}
}

// Abort purges tx's node, every inbound edge to it from other nodes, and
// its read/write history, so it can never poison a future cycle check.
func (c *Controller) Abort(tx string) {
	delete(c.graph, tx)
	for _, edges := range c.graph {
		delete(edges, tx)
	}
	delete(c.readHistory, tx)
	delete(c.writeHistory, tx)
}
