// Package pathfind computes weighted shortest paths over the unbounded hex grid.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

const (
	// SearchLimit bounds |q| and |r| of every expanded node so the search
	// terminates on an unbounded grid. Paths leaving the envelope are not found.
	SearchLimit = 200

	// DefaultMaxExpansions is a hard cap on popped nodes. The envelope holds
	// (2*SearchLimit+1)^2 cells, so the cap is never reached for sane costs.
	DefaultMaxExpansions = 1 << 18
)

// CostFunc returns the multiplicative cost of entering a hex from any
// neighbor. math.Inf(1) marks the hex as impassable.
type CostFunc func(a hexgrid.Axial) float64

// Option configures a search.
type Option func(*search)

// WithMaxExpansions overrides the expansion cap.
func WithMaxExpansions(n int) Option {
	return func(s *search) {
		if n > 0 {
			s.maxExpansions = n
		}
	}
}

// WithLimit overrides the |q|,|r| envelope.
func WithLimit(limit int) Option {
	return func(s *search) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

type search struct {
	limit         int
	maxExpansions int
}

// FindPath computes a shortest path using the A* algorithm with hex distance
// as heuristic. The returned path includes start and goal in traversal order.
// ok is false when the goal is impassable, outside the envelope, or cannot be
// reached within the envelope and expansion cap.
//
// FindPath keeps all state on its own stack and is safe to call concurrently.
func FindPath(start, goal hexgrid.Axial, cost CostFunc, opts ...Option) (path []hexgrid.Axial, ok bool) {
	s := search{limit: SearchLimit, maxExpansions: DefaultMaxExpansions}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	if !hexgrid.WithinBounds(goal, s.limit) || !passable(cost(goal)) {
		return nil, false
	}
	if start == goal {
		return []hexgrid.Axial{start}, true
	}

	open := &nodePQ{}
	heap.Init(open)
	var seq uint64
	push := func(a hexgrid.Axial, g float64) {
		h := float64(hexgrid.Distance(a, goal))
		heap.Push(open, &pqNode{a: a, g: g, f: g + h, h: h, seq: seq})
		seq++
	}

	g := map[hexgrid.Axial]float64{start: 0}
	came := map[hexgrid.Axial]hexgrid.Axial{}
	closed := map[hexgrid.Axial]bool{}
	push(start, 0)

	expansions := 0
	for open.Len() > 0 {
		node := heap.Pop(open).(*pqNode)
		cur := node.a
		if closed[cur] {
			continue
		}
		// stale entry superseded by a cheaper push
		if node.g > g[cur] {
			continue
		}
		closed[cur] = true
		if cur == goal {
			return reconstruct(came, start, goal), true
		}
		expansions++
		if expansions > s.maxExpansions {
			return nil, false
		}

		for _, nb := range hexgrid.Neighbors(cur) {
			if closed[nb] {
				continue
			}
			if !hexgrid.WithinBounds(nb, s.limit) {
				continue
			}
			step := cost(nb)
			if !passable(step) {
				continue
			}
			tentative := g[cur] + step
			if old, seen := g[nb]; !seen || tentative < old {
				g[nb] = tentative
				came[nb] = cur
				push(nb, tentative)
			}
		}
	}
	return nil, false
}

func passable(c float64) bool {
	return c > 0 && !math.IsInf(c, 0) && !math.IsNaN(c)
}

func reconstruct(came map[hexgrid.Axial]hexgrid.Axial, start, goal hexgrid.Axial) []hexgrid.Axial {
	path := []hexgrid.Axial{goal}
	for k := goal; k != start; {
		k = came[k]
		path = append(path, k)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PQ implementation. Ties on f prefer the node closer to the goal, then the
// earlier insertion, which keeps results deterministic within a run.
type pqNode struct {
	a   hexgrid.Axial
	g   float64
	f   float64
	h   float64
	seq uint64
}

type nodePQ []*pqNode

func (p nodePQ) Len() int { return len(p) }
func (p nodePQ) Less(i, j int) bool {
	if p[i].f != p[j].f {
		return p[i].f < p[j].f
	}
	if p[i].h != p[j].h {
		return p[i].h < p[j].h
	}
	return p[i].seq < p[j].seq
}
func (p nodePQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *nodePQ) Push(x any) { *p = append(*p, x.(*pqNode)) }
func (p *nodePQ) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return x
}
