package pathfind

import (
	"math"
	"sync"
	"testing"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

func uniform(hexgrid.Axial) float64 { return 1 }

func assertValidPath(t *testing.T, path []hexgrid.Axial, start, goal hexgrid.Axial) {
	t.Helper()
	if len(path) == 0 {
		t.Fatalf("empty path")
	}
	if path[0] != start {
		t.Fatalf("path starts at %v, want %v", path[0], start)
	}
	if path[len(path)-1] != goal {
		t.Fatalf("path ends at %v, want %v", path[len(path)-1], goal)
	}
	seen := make(map[hexgrid.Axial]bool, len(path))
	for i, a := range path {
		if seen[a] {
			t.Fatalf("duplicate %v in path", a)
		}
		seen[a] = true
		if i > 0 && hexgrid.Distance(path[i-1], a) != 1 {
			t.Fatalf("non-adjacent step %v -> %v", path[i-1], a)
		}
	}
}

func TestFindPathStraightLine(t *testing.T) {
	start := hexgrid.Axial{Q: 0, R: 0}
	goal := hexgrid.Axial{Q: 5, R: -2}
	path, ok := FindPath(start, goal, uniform)
	if !ok {
		t.Fatalf("expected a path")
	}
	assertValidPath(t, path, start, goal)
	if len(path) != hexgrid.Distance(start, goal)+1 {
		t.Fatalf("uniform path length %d, want %d", len(path), hexgrid.Distance(start, goal)+1)
	}
}

func TestFindPathStartEqualsGoal(t *testing.T) {
	a := hexgrid.Axial{Q: 3, R: 3}
	path, ok := FindPath(a, a, uniform)
	if !ok || len(path) != 1 || path[0] != a {
		t.Fatalf("expected single-node path, got %v ok=%v", path, ok)
	}
}

func TestFindPathAvoidsExpensiveTerrain(t *testing.T) {
	// A band of mountains (cost 2) on r=0 between q=1..3; the direct route
	// costs 2+2+2+1 while a detour through r=-1 stays cheaper.
	mountains := map[hexgrid.Axial]bool{{Q: 1, R: 0}: true, {Q: 2, R: 0}: true, {Q: 3, R: 0}: true}
	cost := func(a hexgrid.Axial) float64 {
		if mountains[a] {
			return 2
		}
		return 1
	}
	start := hexgrid.Axial{Q: 0, R: 0}
	goal := hexgrid.Axial{Q: 4, R: 0}
	path, ok := FindPath(start, goal, cost)
	if !ok {
		t.Fatalf("expected a path")
	}
	assertValidPath(t, path, start, goal)
	for _, a := range path {
		if mountains[a] {
			t.Fatalf("path crosses mountain %v: %v", a, path)
		}
	}
}

func TestFindPathWallIsImpassable(t *testing.T) {
	// Ring of impassable cells around the goal.
	goal := hexgrid.Axial{Q: 6, R: 0}
	wall := make(map[hexgrid.Axial]bool)
	for _, a := range hexgrid.Ring(goal, 1) {
		wall[a] = true
	}
	cost := func(a hexgrid.Axial) float64 {
		if wall[a] {
			return math.Inf(1)
		}
		return 1
	}
	if _, ok := FindPath(hexgrid.Axial{}, goal, cost, WithLimit(12)); ok {
		t.Fatalf("expected no path through a closed wall")
	}
}

func TestFindPathGoalImpassable(t *testing.T) {
	goal := hexgrid.Axial{Q: 2, R: 0}
	cost := func(a hexgrid.Axial) float64 {
		if a == goal {
			return math.Inf(1)
		}
		return 1
	}
	if _, ok := FindPath(hexgrid.Axial{}, goal, cost); ok {
		t.Fatalf("expected not-found for impassable goal")
	}
}

func TestFindPathGoalOutsideEnvelope(t *testing.T) {
	if _, ok := FindPath(hexgrid.Axial{Q: 199, R: 0}, hexgrid.Axial{Q: 201, R: 0}, uniform); ok {
		t.Fatalf("expected not-found outside the envelope")
	}
}

func TestFindPathDetourOutsideEnvelope(t *testing.T) {
	// Wall along q=3 for every r inside the envelope of limit 5; the only way
	// around passes r=6, so the search must report not-found.
	cost := func(a hexgrid.Axial) float64 {
		if a.Q == 3 && a.R >= -5 && a.R <= 5 {
			return math.Inf(1)
		}
		return 1
	}
	if _, ok := FindPath(hexgrid.Axial{}, hexgrid.Axial{Q: 5, R: 0}, cost, WithLimit(5)); ok {
		t.Fatalf("expected not-found when the detour leaves the envelope")
	}
}

func TestFindPathExpansionCap(t *testing.T) {
	if _, ok := FindPath(hexgrid.Axial{}, hexgrid.Axial{Q: 50, R: 0}, uniform, WithMaxExpansions(3)); ok {
		t.Fatalf("expected the expansion cap to abort the search")
	}
}

func TestFindPathConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := hexgrid.Axial{Q: -i, R: i}
			goal := hexgrid.Axial{Q: i + 3, R: -i}
			path, ok := FindPath(start, goal, uniform)
			if !ok || path[0] != start || path[len(path)-1] != goal {
				errs <- "bad concurrent path"
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

func TestFindPathDeterministic(t *testing.T) {
	start := hexgrid.Axial{}
	goal := hexgrid.Axial{Q: 7, R: -3}
	first, _ := FindPath(start, goal, uniform)
	for i := 0; i < 5; i++ {
		again, _ := FindPath(start, goal, uniform)
		if len(again) != len(first) {
			t.Fatalf("path length changed between runs")
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("path differs between runs at %d", j)
			}
		}
	}
}
