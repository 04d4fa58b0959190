package graph

import (
	"math"
	"regexp"
	"strconv"
)

var digitRun = regexp.MustCompile(`\d+`)

// idNumber extracts the first run of digits in id. Ids without digits count as 0.
func idNumber(id string) float64 {
	m := digitRun.FindString(id)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// heuristic estimates the remaining cost as the distance between the numbers
// embedded in two ids. It suits generated ids such as node-3 and is not an
// admissible bound in general.
func heuristic(current, end string) float64 {
	return math.Abs(idNumber(end) - idNumber(current))
}

// AStar finds a path from start to end over outgoing edges.
//
// Successful results are memoized by start id alone: once a search from
// start has succeeded, the same *PathResult is returned for any end until the
// memo is cleared by UpdateWeights or ApplyFeedback. Use ShortestPath for a
// cache keyed on both endpoints. A failed search returns an empty path with
// an infinite cost and is not cached.
func (s *Store) AStar(start, end string) *PathResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.memo[start]; ok {
		s.observe(true)
		return r
	}
	s.observe(false)
	r := s.searchLocked(start, end)
	if r.Found() {
		s.memo[start] = r
	}
	return r
}

// ShortestPath runs the same search as AStar but caches per (start, end) pair.
func (s *Store) ShortestPath(start, end string) *PathResult {
	key := start + "\x00" + end
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.pairMemo[key]; ok {
		s.observe(true)
		return r
	}
	s.observe(false)
	r := s.searchLocked(start, end)
	if r.Found() {
		s.pairMemo[key] = r
	}
	return r
}

func (s *Store) observe(hit bool) {
	if s.onLookup != nil {
		s.onLookup(hit)
	}
}

// searchLocked is the uncached search. The open set is scanned in insertion
// order and the first node with the lowest f-score wins ties. There is no
// closed set: a node re-enters the open set whenever its g-score improves.
// Edges toward removed nodes are skipped.
func (s *Store) searchLocked(start, end string) *PathResult {
	open := []string{start}
	inOpen := map[string]bool{start: true}
	cameFrom := make(map[string]string)
	g := map[string]float64{start: 0}
	f := map[string]float64{start: heuristic(start, end)}

	for len(open) > 0 {
		idx := -1
		lowest := math.Inf(1)
		for i, id := range open {
			if f[id] < lowest {
				idx = i
				lowest = f[id]
			}
		}
		if idx < 0 {
			break
		}
		current := open[idx]

		if current == end {
			return &PathResult{Path: reconstruct(cameFrom, current), Cost: g[current]}
		}

		open = append(open[:idx:idx], open[idx+1:]...)
		delete(inOpen, current)

		n, ok := s.nodes[current]
		if !ok {
			continue
		}
		for _, to := range n.order {
			if _, exists := s.nodes[to]; !exists {
				continue
			}
			tentative := g[current] + n.edges[to].Weight
			if prev, seen := g[to]; !seen || tentative < prev {
				cameFrom[to] = current
				g[to] = tentative
				f[to] = tentative + heuristic(to, end)
				if !inOpen[to] {
					open = append(open, to)
					inOpen[to] = true
				}
			}
		}
	}
	return noPath()
}

func reconstruct(cameFrom map[string]string, current string) []string {
	path := []string{current}
	// Bounded so a negative-weight cycle cannot loop forever.
	for len(path) <= len(cameFrom) {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
