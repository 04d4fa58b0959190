package graph

import (
	"fmt"
	"math"
)

// Canvas is the drawing area layouts are centered on.
type Canvas struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DefaultCanvas is used when no canvas is configured.
var DefaultCanvas = Canvas{Width: 800, Height: 600}

// Center returns the canvas midpoint.
func (c Canvas) Center() (float64, float64) {
	return c.Width / 2, c.Height / 2
}

// Point is a placement produced by a layout generator.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout limits.
const (
	ringStartRadius = 40.0
	minNodeSpacing  = 40.0
	MaxLayoutNodes  = 10000

	// MaxGridRings is the largest triangular grid within MaxLayoutNodes:
	// 1+3*58*57 = 9919 nodes.
	MaxGridRings = 58
)

// RingLayout places ringSizes[i] nodes evenly on concentric circles around
// the canvas center. The first ring sits min(cx,cy)*0.15 beyond the start
// radius; each later ring grows by max(40*prevCount/(2π), radius*0.3).
func RingLayout(ringSizes []int, c Canvas) [][]Point {
	cx, cy := c.Center()
	radius := ringStartRadius
	out := make([][]Point, 0, len(ringSizes))
	for i, n := range ringSizes {
		if i == 0 {
			radius += math.Min(cx, cy) * 0.15
		} else {
			prev := float64(ringSizes[i-1])
			radius += math.Max(minNodeSpacing*prev/(2*math.Pi), radius*0.3)
		}
		ring := make([]Point, n)
		for j := 0; j < n; j++ {
			angle := float64(j) * 2 * math.Pi / float64(n)
			ring[j] = Point{X: cx + radius*math.Cos(angle), Y: cy + radius*math.Sin(angle)}
		}
		out = append(out, ring)
	}
	return out
}

// TriangularGridLayout places numRings hexagonal rings around the center.
// Ring 0 is the single center node and ring r holds 6r nodes at distance
// spacing*r, with odd rings rotated by π/6.
func TriangularGridLayout(numRings int, c Canvas) [][]Point {
	cx, cy := c.Center()
	spacing := math.Min(cx, cy) * 0.2
	out := make([][]Point, 0, numRings)
	for r := 0; r < numRings; r++ {
		count := 1
		if r > 0 {
			count = 6 * r
		}
		offset := 0.0
		if r%2 == 1 {
			offset = math.Pi / 6
		}
		radius := spacing * float64(r)
		ring := make([]Point, count)
		for i := 0; i < count; i++ {
			angle := (2*math.Pi/float64(count))*float64(i) - offset
			ring[i] = Point{X: cx + radius*math.Cos(angle), Y: cy + radius*math.Sin(angle)}
		}
		out = append(out, ring)
	}
	return out
}

// AddCircularRings creates one ring node per RingLayout placement and emits
// add_circular_rings. It returns the new node ids.
func (s *Store) AddCircularRings(ringSizes []int) ([]string, error) {
	if len(ringSizes) == 0 {
		return nil, fmt.Errorf("no ring sizes: %w", ErrInvalidLayout)
	}
	total := 0
	for _, n := range ringSizes {
		if n <= 0 {
			return nil, fmt.Errorf("ring size %d: %w", n, ErrInvalidLayout)
		}
		if n > MaxLayoutNodes-total {
			return nil, fmt.Errorf("ring sizes %v exceed %d nodes: %w", ringSizes, MaxLayoutNodes, ErrInvalidLayout)
		}
		total += n
	}
	ids := s.placeNodes(RingLayout(ringSizes, s.canvas), KindRing)
	s.emit(Event{Name: EventAddCircularRings, Params: RingsParams{RingSizes: append([]int(nil), ringSizes...)}})
	return ids, nil
}

// AddTriangularGrid creates one trigrid node per TriangularGridLayout
// placement and emits add_triangular_grid. It returns the new node ids.
func (s *Store) AddTriangularGrid(numRings int) ([]string, error) {
	if numRings <= 0 || numRings > MaxGridRings {
		return nil, fmt.Errorf("num rings %d: %w", numRings, ErrInvalidLayout)
	}
	ids := s.placeNodes(TriangularGridLayout(numRings, s.canvas), KindTrigrid)
	s.emit(Event{Name: EventAddTriangularGrid, Params: GridParams{NumRings: numRings}})
	return ids, nil
}

// placeNodes adds a node-<n> node at every point, skipping ids already taken.
func (s *Store) placeNodes(rings [][]Point, kind NodeKind) []string {
	var ids []string
	for _, ring := range rings {
		for _, p := range ring {
			s.mu.Lock()
			id := s.nextLayoutIDLocked()
			s.mu.Unlock()
			s.AddNode(id, NodeData{X: Float(p.X), Y: Float(p.Y)}, kind)
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) nextLayoutIDLocked() string {
	for {
		id := fmt.Sprintf("node-%d", s.layoutSeq)
		s.layoutSeq++
		if _, taken := s.nodes[id]; !taken {
			return id
		}
	}
}
