package eta

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"time"
)

// ErrRouteUnavailable marks a routing tier that could not produce an
// estimate. The estimator itself never returns it: the final haversine tier
// always yields a number.
var ErrRouteUnavailable = errors.New("route unavailable")

// Method identifies which tier of the fallback ladder produced an estimate.
type Method string

const (
	MethodGraph     Method = "graph"     // A* over the local road network
	MethodRouter    Method = "router"    // external routing service
	MethodHaversine Method = "haversine" // straight-line conservative estimate
	MethodDefault   Method = "default"   // invalid coordinates, fixed fallback
)

// Estimate is a travel-time result. Minutes is always usable for scheduling
// regardless of which method produced it.
type Estimate struct {
	Minutes       float64 `json:"minutes"`
	DistanceKM    float64 `json:"distance_km"`
	Method        Method  `json:"method"`
	Path          []Coord `json:"path,omitempty"`
	TrafficFactor float64 `json:"traffic_factor,omitempty"`
	Expansions    int     `json:"expansions,omitempty"`
}

// Router is the external routing collaborator used by the second fallback
// tier. Implementations carry their own short request timeout.
type Router interface {
	RouteTime(ctx context.Context, origin, dest Coord) (minutes, distanceKM float64, err error)
}

// defaultEstimateMinutes is returned when even the haversine computation is
// impossible (invalid coordinates). Scheduling must never be left without a
// number.
const defaultEstimateMinutes = 20

// Estimator computes travel ETAs through a three-tier ladder: A* on the local
// graph, then the external router, then a straight-line estimate.
type Estimator struct {
	graph  *Graph
	router Router
	now    func() time.Time

	maxExpansions int
	goalEpsilonKM float64
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithRouter attaches the external routing collaborator.
func WithRouter(r Router) EstimatorOption {
	return func(e *Estimator) { e.router = r }
}

// WithClock overrides the time source used for traffic buckets.
func WithClock(now func() time.Time) EstimatorOption {
	return func(e *Estimator) { e.now = now }
}

// WithMaxExpansions caps the number of A* node expansions.
func WithMaxExpansions(n int) EstimatorOption {
	return func(e *Estimator) { e.maxExpansions = n }
}

func NewEstimator(graph *Graph, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		graph:         graph,
		now:           time.Now,
		maxExpansions: 1000,
		goalEpsilonKM: 0.5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate resolves a travel-time estimate for scheduling. It has no hard
// failure mode: every call returns some numeric estimate, tagged with the
// method that produced it.
func (e *Estimator) Estimate(ctx context.Context, origin, dest Coord) Estimate {
	if !origin.Valid() || !dest.Valid() {
		return Estimate{Minutes: defaultEstimateMinutes, Method: MethodDefault}
	}

	if est, ok := e.searchGraph(origin, dest); ok {
		return est
	}

	if e.router != nil {
		minutes, km, err := e.router.RouteTime(ctx, origin, dest)
		if err == nil {
			return Estimate{Minutes: minutes, DistanceKM: km, Method: MethodRouter}
		}
		log.Printf("eta: external router failed, using straight-line estimate: %v", err)
	}

	km := Haversine(origin, dest)
	return Estimate{Minutes: MinutesFor(km), DistanceKM: km, Method: MethodHaversine}
}

// frontierNode is one A* open-set entry.
type frontierNode struct {
	coord Coord
	g     float64 // cost from start, traffic-scaled minutes
	f     float64 // g + admissible heuristic
}

// frontier is a min-heap on f. Stale duplicates are tolerated and skipped via
// the visited set, so no back-pointers are needed.
type frontier []frontierNode

func (h frontier) Len() int           { return len(h) }
func (h frontier) Less(i, j int) bool { return h[i].f < h[j].f }
func (h frontier) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *frontier) Push(x any)        { *h = append(*h, x.(frontierNode)) }
func (h *frontier) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	*h = old[:n-1]
	return node
}

// heuristicSpeedKMH converts remaining straight-line distance into the
// heuristic's minutes. It must sit above the fastest speed any edge of the
// network implies (~38.5 km/h on the demo graph), otherwise the heuristic
// overestimates the true remaining time and the search loses admissibility.
// The heuristic is also scaled by the current traffic factor, since every
// edge cost is.
const heuristicSpeedKMH = 40

// searchGraph runs A* over the traffic-scaled road network. The second return
// is false when no path was found within the expansion cap, which sends the
// caller down the fallback ladder rather than reporting an error.
func (e *Estimator) searchGraph(origin, dest Coord) (Estimate, bool) {
	if !e.graph.Contains(origin) && !e.graph.Contains(dest) {
		return Estimate{}, false
	}

	factor := TrafficFactor(e.now().Hour())
	h := func(c Coord) float64 {
		return Haversine(c, dest) / heuristicSpeedKMH * 60 * factor
	}

	open := frontier{{coord: origin, g: 0, f: h(origin)}}
	heap.Init(&open)
	gScores := map[Coord]float64{origin: 0}
	cameFrom := map[Coord]Coord{}
	visited := map[Coord]bool{}

	expansions := 0
	for open.Len() > 0 && expansions < e.maxExpansions {
		expansions++
		current := heap.Pop(&open).(frontierNode)

		// Coordinates are continuous, not exact waypoints: accept the goal
		// when within the epsilon radius of the true destination.
		if Haversine(current.coord, dest) < e.goalEpsilonKM {
			return Estimate{
				Minutes:       current.g,
				DistanceKM:    Haversine(origin, dest),
				Method:        MethodGraph,
				Path:          reconstructPath(cameFrom, current.coord),
				TrafficFactor: factor,
				Expansions:    expansions,
			}, true
		}

		if visited[current.coord] {
			continue
		}
		visited[current.coord] = true

		for _, ed := range e.graph.neighbors(current.coord) {
			if visited[ed.to] {
				continue
			}
			tentative := current.g + ed.baseMinutes*factor
			if prev, seen := gScores[ed.to]; seen && tentative >= prev {
				continue
			}
			gScores[ed.to] = tentative
			cameFrom[ed.to] = current.coord
			heap.Push(&open, frontierNode{
				coord: ed.to,
				g:     tentative,
				f:     tentative + h(ed.to),
			})
		}
	}

	return Estimate{}, false
}

func reconstructPath(cameFrom map[Coord]Coord, goal Coord) []Coord {
	path := []Coord{goal}
	for {
		prev, ok := cameFrom[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, prev)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
