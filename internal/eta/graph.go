package eta

import "math"

// Coord is a WGS84 latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is a real point on the globe.
func (c Coord) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

const earthRadiusKM = 6371

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// conservativeSpeedKMH is the assumed average city speed used by the
// straight-line fallback tier. Deliberately pessimistic so a fallback
// estimate overstates rather than understates travel time.
const conservativeSpeedKMH = 30

// MinutesFor converts a distance in km to minutes at the conservative speed.
func MinutesFor(distanceKM float64) float64 {
	return distanceKM / conservativeSpeedKMH * 60
}

type edge struct {
	to          Coord
	baseMinutes float64
}

// Graph is a small undirected road network: waypoints keyed by coordinate,
// edges weighted in base (traffic-free) minutes.
type Graph struct {
	adj map[Coord][]edge
}

func NewGraph() *Graph {
	return &Graph{adj: make(map[Coord][]edge)}
}

// AddEdge adds a bidirectional road segment.
func (g *Graph) AddEdge(a, b Coord, baseMinutes float64) {
	g.adj[a] = append(g.adj[a], edge{to: b, baseMinutes: baseMinutes})
	g.adj[b] = append(g.adj[b], edge{to: a, baseMinutes: baseMinutes})
}

func (g *Graph) neighbors(c Coord) []edge {
	return g.adj[c]
}

// Contains reports whether the coordinate is a waypoint of the network.
func (g *Graph) Contains(c Coord) bool {
	_, ok := g.adj[c]
	return ok
}

// Nodes returns every waypoint in the network.
func (g *Graph) Nodes() []Coord {
	nodes := make([]Coord, 0, len(g.adj))
	for c := range g.adj {
		nodes = append(nodes, c)
	}
	return nodes
}

// trafficWindow scales edge costs during an hour range. Start > end means the
// window wraps around midnight.
type trafficWindow struct {
	start, end int
	factor     float64
}

var trafficWindows = []trafficWindow{
	{8, 11, 1.5},  // morning peak
	{17, 20, 1.6}, // evening peak
	{12, 14, 1.3}, // midday
	{22, 6, 0.8},  // night
}

// TrafficFactor returns the edge-cost multiplier for the given hour of day.
func TrafficFactor(hour int) float64 {
	for _, w := range trafficWindows {
		if w.start <= w.end {
			if hour >= w.start && hour < w.end {
				return w.factor
			}
		} else if hour >= w.start || hour < w.end {
			return w.factor
		}
	}
	return 1.0
}

// DemoGraph builds the simplified Mumbai road network used when no real OSM
// extract is loaded.
func DemoGraph() *Graph {
	locations := map[string]Coord{
		"bandra":      {19.0596, 72.8295},
		"andheri":     {19.1136, 72.8697},
		"worli":       {19.0176, 72.8120},
		"dadar":       {19.0186, 72.8481},
		"churchgate":  {18.9322, 72.8264},
		"lower_parel": {19.0008, 72.8289},
		"kurla":       {19.0728, 72.8826},
	}
	edges := []struct {
		from, to    string
		baseMinutes float64
	}{
		{"bandra", "andheri", 15},
		{"bandra", "worli", 12},
		{"bandra", "dadar", 10},
		{"worli", "lower_parel", 8},
		{"worli", "churchgate", 15},
		{"dadar", "lower_parel", 10},
		{"dadar", "kurla", 12},
		{"andheri", "kurla", 10},
		{"lower_parel", "churchgate", 12},
	}

	g := NewGraph()
	for _, e := range edges {
		g.AddEdge(locations[e.from], locations[e.to], e.baseMinutes)
	}
	return g
}
