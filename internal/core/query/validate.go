package query

import "github.com/eventflux-io/engine/internal/core/errs"

// DependencyGraph is the `target_stream <- {from-sources, join-sources}`
// edge set the spec's circular-dependency check runs over (spec §7 phase
//1, P6: "rejects exactly the graphs with a directed cycle on the
// target<-sources relation, including self-loops").
type DependencyGraph struct {
	edges map[string][]string // target -> sources it reads from
}

func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[string][]string)}
}

// AddEdge records that target's query reads from source (a FROM relation,
// or a JOIN relation).
func (g *DependencyGraph) AddEdge(target, source string) {
	g.edges[target] = append(g.edges[target], source)
}

const (
	white = 0
	gray  = 1
	black = 2
)

// DetectCycle runs a DFS over the target<-sources edges and returns an
// error naming the node at which the first cycle was detected, or nil if the
// graph is acyclic. A
// self-loop (a stream that reads from itself) is caught by the same walk,
// since it appears as a back-edge to a gray node on its first visit.
func (g *DependencyGraph) DetectCycle() error {
	color := make(map[string]int)
	var path []string

	var visit func(node string) error
	visit = func(node string) error {
		switch color[node] {
		case black:
			return nil
		case gray:
			return errs.New(errs.ValidationFailed, "circular stream dependency detected at: "+node)
		}
		color[node] = gray
		path = append(path, node)
		for _, dep := range g.edges[node] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return nil
	}

	// Iterate in a stable order so error messages are deterministic.
	var nodes []string
	for n := range g.edges {
		nodes = append(nodes, n)
	}
	sortStrings(nodes)
	for _, n := range nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
