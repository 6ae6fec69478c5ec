package systems

import (
	"traffic-server/internal/domain"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// RoadGraph is the directed graph of legal single-step moves between
// passable cells. It is a snapshot: rebuild it after the grid changes.
type RoadGraph struct {
	g    *simple.DirectedGraph
	cols int
}

// BuildRoadGraph snapshots the current grid topology.
func BuildRoadGraph(grid *domain.Grid) *RoadGraph {
	rg := &RoadGraph{g: simple.NewDirectedGraph(), cols: grid.Cols}
	for _, cell := range grid.Cells() {
		if cell.IsBlocked() {
			continue
		}
		rg.g.AddNode(simple.Node(rg.id(cell.At)))
	}
	for _, cell := range grid.Cells() {
		if cell.IsBlocked() {
			continue
		}
		for _, next := range grid.Neighbors(cell.At) {
			rg.g.SetEdge(rg.g.NewEdge(simple.Node(rg.id(cell.At)), simple.Node(rg.id(next))))
		}
	}
	return rg
}

func (rg *RoadGraph) id(c domain.Coord) int64 {
	return int64(c.Row*rg.cols + c.Col)
}

// Reachable reports whether a legal path leads from one cell to another.
// It ignores lights and other agents.
func (rg *RoadGraph) Reachable(from, to domain.Coord) bool {
	if from == to {
		return rg.g.Node(rg.id(from)) != nil
	}
	start := rg.g.Node(rg.id(from))
	if start == nil || rg.g.Node(rg.id(to)) == nil {
		return false
	}
	target := rg.id(to)
	var bf traverse.BreadthFirst
	found := bf.Walk(rg.g, start, func(n graph.Node, _ int) bool {
		return n.ID() == target
	})
	return found != nil
}

// Reachable is a one-shot convenience over BuildRoadGraph.
func Reachable(grid *domain.Grid, from, to domain.Coord) bool {
	return BuildRoadGraph(grid).Reachable(from, to)
}
