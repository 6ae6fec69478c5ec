package systems

import (
	"testing"

	"traffic-server/internal/domain"
)

func TestRoadGraph_MatchesBFS(t *testing.T) {
	g := mustGrid(t, 5, 6)
	for _, c := range []domain.Coord{{Row: 1, Col: 1}, {Row: 2, Col: 4}, {Row: 3, Col: 0}} {
		if _, err := g.ToggleObstacle(c, true); err != nil {
			t.Fatal(err)
		}
	}
	rg := BuildRoadGraph(g)

	for _, from := range g.CellsOfKind(domain.CellRoad) {
		for _, to := range g.CellsOfKind(domain.CellRoad) {
			want := bfsDistance(g, from, to) >= 0
			if got := rg.Reachable(from, to); got != want {
				t.Fatalf("Reachable(%v, %v) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestReachable_Obstacles(t *testing.T) {
	g := mustGrid(t, 4, 4)
	blocked := domain.Coord{Row: 1, Col: 2}
	if _, err := g.ToggleObstacle(blocked, true); err != nil {
		t.Fatal(err)
	}

	if Reachable(g, domain.Coord{Row: 0, Col: 0}, blocked) {
		t.Error("an obstacle is never reachable")
	}
	if Reachable(g, domain.Coord{Row: 0, Col: 3}, domain.Coord{Row: 3, Col: 3}) {
		t.Error("(0,3) has no legal exit on a 4x4 grid")
	}
	if !Reachable(g, domain.Coord{Row: 2, Col: 2}, domain.Coord{Row: 2, Col: 2}) {
		t.Error("a road cell reaches itself")
	}
	if Reachable(g, domain.Coord{Row: -1, Col: 0}, domain.Coord{Row: 0, Col: 0}) {
		t.Error("out of bounds cells are not in the graph")
	}
}
