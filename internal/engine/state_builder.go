package engine

import (
	"traffic-server/internal/domain"
	"traffic-server/internal/systems"
	"traffic-server/pkg/api"

	"github.com/samber/lo"
)

// BuildSnapshot creates the read-only view of the simulation after the last
// completed tick. The result shares nothing with the simulation.
func (s *Simulation) BuildSnapshot() *api.Snapshot {
	tick := s.lastTick()

	cells := lo.FilterMap(s.grid.Cells(), func(c domain.Cell, _ int) (api.CellView, bool) {
		return api.CellView{Row: c.At.Row, Col: c.At.Col, Kind: c.Kind.String()}, c.Kind != domain.CellRoad
	})

	signals := lo.Map(s.signals.States(tick), func(st systems.SignalState, _ int) api.SignalView {
		return api.SignalView{Row: st.At.Row, Col: st.At.Col, Phase: st.Phase.String(), Since: st.Since}
	})

	vehicles := lo.Map(s.vehicles, func(v *domain.Vehicle, _ int) api.VehicleView {
		return toVehicleView(v)
	})

	pedestrians := lo.Map(s.pedestrians.Pedestrians(), func(p domain.Pedestrian, _ int) api.PedestrianView {
		return api.PedestrianView{
			ID:          p.ID.String(),
			Row:         p.Crossing.Row,
			Col:         p.Crossing.Col,
			Orientation: p.Orientation.String(),
			Progress:    p.Progress,
		}
	})

	return &api.Snapshot{
		Tick:        tick,
		Grid:        api.GridMeta{Rows: s.grid.Rows, Cols: s.grid.Cols},
		Cells:       cells,
		Signals:     signals,
		Vehicles:    vehicles,
		Pedestrians: pedestrians,
		Stats: api.StatsView{
			Vehicles: len(s.vehicles),
			Waiting: lo.CountBy(s.vehicles, func(v *domain.Vehicle) bool {
				return v.State == domain.StateWaiting
			}),
			Arrived:     s.stats.Arrived,
			Reroutes:    s.stats.Reroutes,
			Respawns:    s.stats.Respawns,
			Pedestrians: len(pedestrians),
		},
	}
}

func toVehicleView(v *domain.Vehicle) api.VehicleView {
	return api.VehicleView{
		ID:          v.ID.String(),
		Pos:         toCoordView(v.At),
		Destination: toCoordView(v.Destination),
		State:       v.State.String(),
		WaitReason:  v.WaitReason.String(),
		Heading:     v.Heading.String(),
		Route:       lo.Map(v.RemainingRoute(), func(c domain.Coord, _ int) api.CoordView { return toCoordView(c) }),
	}
}

func toCoordView(c domain.Coord) api.CoordView {
	return api.CoordView{Row: c.Row, Col: c.Col}
}

// ToEventViews converts tick events for the wire.
func ToEventViews(events []domain.Event) []api.EventView {
	return lo.Map(events, func(e domain.Event, _ int) api.EventView {
		view := api.EventView{
			Type: e.Type.String(),
			Tick: e.Tick,
			Row:  e.At.Row,
			Col:  e.At.Col,
			Text: e.Text,
		}
		if e.Agent != domain.NilAgentID {
			view.Agent = e.Agent.String()
		}
		if e.Type == domain.EventSignalPhase {
			view.Phase = e.Phase.String()
		}
		return view
	})
}
