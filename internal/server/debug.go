package server

import (
	"net/http"
	"strconv"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/pkg/api"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// DebugHandler exposes the published state for inspection. It reads only
// snapshots, never the live simulation.
type DebugHandler struct {
	Service *engine.Service
}

func NewDebugHandler(s *engine.Service) *DebugHandler {
	return &DebugHandler{Service: s}
}

func (h *DebugHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/vehicles", h.handleVehicles)
	g.GET("/signals", h.handleSignals)
	g.GET("/routes/:id", h.handleRoute)
}

// /debug/vehicles?state=WAITING - vehicles, optionally filtered by state
func (h *DebugHandler) handleVehicles(c *gin.Context) {
	vehicles := h.Service.Snapshot().Vehicles
	if state := c.Query("state"); state != "" {
		vehicles = lo.Filter(vehicles, func(v api.VehicleView, _ int) bool {
			return v.State == state
		})
	}
	writeJSON(c, vehicles)
}

func (h *DebugHandler) handleSignals(c *gin.Context) {
	writeJSON(c, h.Service.Snapshot().Signals)
}

// /debug/routes/3 - remaining route of car#3
func (h *DebugHandler) handleRoute(c *gin.Context) {
	index, err := strconv.ParseUint(c.Param("id"), 10, 56)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle id must be a number"})
		return
	}
	id := domain.PackAgentID(domain.AgentVehicle, index).String()

	snap := h.Service.Snapshot()
	v, ok := lo.Find(snap.Vehicles, func(v api.VehicleView) bool { return v.ID == id })
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle " + id + " not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tick":        snap.Tick,
		"id":          v.ID,
		"pos":         v.Pos,
		"destination": v.Destination,
		"state":       v.State,
		"route":       v.Route,
	})
}

// writeJSON answers [] instead of null for an empty list.
func writeJSON[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}
