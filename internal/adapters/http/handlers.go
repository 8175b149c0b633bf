package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultNearbyRadius = 1000.0
	maxNearbyRadius     = 50000.0
)

type handlers struct {
	orch *orch.Orchestrator
}

type GeofenceRequest struct {
	RoomID string   `json:"room_id"`
	Name   string   `json:"name"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Radius float64  `json:"radius"`
}

type NearbyQuery struct {
	Radius         float64 `form:"radius"`
	IncludeOffline bool    `form:"include_offline"`
}

func (h *handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Stats())
}

func (h *handlers) createGeofence(c *gin.Context) {
	var req GeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid geofence"})
		return
	}
	center := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	err := h.orch.CreateGeofence(domain.RoomID(req.RoomID), req.Name, center, req.Radius)
	switch {
	case errors.Is(err, orch.ErrInvalidGeofence):
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and a positive radius are required"})
		return
	case errors.Is(err, domain.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", req.RoomID).Float64("radius", req.Radius).Msg("geofence created")
	c.JSON(http.StatusCreated, gin.H{"room_id": req.RoomID, "radius": req.Radius})
}

func (h *handlers) listGeofences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"geofences": h.orch.Geofences()})
}

func (h *handlers) removeGeofence(c *gin.Context) {
	if !h.orch.RemoveGeofence(domain.RoomID(c.Param("room"))) {
		c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) nearby(c *gin.Context) {
	var q NearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.Radius < 0 || q.Radius > maxNearbyRadius {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
		return
	}
	if q.Radius == 0 {
		q.Radius = defaultNearbyRadius
	}
	uid := domain.UserID(c.Param("id"))
	users := h.orch.NearbyUsers(uid, q.Radius, q.IncludeOffline)
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "radius": q.Radius, "users": users})
}

func (h *handlers) movement(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Movement(domain.UserID(c.Param("id"))))
}

func (h *handlers) broadcast(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if t, _ := body["type"].(string); t == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type required"})
		return
	}
	res, err := h.orch.BroadcastAll(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": res.SendTo, "failed": len(res.Failed)})
}
