package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Nearby/internal/adapters/signal"
	"github.com/dkeye/Nearby/internal/app/orch"
	"github.com/dkeye/Nearby/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.ServerConfig, guard Guard, o *orch.Orchestrator, ws *signal.SignalWSController) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("NearbySessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online_users": o.Registry.Count()})
	})

	h := &handlers{orch: o}
	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws endpoint hit")
		ws.HandleSignal(ctx, c)
	})

	authed := api.Group("", guard.BearerAuth())
	authed.GET("/stats", h.stats)
	authed.GET("/geofences", h.listGeofences)

	self := authed.Group("/users/:id", RequireSelf())
	self.GET("/nearby", h.nearby)
	self.GET("/movement", h.movement)

	admin := authed.Group("", guard.RequireAdmin())
	admin.POST("/geofences", h.createGeofence)
	admin.DELETE("/geofences/:room", h.removeGeofence)
	admin.POST("/broadcast", h.broadcast)

	return r
}
