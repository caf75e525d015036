// Package httpapi implements the HTTP Surface (component H): registration,
// color changes, match history export, health checks, static asset serving,
// and the websocket upgrade endpoints that hand a connection off into the
// Room Runtime.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/penglongli/gin-metrics/ginmetrics"
	"go.uber.org/zap"

	"hexterritory/internal/apperr"
	"hexterritory/internal/auth"
	"hexterritory/internal/data"
	"hexterritory/internal/matchmaker"
	"hexterritory/internal/roomrt"
)

var validate = validator.New()

// Server bundles the gin engine with everything a handler needs to reach
// into the room runtime and data layer.
type Server struct {
	engine *gin.Engine
	log    *zap.Logger

	auth    *auth.Service
	events  *data.Events
	games   *data.Games
	rt      *roomrt.Runtime
	mm      *matchmaker.Matchmaker

	staticDir string
}

// Config configures the HTTP surface.
type Config struct {
	Production bool
	StaticDir  string // empty disables static file serving
}

// New builds the gin engine and registers every route.
func New(cfg Config, authSvc *auth.Service, events *data.Events, games *data.Games, rt *roomrt.Runtime, mm *matchmaker.Matchmaker, log *zap.Logger) *Server {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(ginzap.Ginzap(log, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(log, true))
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
	}))

	monitor := ginmetrics.GetMonitor()
	monitor.SetMetricPath("/metrics")
	monitor.Use(engine)

	s := &Server{
		engine:    engine,
		log:       log,
		auth:      authSvc,
		events:    events,
		games:     games,
		rt:        rt,
		mm:        mm,
		staticDir: cfg.StaticDir,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/player/color", s.handleChangeColor)
	api.GET("/history", s.handleHistory)

	s.engine.GET("/ws/lobby", s.handleLobbySocket)
	s.engine.GET("/ws/game/:gameId", s.handleGameSocket)
	s.engine.GET("/ws/replay/:gameId", s.handleReplaySocket)

	if s.staticDir != "" {
		s.engine.Static("/assets", s.staticDir+"/assets")
		s.engine.StaticFile("/", s.staticDir+"/index.html")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=24"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_input"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_input"})
		return
	}

	reg, err := s.auth.Register(c.Request.Context(), req.Username)
	if err != nil {
		writeAppErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"playerId": reg.PlayerID,
		"token":    reg.Token,
		"username": reg.Username,
		"color":    reg.Color,
	})
}

type changeColorRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Color    string `json:"color" validate:"required,len=7"`
}

func (s *Server) handleChangeColor(c *gin.Context) {
	var req changeColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_input"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_input"})
		return
	}

	if err := s.auth.ChangeColor(c.Request.Context(), req.PlayerID, req.Token, req.Color); err != nil {
		writeAppErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleHistory serves the event log a replay room plays back. The query
// param is gameId: events are keyed and listed by game, not by lobby
// (games:<gameId>:events), so gameId is what s.events.List actually needs.
func (s *Server) handleHistory(c *gin.Context) {
	gameID := c.Query("gameId")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_input"})
		return
	}

	if _, err := s.games.Get(c.Request.Context(), gameID); err != nil {
		writeAppErr(c, err)
		return
	}
	events, err := s.events.List(c.Request.Context(), gameID)
	if err != nil {
		writeAppErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clicks": events})
}

func writeAppErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.Is(err, apperr.KindBadInput):
		status = http.StatusBadRequest
	case apperr.Is(err, apperr.KindAuthFailed):
		status = http.StatusUnauthorized
	case apperr.Is(err, apperr.KindNotFound):
		status = http.StatusNotFound
	case apperr.Is(err, apperr.KindPrecondition):
		status = http.StatusConflict
	case apperr.Is(err, apperr.KindUnavailable):
		status = http.StatusServiceUnavailable
	}
	reason := apperr.ReasonOf(err)
	if reason == "" {
		reason = "internal"
	}
	c.JSON(status, gin.H{"error": reason})
}

// handleLobbySocket upgrades the connection and hands it to a joinable
// lobby room, creating one if none is currently open.
func (s *Server) handleLobbySocket(c *gin.Context) {
	room, err := s.mm.OpenLobby(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable"})
		return
	}
	s.upgradeInto(c, room.ID())
}

func (s *Server) handleGameSocket(c *gin.Context) {
	gameID := c.Param("gameId")
	if !s.rt.Exists(gameID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	s.upgradeInto(c, gameID)
}

func (s *Server) handleReplaySocket(c *gin.Context) {
	gameID := c.Param("gameId")
	replayID, err := s.mm.CreateReplay(c.Request.Context(), gameID)
	if err != nil {
		writeAppErr(c, err)
		return
	}
	s.upgradeInto(c, replayID)
}

func (s *Server) upgradeInto(c *gin.Context, roomID string) {
	conn, err := roomrt.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := roomrt.NewClient(conn, s.log)
	client.RoomID = roomID

	s.rt.Join(roomID, client)

	dispatch := func(msgType string, raw []byte) {
		if err := s.rt.Dispatch(roomID, client, msgType, raw); err != nil {
			s.log.Debug("dispatch failed", zap.String("roomId", roomID), zap.Error(err))
		}
	}
	onClose := func() {
		s.rt.Leave(roomID, client)
	}

	go client.WritePump()
	go client.ReadPump(dispatch, onClose)
}
