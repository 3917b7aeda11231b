package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const stockCodeParam = "stockCode"

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Hub      *Hub
	sessions interfaces.ISessionManager
	engine   *gin.Engine
	http     *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, hub *Hub, sessions interfaces.ISessionManager, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Logger:   logger,
		Hub:      hub,
		sessions: sessions,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/sessions", s.getSessions)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws/ticks", s.handleTickStream)
}

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.Hub.Count(),
		"sessions":    len(s.sessions.Sessions()),
		"timestamp":   time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": s.sessions.Sessions(),
	})
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

// handleTickStream accepts /ws/ticks?stockCode=<code>. The handshake is
// refused when the code is missing.
func (s *APIServer) handleTickStream(c *gin.Context) {
	stockCode := stockCodeFrom(c.Request.URL.Query())
	if stockCode == "" {
		s.Logger.Warning("Rejected websocket handshake from %s: missing %s", c.ClientIP(), stockCodeParam)
		c.JSON(http.StatusBadRequest, gin.H{"error": "stockCode is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := s.Hub.register(conn)
	s.Logger.Info("Client %s connected for %s", client.ID(), stockCode)

	if err := s.sessions.OnConnect(client.ID(), stockCode); err != nil {
		s.Logger.Warning("Session for %s not started: %v", client.ID(), err)
	}

	go client.readPump(func() {
		s.Hub.unregister(client)
		s.sessions.OnDisconnect(client.ID())
	})
}

// stockCodeFrom reads the stockCode query parameter, matching the key case-insensitively.
func stockCodeFrom(query url.Values) string {
	if v := strings.TrimSpace(query.Get(stockCodeParam)); v != "" {
		return v
	}
	for key, values := range query {
		if strings.EqualFold(key, stockCodeParam) {
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
