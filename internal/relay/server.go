package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"LiveBoard/internal/export"
	"LiveBoard/internal/protocol"
)

type Options struct {
	// CORSOrigin is "*" or a single allowed origin.
	CORSOrigin string
}

type Server struct {
	hub      *Hub
	engine   *gin.Engine
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		hub: NewHub(),
		// peers are boards on the LAN and browser viewers from anywhere
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      slog.Default().With("component", "relay"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())
	r.Use(cors.New(corsConfig(opts.CORSOrigin)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Rooms())
	})
	r.GET("/rooms/:room/ws", s.handleWebSocket)
	r.GET("/rooms/:room/state", s.handleState)
	r.GET("/rooms/:room/export.pdf", s.handleExport)

	s.engine = r
	return s
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}

func (s *Server) Handler() http.Handler { return s.engine }
func (s *Server) Hub() *Hub             { return s.hub }

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("relay listening", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay listen %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	room := c.Param("room")
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err, "origin", c.Request.Header.Get("Origin"))
		return
	}
	newConn(ws, s.hub, room, s.log).serve()
}

func (s *Server) handleState(c *gin.Context) {
	data, ok := s.hub.Retained(c.Param("room"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no state for room"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleExport(c *gin.Context) {
	room := c.Param("room")
	data, ok := s.hub.Retained(room)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no state for room"})
		return
	}
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", room+".pdf"))
	if err := export.WritePDF(c.Writer, snap.Strokes, export.Options{Title: room}); err != nil {
		s.log.Error("pdf export failed", "room", room, "err", err)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
