// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package web serves the browser UI and its event socket.
package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Thermoquad/quadstat/pkg/bridge"
	"github.com/Thermoquad/quadstat/pkg/log"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statusTimeout bounds how long /api/status waits for the event loop
const statusTimeout = 2 * time.Second

// Bridge is the part of the coordinator the UI surface drives
type Bridge interface {
	Dispatch(cmd bridge.Command) error
	Register(client bridge.Client)
	Unregister(client bridge.Client)
	Status(ctx context.Context) (bridge.Status, error)
}

// Config configures the UI server
type Config struct {
	StaticDir string
	Gatherer  prometheus.Gatherer // /metrics is disabled when nil
	Logger    log.Logger
	AccessLog bool
}

// Server is the UI HTTP server
type Server struct {
	app    *fiber.App
	bridge Bridge
	log    log.Logger
}

// NewServer builds the fiber app and its routes
func NewServer(cfg Config, b Bridge) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	s := &Server{
		bridge: b,
		log:    cfg.Logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "quadstat",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleUI))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	} else {
		app.Get("/", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status":  "online",
				"service": "quadstat",
			})
		})
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.log.Infof("UI listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting up to the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	status, err := s.bridge.Status(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(status)
}

// handleUI registers the connection as the UI client and forwards its
// commands until it closes
func (s *Server) handleUI(conn *websocket.Conn) {
	id := uuid.New().String()
	logger := s.log.WithField("client", id)
	logger.Infof("UI connected: %s", conn.RemoteAddr())

	client := newUIClient(id, conn, logger)
	s.bridge.Register(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.writePump()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("UI read error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if mt != websocket.TextMessage {
			logger.Debugf("ignoring UI message type %d", mt)
			continue
		}

		cmd, err := ParseCommand(msg)
		if err != nil {
			logger.Warnf("bad UI message %q: %v", msg, err)
			continue
		}
		if err := s.bridge.Dispatch(cmd); err != nil {
			if errors.Is(err, bridge.ErrStopped) {
				break
			}
			logger.Warnf("dispatch %s: %v", cmd.Name, err)
		}
	}

	s.bridge.Unregister(client)
	client.close()
	wg.Wait()
	logger.Infof("UI disconnected")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
