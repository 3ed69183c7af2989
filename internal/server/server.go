// Dashboard HTTP/WebSocket boundary
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"hubpilot/internal/command"
	"hubpilot/internal/config"
	"hubpilot/internal/dispatch"
	"hubpilot/internal/logging"
	"hubpilot/internal/mission"
	"hubpilot/internal/path"
	"hubpilot/internal/virtual"
)

// Server wires the planning pipeline and the virtual robot behind the
// dashboard API. One robot, one run at a time.
type Server struct {
	cfg        *config.HubConfig
	robot      *virtual.Robot
	manager    *ClientManager
	dispatcher *dispatch.Dispatcher

	mu        sync.Mutex
	runID     string
	runCancel context.CancelFunc
}

// New creates a server around cfg and robot. The caller starts the client
// manager loop via Manager().Start.
func New(cfg *config.HubConfig, robot *virtual.Robot) *Server {
	return &Server{
		cfg:        cfg,
		robot:      robot,
		manager:    NewClientManager(),
		dispatcher: &dispatch.Dispatcher{},
	}
}

// Manager exposes the websocket client manager.
func (s *Server) Manager() *ClientManager { return s.manager }

// planRequest is the mission payload the dashboard posts.
type planRequest struct {
	Mission mission.Mission `json:"mission"`
}

type planResponse struct {
	Segments []path.Segment    `json:"segments"`
	Commands []command.Command `json:"commands"`
}

// plan resolves, builds, and generates for a posted mission.
func (s *Server) plan(ctx context.Context, m mission.Mission) planResponse {
	points := mission.ResolvePoints(ctx, s.cfg.Resolver(), m.Points)
	builder := &path.Builder{DefaultRadiusMM: s.cfg.Planner.DefaultArcRadiusMM}
	segments := builder.Build(ctx, points)
	gen := &command.Generator{
		DriveSpeed: s.cfg.Robot.DriveSpeedMmS,
		TurnSpeed:  s.cfg.Robot.TurnSpeedDegS,
		Actions:    s.cfg.MotorActions(),
	}
	return planResponse{Segments: segments, Commands: gen.Generate(ctx, segments)}
}

// App builds the fiber application with all routes registered.
func (s *Server) App(ctx context.Context) *fiber.App {
	log := logging.FromContext(ctx)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "OK",
			"robot":   s.robot.ID(),
			"clients": s.manager.ClientCount(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api.Get("/positions", func(c *fiber.Ctx) error {
		return c.JSON(s.cfg.Positions)
	})

	api.Get("/state", func(c *fiber.Ctx) error {
		s.mu.Lock()
		runID := s.runID
		s.mu.Unlock()
		return c.JSON(fiber.Map{
			"robot":  s.robot.Snapshot(),
			"run_id": runID,
		})
	})

	api.Post("/plan", func(c *fiber.Ctx) error {
		var req planRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid mission JSON: "+err.Error())
		}
		return c.JSON(s.plan(ctx, req.Mission))
	})

	api.Post("/run", func(c *fiber.Ctx) error {
		var req planRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid mission JSON: "+err.Error())
		}
		plan := s.plan(ctx, req.Mission)

		s.mu.Lock()
		if s.runCancel != nil {
			s.mu.Unlock()
			return fiber.NewError(fiber.StatusConflict, "a run is already in progress")
		}
		runID := uuid.NewString()
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.runID = runID
		s.runCancel = cancel
		s.mu.Unlock()

		go func() {
			defer func() {
				s.mu.Lock()
				s.runCancel = nil
				s.mu.Unlock()
			}()
			runLog := log.With("run_id", runID, "mission", req.Mission.Name)
			runLog.Info("run started", "commands", len(plan.Commands))
			err := s.dispatcher.Execute(logging.NewContext(runCtx, runLog), plan.Commands, s.robot)
			if err != nil {
				runLog.Error("run aborted", "err", err)
				return
			}
			runLog.Info("run finished")
		}()

		return c.JSON(fiber.Map{"run_id": runID, "commands": len(plan.Commands)})
	})

	api.Post("/stop", func(c *fiber.Ctx) error {
		s.mu.Lock()
		if s.runCancel != nil {
			s.runCancel()
		}
		s.mu.Unlock()
		if err := s.robot.Stop(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"stopped": true})
	})

	api.Post("/reset", func(c *fiber.Ctx) error {
		if err := s.robot.Reset(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"reset": true})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		s.handleSocket(ctx, conn)
	}))

	return app
}

// joystickMessage is what the dashboard sends for manual control.
type joystickMessage struct {
	Type     string  `json:"type"`
	Speed    float64 `json:"speed"`
	TurnRate float64 `json:"turn_rate"`
}

// handleSocket registers the client for telemetry broadcast and consumes
// joystick messages until the connection drops.
func (s *Server) handleSocket(ctx context.Context, conn *websocket.Conn) {
	log := logging.FromContext(ctx)
	s.manager.register <- conn
	defer func() { s.manager.unregister <- conn }()

	for {
		var msg joystickMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "drive_continuous":
			// A new joystick vector replaces the previous one.
			_ = s.robot.Stop(ctx)
			go func(m joystickMessage) {
				if err := s.robot.DriveContinuous(ctx, m.Speed, m.TurnRate); err != nil {
					log.Warn("joystick drive ended", "err", err)
				}
			}(msg)
		case "stop":
			_ = s.robot.Stop(ctx)
		default:
			log.Warn("unknown socket message", "type", msg.Type)
		}
	}
}
