package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/forcemove/controller/domain/diagnostic"
	"github.com/forcemove/controller/domain/drive"
	"github.com/forcemove/controller/pkg/api"
	"github.com/forcemove/controller/pkg/config"
	customlog "github.com/forcemove/controller/pkg/log"
	"github.com/forcemove/controller/pkg/processing"
	"github.com/forcemove/controller/pkg/sim"
	"github.com/forcemove/controller/pkg/zeromq"
	"github.com/forcemove/controller/services"
)

func main() {
	// Bootstrap configuration comes from CONFIG_DIR/controller_config.yaml
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		stdlog.Fatalf("Failed to load bootstrap config: %v", err)
	}

	log, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		stdlog.Fatalf("Failed to create logger: %v", err)
	}

	// The transport layer logs through the standard logger
	zmqLogger := stdlog.New(os.Stdout, "[zmq] ", stdlog.LstdFlags)

	// Operational drive configuration
	driveConfigPath := filepath.Join(bootstrapCfg.Data.Directory, bootstrapCfg.Data.DriveConfigFilename)
	configService, err := services.NewDriveConfigService(driveConfigPath, log)
	if err != nil {
		log.Fatalf("Failed to create drive config service: %v", err)
	}
	cfg := configService.GetCurrentConfig()
	if cfg == nil {
		log.Fatalf("No valid operational drive configuration at %s, refusing to start", driveConfigPath)
	}

	// Simulated world and the controlled body
	world := sim.NewWorld()
	if _, err := world.AddBody(sim.BodyParams{
		Name:           cfg.Body.Name,
		Mass:           cfg.Body.Mass,
		Inertia:        cfg.Body.Inertia,
		LinearDamping:  cfg.Body.LinearDamping,
		AngularDamping: cfg.Body.AngularDamping,
	}); err != nil {
		log.Fatalf("Failed to create simulated body: %v", err)
	}

	// Messaging substrate: a failure here is fatal, the controller must
	// not run without it.
	zmqService, err := zeromq.NewZeroMQService(bootstrapCfg.ZeroMQ, zmqLogger)
	if err != nil {
		log.Fatalf("Failed to initialize ZeroMQ service: %v", err)
	}

	topicRegistry := processing.NewTopicRegistry(log)
	topicRegistry.LoadFromConfig(cfg)

	commandPool := processing.NewPool(
		"COMMAND",
		bootstrapCfg.Processing.CommandWorkers,
		bootstrapCfg.Processing.CommandQueueSize,
		log,
	)

	diagService := diagnostic.NewService()

	odomPublisher := zeromq.NewOdometryPublisher(zmqService, cfg, zmqLogger)

	driveService, err := drive.NewService(cfg, world, commandPool, odomPublisher, diagService, log)
	if err != nil {
		log.Fatalf("Failed to create drive service: %v", err)
	}

	configPublisher := zeromq.RegisterConfigHandlers(zmqService, cfg, zmqLogger)
	configService.SetPublisher(configPublisher)

	zmqService.RegisterHandler(
		zeromq.MsgTypeDriveCommand,
		zeromq.NewDriveCommandHandler(driveService, cfg.CommandTopic(), zmqLogger),
	)

	commandListener, err := zeromq.NewCommandListener(zmqService.Context(), cfg.CommandTopic(), commandPool, topicRegistry)
	if err != nil {
		log.Fatalf("Failed to create command listener: %v", err)
	}

	driveService.Start()
	if err := zmqService.Start(); err != nil {
		log.Fatalf("Failed to start ZeroMQ service: %v", err)
	}
	if err := commandListener.Start(bootstrapCfg.ZeroMQ.CommandBindAddress); err != nil {
		log.Fatalf("Failed to start command listener: %v", err)
	}

	// Simulation loop: the single goroutine that steps the world and
	// invokes the per-step update.
	simStop := make(chan struct{})
	simDone := make(chan struct{})
	go runSimLoop(world, driveService, bootstrapCfg.Sim, simStop, simDone)

	// HTTP API
	app := fiber.New(fiber.Config{
		AppName:      "Force Drive Controller",
		ErrorHandler: apiErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "force drive controller",
			"robot":   cfg.RobotID,
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api.RegisterDriveRoutes(app, driveService, commandPool, log)
	api.RegisterConfigRoutes(app, configService, log)

	diagnosticRoutes := app.Group("/api/v1/diagnostics")
	diagnosticRoutes.Get("/", diagService.GetStatsHandler)
	diagnosticRoutes.Get("/topics", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "success",
			"topics": topicRegistry.Snapshot(),
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/control", websocket.New(func(conn *websocket.Conn) {
		api.ControlWebSocketHandler(conn, log, driveService)
	}))
	app.Get("/ws/odometry", websocket.New(func(conn *websocket.Conn) {
		api.OdometryWebSocketHandler(conn, log, driveService, 50*time.Millisecond)
	}))

	go func() {
		addr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
		log.Infof("HTTP server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("Shutting down controller...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("HTTP server forced to shutdown: %v", err)
	}

	close(simStop)
	<-simDone

	// Teardown order: stop the command source, then drain and join the
	// ingestion worker, then tear down the sockets.
	commandListener.Stop()
	driveService.Stop()
	zmqService.Stop()

	log.Infof("Controller exited properly")
}

// runSimLoop steps the world at the configured fixed step. In realtime
// mode steps are paced by a wall-clock ticker; otherwise the loop runs
// as fast as it can.
func runSimLoop(world *sim.World, driveService *drive.Service, simCfg config.SimConfig, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	step := simCfg.StepSeconds

	if simCfg.Realtime {
		ticker := time.NewTicker(time.Duration(step * float64(time.Second)))
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				driveService.Update()
				world.Step(step)
			}
		}
	}

	for {
		select {
		case <-stop:
			return
		default:
			driveService.Update()
			world.Step(step)
		}
	}
}

// apiErrorHandler is the custom Fiber error handler
func apiErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
