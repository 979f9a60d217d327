// stub-classifier: stand-in for the gesture model server.
// Serves POST /predict with the same request and response shape as the real
// classifier and labels windows from simple motion energy statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-gesture/internal/log"
	"github.com/teslashibe/go-gesture/pkg/sensor"
)

var (
	port     = flag.Int("port", 5000, "HTTP server port")
	samples  = flag.Int("samples", 130, "Expected samples per window")
	delay    = flag.Duration("delay", 0, "Artificial latency per prediction")
	debug    = flag.Bool("debug", false, "Enable request logging")
	logLevel = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	app := newApp(*samples*sensor.SampleArity, *delay, *debug)

	go func() {
		addr := fmt.Sprintf(":%d", *port)
		log.Info("stub classifier listening", "predict", fmt.Sprintf("http://localhost:%d/predict", *port))
		if err := app.Listen(addr); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Warn("shutdown error", "error", err)
	}
}

type predictRequest struct {
	SensorData []float64 `json:"sensor_data"`
}

func newApp(expected int, delay time.Duration, debug bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "stub-classifier",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if debug {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/predict", func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON: " + err.Error()})
		}
		if len(req.SensorData) != expected {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("expected %d values, got %d", expected, len(req.SensorData)),
			})
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		label := Classify(req.SensorData)
		log.Debug("prediction", "label", label)
		return c.JSON(fiber.Map{"prediction": label})
	})

	return app
}
