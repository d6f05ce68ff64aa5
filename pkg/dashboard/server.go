package dashboard

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lwolf/trendscaler/controllers"
)

const shutdownTimeout = 5 * time.Second

// StateReader is the read side of the scaler state.
type StateReader interface {
	Snapshot() (controllers.Snapshot, bool)
	Events() []controllers.ScalingEvent
}

// Server exposes the scaler state as JSON. It never talks to the cluster or
// to the signal sources, everything comes from the last published snapshot.
type Server struct {
	app   *fiber.App
	addr  string
	state StateReader
	log   logr.Logger
}

func New(log logr.Logger, addr string, state StateReader) *Server {
	s := &Server{
		addr:  addr,
		state: state,
		log:   log.WithName("dashboard"),
	}
	app := fiber.New(fiber.Config{
		AppName:               "trendscaler",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(recover.New())
	app.Get("/data", s.getData)
	app.Get("/metric", s.getMetric)
	app.Get("/events", s.getEvents)
	app.Get("/estimate", s.getEstimate)
	s.app = app
	return s
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting dashboard", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.log.Error(err, "dashboard forced to shutdown")
		return err
	}
	s.log.Info("dashboard stopped")
	return nil
}

// NeedLeaderElection lets standby replicas serve the dashboard too.
func (s *Server) NeedLeaderElection() bool {
	return false
}

func (s *Server) getData(c *fiber.Ctx) error {
	snap, _ := s.state.Snapshot()
	return c.JSON(fiber.Map{
		"user_count": snap.UserCount,
		"pod_count":  snap.PodCount,
	})
}

func (s *Server) getMetric(c *fiber.Ctx) error {
	snap, ok := s.state.Snapshot()
	switch {
	case !ok:
		return c.JSON(fiber.Map{"error": "no resource usage collected yet"})
	case snap.Usage != nil:
		return c.JSON(snap.Usage)
	case snap.UsageError != "":
		return c.JSON(fiber.Map{"error": snap.UsageError})
	default:
		return c.JSON(fiber.Map{"error": "resource usage was not collected in the last tick"})
	}
}

func (s *Server) getEvents(c *fiber.Ctx) error {
	events := s.state.Events()
	limit := c.QueryInt("limit", len(events))
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be >= 0"})
	}
	if limit < len(events) {
		events = events[len(events)-limit:]
	}
	return c.JSON(fiber.Map{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) getEstimate(c *fiber.Ctx) error {
	snap, ok := s.state.Snapshot()
	if !ok || snap.Estimate == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no decision made yet"})
	}
	return c.JSON(fiber.Map{
		"estimate":   snap.Estimate,
		"updated_at": snap.UpdatedAt,
	})
}
