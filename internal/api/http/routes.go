package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/flight-route-planner/internal/airport"
	"github.com/i474232898/flight-route-planner/internal/flightplan"
	"github.com/i474232898/flight-route-planner/internal/route"
	"github.com/i474232898/flight-route-planner/internal/upstream"
)

var validate = validator.New()

const (
	msgFuelFailed      = "Failed to fetch fuel data"
	msgPlansFailed     = "Failed to fetch flight plans. Please try again later."
	msgPlanFailed      = "Failed to fetch flight details. Please try again later."
	msgPlanNotFound    = "Flight details not found. Please check the ID and try again."
	msgAirportNotFound = "Airport not found"
	msgInternal        = "Internal server error"
)

// PlanGateway searches and fetches flight plans.
type PlanGateway interface {
	Search(ctx context.Context, fromICAO, toICAO string) ([]flightplan.FlightPath, error)
	Get(ctx context.Context, id int64) (flightplan.FlightPath, error)
}

// FuelEstimator returns the estimator's answer untouched.
type FuelEstimator interface {
	Raw(ctx context.Context, aircraft string, distanceKm float64) (json.RawMessage, error)
}

// Assessor builds the detail view of one plan.
type Assessor interface {
	Assess(ctx context.Context, planID int64, aircraft string) (route.Assessment, error)
}

// AirportDirectory is the read-only airport table.
type AirportDirectory interface {
	FindByPrefix(text string, limit int) []airport.Airport
	Lookup(code string) (airport.Airport, bool)
}

// Deps are the collaborators behind the HTTP routes.
type Deps struct {
	Plans           PlanGateway
	Fuel            FuelEstimator
	Assessor        Assessor
	Airports        AirportDirectory
	DefaultAircraft string
	// UpstreamTimeout bounds the upstream work of one request (0 = none).
	UpstreamTimeout time.Duration
}

// ErrorHandler renders every error as {"error": message}. Only *fiber.Error
// messages reach the client; anything else is logged and reported generically.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": msgInternal,
	})
}

// RegisterRoutes wires the HTTP handlers into a Fiber router.
func RegisterRoutes(r fiber.Router, d Deps) {
	r.Get("/fuel-data", func(c *fiber.Ctx) error {
		var q fuelQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		raw, err := d.Fuel.Raw(ctx, q.Aircraft, q.Distance)
		if err != nil {
			log.Printf("ERROR: fetching fuel data: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, msgFuelFailed)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(raw)
	})

	r.Get("/flightplans", func(c *fiber.Ctx) error {
		var q planSearchQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		plans, err := d.Plans.Search(ctx, q.FromICAO, q.ToICAO)
		if err != nil {
			log.Printf("ERROR: fetching flight plans %s-%s: %v", q.FromICAO, q.ToICAO, err)
			return fiber.NewError(fiber.StatusInternalServerError, msgPlansFailed)
		}
		if plans == nil {
			plans = []flightplan.FlightPath{}
		}
		return c.JSON(plans)
	})

	r.Get("/flightplan/:id", func(c *fiber.Ctx) error {
		id, err := planID(c)
		if err != nil {
			return err
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		plan, err := d.Plans.Get(ctx, id)
		if err != nil {
			return planError(id, err)
		}
		return c.JSON(plan)
	})

	r.Get("/flightplan/:id/assessment", func(c *fiber.Ctx) error {
		id, err := planID(c)
		if err != nil {
			return err
		}

		var q assessmentQuery
		if err := bindQuery(c, &q); err != nil {
			return err
		}
		if q.Aircraft == "" {
			q.Aircraft = d.DefaultAircraft
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		a, err := d.Assessor.Assess(ctx, id, q.Aircraft)
		if err != nil {
			return planError(id, err)
		}
		return c.JSON(a)
	})

	r.Get("/airports", func(c *fiber.Ctx) error {
		q := airportQuery{Limit: 10}
		if err := bindQuery(c, &q); err != nil {
			return err
		}

		found := d.Airports.FindByPrefix(q.Text, q.Limit)
		if found == nil {
			found = []airport.Airport{}
		}
		return c.JSON(found)
	})

	r.Get("/airports/:code", func(c *fiber.Ctx) error {
		code := c.Params("code")
		if err := validate.Var(code, "required,alphanum,min=3,max=4"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "airport code must be an IATA or ICAO code")
		}

		a, ok := d.Airports.Lookup(code)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, msgAirportNotFound)
		}
		return c.JSON(a)
	})
}

func (d Deps) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if d.UpstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.UpstreamTimeout)
}

func planError(id int64, err error) error {
	if errors.Is(err, upstream.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, msgPlanNotFound)
	}
	log.Printf("ERROR: fetching flight plan %d: %v", id, err)
	return fiber.NewError(fiber.StatusInternalServerError, msgPlanFailed)
}

func planID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "flight plan id must be a positive integer")
	}
	return int64(id), nil
}
