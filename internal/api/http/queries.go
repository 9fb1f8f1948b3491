package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// fuelQuery holds query parameters for the fuel endpoint.
type fuelQuery struct {
	Aircraft string  `query:"aircraft" validate:"required,alphanum,max=16"`
	Distance float64 `query:"distance" validate:"gt=0"`
}

// planSearchQuery identifies the departure and arrival airports.
type planSearchQuery struct {
	FromICAO string `query:"fromICAO" validate:"required,len=4,alphanum"`
	ToICAO   string `query:"toICAO" validate:"required,len=4,alphanum"`
}

type assessmentQuery struct {
	Aircraft string `query:"aircraft" validate:"omitempty,alphanum,max=16"`
}

// airportQuery drives the autocomplete endpoint.
type airportQuery struct {
	Text  string `query:"q" validate:"max=100"`
	Limit int    `query:"limit" validate:"gte=1,lte=100"`
}

type normalizer interface {
	normalize()
}

func (q *planSearchQuery) normalize() {
	q.FromICAO = strings.ToUpper(strings.TrimSpace(q.FromICAO))
	q.ToICAO = strings.ToUpper(strings.TrimSpace(q.ToICAO))
}

// bindQuery parses and validates query parameters into dst.
func bindQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
