package api

import (
	"strings"
	"time"

	"github.com/arya-analytics/orbits/pkg/api/token"
	"github.com/arya-analytics/orbits/pkg/metrics"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const localsSubjectKey = "subject"

// TokenMiddleware parses a token from the request and checks that it is valid and
// was issued to the session named by the route's id parameter. If so, it sets the
// session key in the request context.
func TokenMiddleware(svc *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tk, err := parseToken(c)
		if err != nil {
			c.Status(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		key, err := svc.Validate(tk)
		if err != nil {
			c.Status(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{"error": err.Error()})
		}
		if c.Params("id") != key.String() {
			c.Status(fiber.StatusForbidden)
			return c.JSON(fiber.Map{"error": "token was not issued for this session"})
		}
		c.Locals(localsSubjectKey, key)
		return c.Next()
	}
}

func subject(c *fiber.Ctx) uuid.UUID {
	key, _ := c.Locals(localsSubjectKey).(uuid.UUID)
	return key
}

type tokenParser func(c *fiber.Ctx) (token string, found bool, err error)

const (
	tokenCookieName               = "Token"
	headerTokenPrefix             = "Bearer "
	invalidAuthorizationHeaderMsg = `
	invalid authorization header. Format should be

		'Authorization: Bearer <Token>'
	`
)

var tokenParsers = []tokenParser{
	tryParseCookieToken,
	tryParseHeaderToken,
}

func parseToken(c *fiber.Ctx) (string, error) {
	for _, tp := range tokenParsers {
		if tk, found, err := tp(c); found {
			return tk, err
		}
	}
	return "", errors.New("[api] - no token provided")
}

func tryParseCookieToken(c *fiber.Ctx) (string, bool, error) {
	tk := c.Cookies(tokenCookieName)
	return tk, len(tk) != 0, nil
}

func tryParseHeaderToken(c *fiber.Ctx) (string, bool, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if len(authHeader) == 0 {
		return "", false, nil
	}
	splitToken := strings.Split(authHeader, headerTokenPrefix)
	if len(splitToken) != 2 {
		return "", true, errors.New(invalidAuthorizationHeaderMsg)
	}
	return splitToken[1], true, nil
}

// MetricsMiddleware records the status and latency of every request.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}
		m.ObserveRequest(c.Route().Path, c.Method(), code, time.Since(start))
		return err
	}
}
