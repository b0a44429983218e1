package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookshelf-service/internal/jwt"
	"bookshelf-service/internal/model"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

const principalKey = "principal"

// Principal is the authenticated identity attached to the request
// context by AuthMiddleware.
type Principal struct {
	ID       primitive.ObjectID
	UUID     string
	Username string
	Role     model.Role
}

func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header format"})
		}

		claims, err := jwt.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, jwtv5.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token has expired"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid subject in token"})
		}

		c.Locals(principalKey, Principal{
			ID:       id,
			UUID:     claims.UUID,
			Username: claims.Username,
			Role:     claims.Role,
		})

		return c.Next()
	}
}

// RequireRole gates a route on an exact role match. There is no role
// hierarchy; admin routes name RoleAdmin explicitly.
func RequireRole(role model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := PrincipalFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		if principal.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin privileges required"})
		}

		return c.Next()
	}
}

func PrincipalFromCtx(c *fiber.Ctx) (Principal, error) {
	principal, ok := c.Locals(principalKey).(Principal)
	if !ok {
		return Principal{}, errors.New("principal not found in context")
	}

	return principal, nil
}

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var e *fiber.Error

			if errors.As(err, &e) {
				statusCode = e.Code
			} else {
				statusCode = fiber.StatusInternalServerError
			}
		}

		statusStr := fmt.Sprintf("%d", statusCode)

		httpRequestTotal.WithLabelValues(c.Method(), c.Path(), statusStr).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), c.Path(), statusStr).Observe(duration)

		return err
	}
}
