package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bookshelf-service/internal/model"
	"bookshelf-service/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	validate    *validator.Validate
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=6"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=6"`
	Password string `json:"password" validate:"required,min=6"`
}

type UpdateUserRequest struct {
	Username string `json:"username" validate:"omitempty,min=6"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UpdateMeRequest has no role field; a role in the payload is dropped
// during parsing and can never reach the service.
type UpdateMeRequest struct {
	Username string `json:"username" validate:"omitempty,min=6"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// accepted wraps authenticated read/update responses the way every
// consumer of this API already expects them.
func accepted(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"statusCode": fiber.StatusOK,
		"message":    "accepted",
		"data":       data,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var request RegisterRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	user, err := h.authService.Register(c.Context(), request.Username, request.Password)

	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": service.ErrUsernameTaken.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request LoginRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	result, err := h.authService.Login(c.Context(), request.Username, request.Password)

	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": service.ErrInvalidCredentials.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AuthHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.Context())

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return accepted(c, users)
}

func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.Context(), c.Params("uuid"))

	if err != nil {
		return h.mapUserError(c, err)
	}

	return accepted(c, user)
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	me, err := h.authService.GetMe(c.Context(), principal.UUID)
	if err != nil {
		return h.mapUserError(c, err)
	}

	return accepted(c, me)
}

func (h *AuthHandler) UpdateUser(c *fiber.Ctx) error {
	var request UpdateUserRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	user, err := h.authService.UpdateUser(c.Context(), c.Params("uuid"), service.UserUpdate{
		Username: request.Username,
		Password: request.Password,
		Role:     model.Role(request.Role),
	})

	if err != nil {
		return h.mapUserError(c, err)
	}

	return accepted(c, user)
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var request UpdateMeRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	me, err := h.authService.UpdateMe(c.Context(), principal.UUID, service.SelfUpdate{
		Username: request.Username,
		Password: request.Password,
	})

	if err != nil {
		return h.mapUserError(c, err)
	}

	return accepted(c, me)
}

func (h *AuthHandler) DeleteUser(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.authService.DeleteUser(c.Context(), c.Params("uuid"), principal.UUID); err != nil {
		return h.mapUserError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) DeleteMe(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.authService.DeleteMe(c.Context(), principal.UUID); err != nil {
		return h.mapUserError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) mapUserError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRole):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAdminSelfDelete), errors.Is(err, service.ErrAdminTargetDelete):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
