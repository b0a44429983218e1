package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bookshelf-service/internal/service"
)

type BookHandler struct {
	bookService service.BookService
	validate    *validator.Validate
}

func NewBookHandler(bookService service.BookService) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		validate:    validator.New(),
	}
}

type CreateBookRequest struct {
	Title string `json:"title" validate:"required,min=6"`
}

type UpdateBookRequest struct {
	Title string `json:"title" validate:"omitempty,min=6"`
}

func (h *BookHandler) Create(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var request CreateBookRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	book, err := h.bookService.Create(c.Context(), request.Title, principal.ID)

	if err != nil {
		return h.mapBookError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(book)
}

func (h *BookHandler) ListAll(c *fiber.Ctx) error {
	books, err := h.bookService.ListAll(c.Context())

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(books)
}

func (h *BookHandler) ListMine(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	books, err := h.bookService.ListByOwner(c.Context(), principal.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return accepted(c, books)
}

func (h *BookHandler) GetAny(c *fiber.Ctx) error {
	book, err := h.bookService.GetAny(c.Context(), c.Params("uuid"))

	if err != nil {
		return h.mapBookError(c, err)
	}

	return accepted(c, book)
}

func (h *BookHandler) GetMine(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	book, err := h.bookService.GetOwned(c.Context(), principal.ID, c.Params("uuid"))
	if err != nil {
		return h.mapBookError(c, err)
	}

	return accepted(c, book)
}

func (h *BookHandler) UpdateAny(c *fiber.Ctx) error {
	var request UpdateBookRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	book, err := h.bookService.UpdateAny(c.Context(), c.Params("uuid"), request.Title)

	if err != nil {
		return h.mapBookError(c, err)
	}

	return accepted(c, book)
}

func (h *BookHandler) UpdateMine(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var request UpdateBookRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input", "details": err.Error()})
	}

	book, err := h.bookService.UpdateOwned(c.Context(), principal.ID, c.Params("uuid"), request.Title)

	if err != nil {
		return h.mapBookError(c, err)
	}

	return accepted(c, book)
}

func (h *BookHandler) DeleteAny(c *fiber.Ctx) error {
	if err := h.bookService.DeleteAny(c.Context(), c.Params("uuid")); err != nil {
		return h.mapBookError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BookHandler) DeleteMine(c *fiber.Ctx) error {
	principal, err := PrincipalFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.bookService.DeleteOwned(c.Context(), principal.ID, c.Params("uuid")); err != nil {
		return h.mapBookError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BookHandler) mapBookError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTitleTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
