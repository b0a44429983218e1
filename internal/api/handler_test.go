package api_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookshelf-service/internal/api"
	"bookshelf-service/internal/model"
	"bookshelf-service/internal/service"
)

type stubAuthService struct {
	registerErr error
	loginErr    error
	deleteErr   error
}

func (s *stubAuthService) Register(_ context.Context, username, _ string) (*service.UserView, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &service.UserView{
		UUID:      model.NewUserUUID(),
		Username:  username,
		Role:      model.RoleUser,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

func (s *stubAuthService) Login(_ context.Context, username, _ string) (*service.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.LoginResult{
		Username:    username,
		AccessToken: "stub-token",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

func (s *stubAuthService) ListUsers(context.Context) ([]service.UserView, error) {
	return nil, nil
}

func (s *stubAuthService) GetUser(context.Context, string) (*service.UserView, error) {
	return nil, service.ErrUserNotFound
}

func (s *stubAuthService) GetMe(_ context.Context, uuid string) (*service.UserView, error) {
	return &service.UserView{UUID: uuid, Username: "alice01", Role: model.RoleUser}, nil
}

func (s *stubAuthService) UpdateUser(context.Context, string, service.UserUpdate) (*service.UserView, error) {
	return nil, service.ErrUserNotFound
}

func (s *stubAuthService) UpdateMe(_ context.Context, uuid string, upd service.SelfUpdate) (*service.SelfView, error) {
	return &service.SelfView{UUID: uuid, Username: upd.Username}, nil
}

func (s *stubAuthService) DeleteUser(context.Context, string, string) error {
	return s.deleteErr
}

func (s *stubAuthService) DeleteMe(context.Context, string) error {
	return s.deleteErr
}

func authApp(stub *stubAuthService) *fiber.App {
	handler := api.NewAuthHandler(stub)

	app := fiber.New()
	app.Post("/auth/register", handler.Register)
	app.Post("/auth/login", handler.Login)
	app.Get("/auth/me", api.AuthMiddleware(), handler.GetMe)
	app.Delete("/auth/me", api.AuthMiddleware(), handler.DeleteMe)
	app.Delete("/auth/user/:uuid", api.AuthMiddleware(), api.RequireRole(model.RoleAdmin), handler.DeleteUser)

	return app
}

func TestRegister_Created(t *testing.T) {
	app := authApp(&stubAuthService{})

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(`{"username":"alice01","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "alice01", body["username"])
	require.NotContains(t, body, "password")
}

func TestRegister_TooShort(t *testing.T) {
	app := authApp(&stubAuthService{})

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(`{"username":"al","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRegister_Conflict(t *testing.T) {
	app := authApp(&stubAuthService{registerErr: service.ErrUsernameTaken})

	req := httptest.NewRequest("POST", "/auth/register", strings.NewReader(`{"username":"alice01","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLogin_OK(t *testing.T) {
	app := authApp(&stubAuthService{})

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"username":"alice01","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "stub-token", body["accessToken"])
	require.Equal(t, "Bearer", body["tokenType"])
	require.Equal(t, float64(3600), body["expiresIn"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := authApp(&stubAuthService{loginErr: service.ErrInvalidCredentials})

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"username":"alice01","password":"wrongpw"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "invalid credentials", body["error"])
}

func TestGetMe_Envelope(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := authApp(&stubAuthService{})

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleUser))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "accepted", body["message"])
	require.Equal(t, float64(fiber.StatusOK), body["statusCode"])
	require.NotNil(t, body["data"])
}

func TestDeleteUser_SelfProtectionMapsToForbidden(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := authApp(&stubAuthService{deleteErr: service.ErrAdminSelfDelete})

	req := httptest.NewRequest("DELETE", "/auth/user/user-some-target", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleAdmin))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteMe_NoContent(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := authApp(&stubAuthService{})

	req := httptest.NewRequest("DELETE", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleUser))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

type stubBookService struct {
	createErr error
	getErr    error
}

func (s *stubBookService) Create(_ context.Context, title string, _ primitive.ObjectID) (*service.BookView, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &service.BookView{
		ID:     model.NewBookUUID(),
		Title:  title,
		Author: service.AuthorView{ID: model.NewUserUUID(), Username: "alice01"},
	}, nil
}

func (s *stubBookService) ListAll(context.Context) ([]service.BookView, error) { return nil, nil }

func (s *stubBookService) ListByOwner(context.Context, primitive.ObjectID) ([]service.BookView, error) {
	return nil, nil
}

func (s *stubBookService) GetAny(context.Context, string) (*service.BookView, error) {
	return nil, s.getErr
}

func (s *stubBookService) GetOwned(context.Context, primitive.ObjectID, string) (*service.BookView, error) {
	return nil, s.getErr
}

func (s *stubBookService) UpdateAny(context.Context, string, string) (*service.BookUpdateView, error) {
	return nil, s.getErr
}

func (s *stubBookService) UpdateOwned(context.Context, primitive.ObjectID, string, string) (*service.BookUpdateView, error) {
	return nil, s.getErr
}

func (s *stubBookService) DeleteAny(context.Context, string) error { return s.getErr }

func (s *stubBookService) DeleteOwned(context.Context, primitive.ObjectID, string) error {
	return s.getErr
}

func bookApp(stub *stubBookService) *fiber.App {
	handler := api.NewBookHandler(stub)

	app := fiber.New()
	group := app.Group("/book", api.AuthMiddleware())
	group.Post("/post", handler.Create)
	group.Get("/me/:uuid", handler.GetMine)

	return app
}

func TestCreateBook_Created(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := bookApp(&stubBookService{})

	req := httptest.NewRequest("POST", "/book/post", strings.NewReader(`{"title":"Learning Go"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleUser))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	author, ok := body["author"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice01", author["username"])
}

func TestCreateBook_Conflict(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := bookApp(&stubBookService{createErr: service.ErrTitleTaken})

	req := httptest.NewRequest("POST", "/book/post", strings.NewReader(`{"title":"Learning Go"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleUser))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGetMine_NotFound(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := bookApp(&stubBookService{getErr: service.ErrBookNotFound})

	req := httptest.NewRequest("GET", "/book/me/book-missing", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleUser))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "book not found", body["error"])
}
