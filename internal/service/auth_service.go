package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"bookshelf-service/internal/events"
	"bookshelf-service/internal/jwt"
	"bookshelf-service/internal/model"
	"bookshelf-service/internal/repository"
)

// bcryptCost is deliberately below the library default; login latency
// matters more here than brute-force hardening of a demo-grade store.
const bcryptCost = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrAdminSelfDelete    = errors.New("admin cannot delete itself")
	ErrAdminTargetDelete  = errors.New("cannot delete another admin")
)

// UserView is the outward projection of a user. The password hash never
// crosses this boundary.
type UserView struct {
	UUID      string     `json:"uuid"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SelfView is UserView without the role; self-updates do not get to see
// or touch it.
type SelfView struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LoginResult struct {
	Username    string `json:"username"`
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// UserUpdate carries the admin whitelist; zero values mean "leave as is".
type UserUpdate struct {
	Username string
	Password string
	Role     model.Role
}

// SelfUpdate carries the self-service whitelist. Role is structurally
// absent, which is what makes self-escalation impossible.
type SelfUpdate struct {
	Username string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*UserView, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ListUsers(ctx context.Context) ([]UserView, error)
	GetUser(ctx context.Context, uuid string) (*UserView, error)
	GetMe(ctx context.Context, uuid string) (*UserView, error)
	UpdateUser(ctx context.Context, uuid string, upd UserUpdate) (*UserView, error)
	UpdateMe(ctx context.Context, uuid string, upd SelfUpdate) (*SelfView, error)
	DeleteUser(ctx context.Context, targetUUID, requesterUUID string) error
	DeleteMe(ctx context.Context, uuid string) error
}

type authService struct {
	userRepo  repository.UserRepository
	publisher events.EventPublisher
}

func NewAuthService(userRepo repository.UserRepository, pub events.EventPublisher) AuthService {
	return &authService{userRepo: userRepo, publisher: pub}
}

func (s *authService) Register(ctx context.Context, username, password string) (*UserView, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)

	if err != nil {
		return nil, err
	}

	user := &model.User{
		UUID:     model.NewUserUUID(),
		Username: strings.TrimSpace(username),
		Password: string(hashed),
		Role:     model.RoleUser,
	}

	newID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	user.ID = newID

	go s.publisher.PublishUserRegistered(user)

	return userView(user), nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsernameWithPassword(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Same sentinel as a wrong password, so an attacker cannot
			// probe which usernames exist.
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Username:    user.Username,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   jwt.ExpiresInSeconds,
	}, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.userRepo.FindAll(ctx)

	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, *userView(&users[i]))
	}

	return views, nil
}

func (s *authService) GetUser(ctx context.Context, uuid string) (*UserView, error) {
	user, err := s.findByUUID(ctx, uuid)

	if err != nil {
		return nil, err
	}

	return userView(user), nil
}

func (s *authService) GetMe(ctx context.Context, uuid string) (*UserView, error) {
	user, err := s.findByUUID(ctx, normalizeUserUUID(uuid))

	if err != nil {
		return nil, err
	}

	return userView(user), nil
}

func (s *authService) UpdateUser(ctx context.Context, uuid string, upd UserUpdate) (*UserView, error) {
	user, err := s.findByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}

	if upd.Role != "" && !upd.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	if err := s.applyUpdate(user, upd.Username, upd.Password); err != nil {
		return nil, err
	}
	if upd.Role != "" {
		user.Role = upd.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return userView(user), nil
}

func (s *authService) UpdateMe(ctx context.Context, uuid string, upd SelfUpdate) (*SelfView, error) {
	user, err := s.findByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}

	if err := s.applyUpdate(user, upd.Username, upd.Password); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return &SelfView{
		UUID:      user.UUID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

func (s *authService) DeleteUser(ctx context.Context, targetUUID, requesterUUID string) error {
	if targetUUID == requesterUUID {
		return ErrAdminSelfDelete
	}

	user, err := s.findByUUID(ctx, targetUUID)
	if err != nil {
		return err
	}

	if user.Role == model.RoleAdmin {
		return ErrAdminTargetDelete
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}

	go s.publisher.PublishUserDeleted(user)

	return nil
}

func (s *authService) DeleteMe(ctx context.Context, uuid string) error {
	user, err := s.findByUUID(ctx, uuid)
	if err != nil {
		return err
	}

	if user.Role == model.RoleAdmin {
		return ErrAdminSelfDelete
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}

	go s.publisher.PublishUserDeleted(user)

	return nil
}

func (s *authService) findByUUID(ctx context.Context, uuid string) (*model.User, error) {
	user, err := s.userRepo.FindByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// applyUpdate mutates the shared part of the admin and self whitelists,
// re-hashing the password when one is supplied.
func (s *authService) applyUpdate(user *model.User, username, password string) error {
	if username != "" {
		user.Username = strings.TrimSpace(username)
	}
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return err
		}
		user.Password = string(hashed)
	}

	return nil
}

// normalizeUserUUID tolerates bare identifiers by prefixing the
// canonical form. Callers should not depend on this leniency.
func normalizeUserUUID(uuid string) string {
	if strings.HasPrefix(uuid, "user-") {
		return uuid
	}

	return "user-" + uuid
}

func userView(user *model.User) *UserView {
	return &UserView{
		UUID:      user.UUID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
