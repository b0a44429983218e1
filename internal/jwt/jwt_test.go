package jwt_test

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookshelf-service/internal/jwt"
	"bookshelf-service/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:       primitive.NewObjectID(),
		UUID:     model.NewUserUUID(),
		Username: "alice01",
		Role:     model.RoleUser,
	}
}

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := testUser()
	token, err := jwt.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwt.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID.Hex(), claims.Subject)
	require.Equal(t, user.UUID, claims.UUID)
	require.Equal(t, "alice01", claims.Username)
	require.Equal(t, model.RoleUser, claims.Role)
	require.Equal(t, jwt.TokenValidity, claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time))
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := jwt.GenerateToken(testUser())
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = jwt.ValidateToken(token)
	require.Error(t, err)
}

func TestValidate_Tampered(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := jwt.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = jwt.ValidateToken(token + "x")
	require.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	claims := jwt.Claims{
		UUID:     "user-whatever",
		Username: "alice01",
		Role:     model.RoleUser,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   primitive.NewObjectID().Hex(),
			IssuedAt:  jwtv5.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = jwt.ValidateToken(token)
	require.ErrorIs(t, err, jwtv5.ErrTokenExpired)
}
