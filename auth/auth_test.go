package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowkit/types"
)

func TestAPIKeyRequiresHeader(t *testing.T) {
	t.Parallel()

	provider := APIKey("secret-1")
	_, err := provider(context.Background(), RequestData{Headers: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, types.StatusUnauthenticated, types.StatusOf(err))
}

func TestAPIKeyRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	provider := APIKey("secret-1", "secret-2")
	_, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "wrong"},
	})
	require.Error(t, err)
	assert.Equal(t, types.StatusPermissionDenied, types.StatusOf(err))
}

func TestAPIKeyAcceptsListedKey(t *testing.T) {
	t.Parallel()

	provider := APIKey("secret-1")
	c, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "secret-1"},
	})
	require.NoError(t, err)
	auth, ok := c["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "secret-1", auth["apiKey"])
}

func TestAPIKeyOpenModeAcceptsAnyKey(t *testing.T) {
	t.Parallel()

	provider := APIKey()
	c, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "anything"},
	})
	require.NoError(t, err)
	assert.NotNil(t, c["auth"])
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestJWTBearerAcceptsValidToken(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	token := signToken(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	provider := JWTBearer(secret)
	c, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "Bearer " + token},
	})
	require.NoError(t, err)
	auth, ok := c["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user-1", auth["sub"])
}

func TestJWTBearerRejectsBadSignature(t *testing.T) {
	t.Parallel()

	token := signToken(t, []byte("other-secret"), jwt.MapClaims{"sub": "user-1"})
	provider := JWTBearer([]byte("test-secret"))
	_, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "Bearer " + token},
	})
	require.Error(t, err)
	assert.Equal(t, types.StatusUnauthenticated, types.StatusOf(err))
}

func TestJWTBearerRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	token := signToken(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	provider := JWTBearer(secret)
	_, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "Bearer " + token},
	})
	require.Error(t, err)
	assert.Equal(t, types.StatusUnauthenticated, types.StatusOf(err))
}

func TestJWTBearerRejectsNonBearer(t *testing.T) {
	t.Parallel()

	provider := JWTBearer([]byte("s"))
	_, err := provider(context.Background(), RequestData{
		Headers: map[string]string{"authorization": "Basic abc"},
	})
	require.Error(t, err)
	assert.Equal(t, types.StatusUnauthenticated, types.StatusOf(err))
}
