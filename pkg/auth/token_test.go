package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neline/marketplace-backend/pkg/config"
	"github.com/neline/marketplace-backend/pkg/enums"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "neline", ExpirationMinutes: 30}
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims AccessTokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testConfig().Secret))
	require.NoError(t, err)
	return signed
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.SystemRoleAdmin})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.SystemRoleAdmin, claims.Role)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenKeepsGivenJTI(t *testing.T) {
	token, err := MintAccessToken(testConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser, JTI: " abc "})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testConfig(), token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.ID)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser})
	require.NoError(t, err)

	other := cfg
	other.Secret = "different"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser})
	require.NoError(t, err)

	cfg.Issuer = "someone-else"
	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestParseAccessTokenExpiry(t *testing.T) {
	cfg := testConfig()

	expired, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	withinSkew, err := MintAccessToken(cfg, time.Now().Add(-30*time.Minute-10*time.Second), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, withinSkew)
	assert.NoError(t, err)
}

func TestParseAccessTokenRequiresExpiry(t *testing.T) {
	id := uuid.New()
	token := signRaw(t, jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:           id,
		Role:             enums.SystemRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "neline", Subject: id.String()},
	})

	_, err := ParseAccessToken(testConfig(), token)
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	id := uuid.New()
	token := signRaw(t, jwt.SigningMethodHS512, AccessTokenClaims{
		UserID: id,
		Role:   enums.SystemRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "neline",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := ParseAccessToken(testConfig(), token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessTokenValidatesClaims(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	missingUser := signRaw(t, jwt.SigningMethodHS256, AccessTokenClaims{
		Role:             enums.SystemRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "neline", ExpiresAt: exp},
	})
	_, err := ParseAccessToken(testConfig(), missingUser)
	assert.ErrorIs(t, err, ErrMissingUser)

	badRole := signRaw(t, jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             "root",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "neline", ExpiresAt: exp},
	})
	_, err = ParseAccessToken(testConfig(), badRole)
	assert.ErrorIs(t, err, ErrInvalidRole)

	mismatched := signRaw(t, jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:           uuid.New(),
		Role:             enums.SystemRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "neline", Subject: uuid.NewString(), ExpiresAt: exp},
	})
	_, err = ParseAccessToken(testConfig(), mismatched)
	assert.ErrorContains(t, err, "subject does not match")
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testConfig()

	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.SystemRoleUser})
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	noTTL := cfg
	noTTL.ExpirationMinutes = 0
	_, err = MintAccessToken(noTTL, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.SystemRoleUser})
	assert.Error(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Issuer: "neline"}, "x.y.z")
	assert.ErrorContains(t, err, "secret is required")
}
