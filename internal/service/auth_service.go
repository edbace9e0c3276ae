package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

// AuthConfig defines how bearer tokens from the identity provider are verified.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
	Audience          []string
	// Leeway tolerates clock drift between the identity provider and the API.
	Leeway            time.Duration
}

// AuthService verifies access tokens and resolves the acting user.
type AuthService struct {
	logger *zap.Logger
	key    []byte
	parser *jwt.Parser
}

// NewAuthService builds the parser once; every token must be HS256 and carry an expiry.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if len(config.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(config.Audience[0]))
	}
	return &AuthService{logger: logger, key: []byte(config.AccessTokenSecret), parser: jwt.NewParser(opts...)}
}

// ValidateToken parses the token and returns its claims. Tokens without a
// user_id claim fall back to the registered subject.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if len(s.key) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token verification is not configured")
	}

	claims := &models.JWTClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		s.logger.Debug("token rejected", zap.String("reason", rejectReason(err)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "wrong_audience"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	default:
		return "malformed"
	}
}
