package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
)

// CredentialIssuer issues and checks admin credentials.
type CredentialIssuer interface {
	Issue(ctx context.Context, req models.LoginRequest) (*models.AccessToken, error)
	Verify(token string) (*models.JWTClaims, error)
}

// PasswordVerifier decides whether a presented secret matches the admin secret.
type PasswordVerifier interface {
	Verify(password string) bool
}

// StaticPasswordVerifier compares against a plain configured secret.
type StaticPasswordVerifier struct {
	secret []byte
}

// NewStaticPasswordVerifier builds a verifier for the given secret.
func NewStaticPasswordVerifier(secret string) *StaticPasswordVerifier {
	return &StaticPasswordVerifier{secret: []byte(secret)}
}

// Verify runs in constant time with respect to the secret contents.
func (v *StaticPasswordVerifier) Verify(password string) bool {
	if len(v.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.secret, []byte(password)) == 1
}

// BcryptPasswordVerifier compares against a bcrypt hash of the admin secret.
type BcryptPasswordVerifier struct {
	hash []byte
}

// NewBcryptPasswordVerifier builds a verifier for a bcrypt hash.
func NewBcryptPasswordVerifier(hash string) (*BcryptPasswordVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &BcryptPasswordVerifier{hash: []byte(hash)}, nil
}

func (v *BcryptPasswordVerifier) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(password)) == nil
}

// AuthConfig defines token signing parameters.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService signs and validates admin tokens.
type AuthService struct {
	passwords PasswordVerifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(passwords PasswordVerifier, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{
		passwords: passwords,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Issue exchanges the admin password for a signed access token.
func (s *AuthService) Issue(_ context.Context, req models.LoginRequest) (*models.AccessToken, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password is required")
	}
	if s.passwords == nil || !s.passwords.Verify(req.Secret()) {
		s.logger.Warn("admin login rejected")
		return nil, appErrors.ErrInvalidCredentials
	}

	issuedAt := s.now()
	claims := &models.JWTClaims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	s.logger.Info("admin token issued", zap.Time("expires_at", claims.ExpiresAt.Time))
	return &models.AccessToken{
		AccessToken: signed,
		TokenType:   models.TokenTypeBearer,
		ExpiresIn:   int64(s.config.Expiry.Seconds()),
	}, nil
}

// Verify parses a token and returns its claims when it grants admin rights.
func (s *AuthService) Verify(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, "Token expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "Invalid token")
	}
	if !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Invalid token")
	}
	if !claims.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	return claims, nil
}
