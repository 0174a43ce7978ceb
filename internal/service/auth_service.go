package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type authRoleRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Role, error)
}

// AuthConfig describes how session tokens from the identity provider are verified.
type AuthConfig struct {
	Secret string
	Issuer string
}

// AuthService verifies session tokens and resolves the request principal.
type AuthService struct {
	users  authUserRepository
	roles  authRoleRepository
	logger *zap.Logger
	config AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, roles authRoleRepository, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, roles: roles, logger: logger, config: config}
}

// ValidateToken parses an HS256 session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ResolvePrincipal loads the caller and the union of its role capabilities. A
// subject seen for the first time is provisioned from the token claims.
func (s *AuthService) ResolvePrincipal(ctx context.Context, claims *models.JWTClaims) (*models.Principal, error) {
	if claims == nil || claims.Subject == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		user, err = s.provision(ctx, claims)
	}
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	roles, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load user roles")
	}
	return models.NewPrincipal(user, roles), nil
}

func (s *AuthService) provision(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	if claims.Email == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no email for an unknown user")
	}
	user := &models.User{
		ID:        claims.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to provision user")
	}
	s.logger.Info("provisioned user from session", zap.String("user_id", user.ID))
	return user, nil
}
