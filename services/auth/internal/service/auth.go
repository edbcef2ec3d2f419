package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	pkghash "github.com/Skotchmaster/skincare_shop/pkg/hash"
	jwthelp "github.com/Skotchmaster/skincare_shop/pkg/jwt"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/pkg/tokens"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/auth/internal/transport"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("user already exist")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNotFound            = errors.New("user not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Events        events.Publisher
	Now           func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) CreateAccessToken(role, id string, accessExp time.Time) (string, error) {
	return tokens.SignAccess(id, role, accessExp, s.JWTSecret)
}

// CreateRefreshToken returns the signed token and its jti.
func (s *AuthService) CreateRefreshToken(role, id string, refreshExp time.Time) (string, string, error) {
	jti := jwthelp.NewJTI()
	tok, err := tokens.SignRefresh(id, role, jti, refreshExp, s.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return tok, jti, nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	pwHash, err := pkghash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: pwHash,
		Role:         models.RoleClient,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("%w: %s", ErrConflict, req.Email)
		}
		l.Error("register_error", "status", 500, "reason", "db error", "error", err)
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUser, user.ID.String(), events.Event{
		"type":    "user_registered",
		"user_id": user.ID.String(),
		"email":   user.Email,
		"name":    user.Name,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}
	if !pkghash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	res, next, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, next); err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot store refresh token", "error", err)
		return nil, err
	}
	return res, nil
}

// Refresh rotates refreshToken: the presented token is revoked and a new pair is issued.
// Replaying an already rotated token revokes every live token of its owner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*transport.LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidRefreshToken)
	}

	stored, err := s.Repo.FindRefreshByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			return nil, fmt.Errorf("%w: unknown token", ErrInvalidRefreshToken)
		}
		return nil, err
	}
	if stored.Token != jwthelp.Sha256Hex(refreshToken) || stored.UserID != userID {
		return nil, fmt.Errorf("%w: token mismatch", ErrInvalidRefreshToken)
	}
	if stored.Revoked {
		n, rErr := s.Repo.RevokeAllForUser(ctx, userID)
		l.Warn("refresh_token_reuse", "user_id", userID, "revoked", n, "error", rErr)
		return nil, fmt.Errorf("%w: token reused", ErrInvalidRefreshToken)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user gone", ErrInvalidRefreshToken)
		}
		return nil, err
	}

	res, next, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, next, s.now()); err != nil {
		if errors.Is(err, repo.ErrTokenRevoked) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
		}
		l.Error("refresh_error", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

// LogOut revokes refreshToken. Unknown or empty tokens are not an error.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeByHash(ctx, jwthelp.Sha256Hex(refreshToken))
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*transport.LoginResult, *models.RefreshToken, error) {
	now := s.now()
	accessExp := now.Add(tokens.AccessTTL)
	refreshExp := now.Add(tokens.RefreshTTL)

	access, err := s.CreateAccessToken(user.Role, user.ID.String(), accessExp)
	if err != nil {
		return nil, nil, err
	}
	refresh, jti, err := s.CreateRefreshToken(user.Role, user.ID.String(), refreshExp)
	if err != nil {
		return nil, nil, err
	}

	stored := &models.RefreshToken{
		Token:     jwthelp.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &transport.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == models.RoleAdmin,
	}, stored, nil
}

// PromoteAdmin grants the admin role to an already registered user.
func (s *AuthService) PromoteAdmin(ctx context.Context, email string) error {
	ok, err := s.Repo.SetRole(ctx, email, models.RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	return nil
}
