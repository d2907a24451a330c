package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/queue"
	"github.com/iliyamo/agency-portal/internal/utils"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type userStore interface {
	Create(ctx context.Context, u model.User, password string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type sessionTokenStore interface {
	StoreRefresh(ctx context.Context, userID string, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	StoreVerification(ctx context.Context, t model.VerificationToken) error
}

// AuthConfig is the subset of the application config used for sessions.
type AuthConfig struct {
	JWTSecret       string
	AccessTTLMin    int
	RefreshTTLDays  int
	BcryptCost      int
	VerificationTTL time.Duration
	BaseURL         string
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)

// AuthService implements registration, login, token rotation and session
// resolution.
type AuthService struct {
	users  userStore
	tokens sessionTokenStore
	pub    EventPublisher
	cfg    AuthConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users userStore, tokens sessionTokenStore, pub EventPublisher, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, pub: pub, cfg: cfg, log: logger.Named("auth"), now: utcNow}
}

// Register creates a CLIENT account and requests a verification email.
// The account can log in right away; verified-only operations stay closed
// until the link is followed.
func (s *AuthService) Register(ctx context.Context, in validation.RegisterInput) (model.User, error) {
	if err := validation.Validate(&in); err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, model.User{
		Name:             in.Name,
		Email:            in.Email,
		Role:             model.RoleClient,
		MarketingConsent: in.MarketingConsent,
	}, in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}

	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return u, err
	}
	tok := model.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashToken(raw),
		Kind:      model.TokenEmailVerification,
		ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
	}
	if err := s.tokens.StoreVerification(ctx, tok); err != nil {
		// The account exists; the user can ask for a new link later.
		s.log.Error("store verification token failed", zap.String("user_id", u.ID), zap.Error(err))
		return u, nil
	}
	publish(ctx, s.pub, s.log, queue.QueueVerificationRequired, queue.VerificationRequestedEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Link:      s.verificationLink(raw),
		ExpiresAt: tok.ExpiresAt,
	})
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

func (s *AuthService) verificationLink(raw string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/email-verification?token=" + url.QueryEscape(raw)
}

// Login checks the credentials and issues a token pair.  Unknown emails
// and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in validation.LoginInput) (model.User, TokenPair, error) {
	if err := validation.Validate(&in); err != nil {
		return model.User{}, TokenPair{}, err
	}
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			utils.BurnPasswordCheck(in.Password)
			return model.User{}, TokenPair{}, errInvalidCredentials
		}
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return model.User{}, TokenPair{}, errInvalidCredentials
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, fmt.Errorf("%w: account deactivated", apperrors.ErrForbidden)
	}
	if utils.NeedsRehash(u.PasswordHash, s.cfg.BcryptCost) {
		if hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				s.log.Warn("password rehash failed", zap.String("user_id", u.ID), zap.Error(err))
			}
		}
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, in validation.RefreshInput) (model.User, TokenPair, error) {
	if err := validation.Validate(&in); err != nil {
		return model.User{}, TokenPair{}, err
	}
	hash := utils.HashToken(in.RefreshToken)
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return model.User{}, TokenPair{}, fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
		}
		return model.User{}, TokenPair{}, err
	}
	// A concurrent refresh with the same token may have revoked it first.
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return model.User{}, TokenPair{}, fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
		}
		return model.User{}, TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return model.User{}, TokenPair{}, fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
		}
		return model.User{}, TokenPair{}, err
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, fmt.Errorf("%w: account deactivated", apperrors.ErrForbidden)
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *AuthService) issue(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Logout revokes one refresh token when given, otherwise every session of
// the authenticated caller.
func (s *AuthService) Logout(ctx context.Context, sess *auth.Session, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken != "" {
		hash := utils.HashToken(refreshToken)
		if _, err := s.tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
			}
			return err
		}
		if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: invalid refresh token", apperrors.ErrUnauthorized)
			}
			return err
		}
		return nil
	}
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, sess.UserID)
}

// Me returns the caller's user record.
func (s *AuthService) Me(ctx context.Context, sess *auth.Session) (model.User, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, sess.UserID)
}

// Authenticate resolves a bearer access token into a Session.  The user
// row is loaded so that deactivation and role changes apply immediately
// rather than when the token expires.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*auth.Session, error) {
	claims, err := utils.ParseAccessToken(s.cfg.JWTSecret, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: account deactivated", apperrors.ErrUnauthorized)
	}
	return auth.NewSession(u), nil
}
