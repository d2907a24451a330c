package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/utils"
)

// Failure reasons appended to the verification error redirect.
const (
	ReasonTokenInvalid = "token_invalido"
	ReasonTokenExpired = "token_expirado"
	ReasonServerError  = "erro_servidor"
)

var (
	ErrVerificationInvalid = errors.New("verification token invalid")
	ErrVerificationExpired = errors.New("verification token expired")
)

type verificationStore interface {
	FindVerification(ctx context.Context, tokenHash string, kind model.TokenKind) (model.VerificationToken, error)
	ConsumeEmailVerification(ctx context.Context, tokenID, userID string, at time.Time) error
	DeleteVerification(ctx context.Context, id string) error
}

// VerificationService consumes email verification links.
type VerificationService struct {
	tokens verificationStore
	log    *zap.Logger
	now    func() time.Time
}

func NewVerificationService(tokens verificationStore, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{tokens: tokens, log: logger.Named("verification"), now: utcNow}
}

// VerifyEmail marks the token's user verified and deletes the token in one
// transaction.  Only EMAIL_VERIFICATION tokens are looked up, so a token of
// any other kind is reported as invalid.
func (s *VerificationService) VerifyEmail(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrVerificationInvalid
	}
	tok, err := s.tokens.FindVerification(ctx, utils.HashToken(raw), model.TokenEmailVerification)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrVerificationInvalid
		}
		return err
	}
	now := s.now()
	if tok.Expired(now) {
		if err := s.tokens.DeleteVerification(ctx, tok.ID); err != nil {
			s.log.Warn("delete expired verification token failed", zap.String("token_id", tok.ID), zap.Error(err))
		}
		return ErrVerificationExpired
	}
	if err := s.tokens.ConsumeEmailVerification(ctx, tok.ID, tok.UserID, now); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Consumed by a concurrent request.
			return ErrVerificationInvalid
		}
		return err
	}
	s.log.Info("email verified", zap.String("user_id", tok.UserID))
	return nil
}

// FailureReason maps a VerifyEmail error onto the redirect reason.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrVerificationInvalid):
		return ReasonTokenInvalid
	case errors.Is(err, ErrVerificationExpired):
		return ReasonTokenExpired
	default:
		return ReasonServerError
	}
}
