// Package auth はパスワード認証、セッション発行、現在ユーザーの解決を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/finwise/internal/metrics"
	"github.com/hitoshi/finwise/internal/model"
	"github.com/hitoshi/finwise/internal/repository"
)

// TextSanitizer は表示用テキストからHTMLを除去する。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は認証イベントの結果を記録する。
type MetricsRecorder interface {
	RecordLogin(result string)
	RecordRegistration(result string)
	RecordLogout(result string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // パスワードハッシュのコスト
}

// AuthResult はログイン・登録成功時の結果。
type AuthResult struct {
	User    *model.User
	Session *model.Session
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	authenticator Authenticator
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	sanitizer     TextSanitizer
	metrics       MetricsRecorder
	config        ServiceConfig
}

// NewService はServiceを生成する。sanitizer と metrics は nil でもよい。
func NewService(
	authenticator Authenticator,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sanitizer TextSanitizer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		authenticator: authenticator,
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		sanitizer:     sanitizer,
		metrics:       metrics,
		config:        config,
	}
}

// ResolveIdentity はリクエストの認証状態から現在ユーザーを解決する。
// どの失敗も未認証の結果に変換し、エラーは返さない。
func (s *Service) ResolveIdentity(ctx context.Context, authn *model.Authentication) model.IdentityResult {
	if !authn.IsAuthenticated() {
		return model.Unauthenticated()
	}

	identifier := authn.Principal.Identifier()
	if identifier == "" || identifier == model.AnonymousIdentifier {
		return model.Unauthenticated()
	}

	user, err := s.userRepo.FindByEmail(ctx, model.NormalizeEmail(identifier))
	if err != nil {
		slog.Warn("current user lookup failed",
			slog.String("error", err.Error()),
		)
		return model.Unauthenticated()
	}
	if user == nil {
		return model.Unauthenticated()
	}

	return model.Authenticated(model.NewUserIdentity(user))
}

// Register はユーザーを登録し、そのままログイン済みのセッションを発行する。
// previousSessionID はリクエストが持っていたセッションで、新しいセッションの発行前に破棄する。
func (s *Service) Register(ctx context.Context, reg model.Registration, previousSessionID string) (*AuthResult, error) {
	reg = reg.Normalize()
	if err := ValidateRegistration(reg); err != nil {
		s.recordRegistration(metrics.ResultInvalid)
		return nil, err
	}

	// 事前の重複チェック。同時登録の最終判定は作成時の一意制約で行う
	exists, err := s.userRepo.ExistsByEmail(ctx, reg.Email)
	if err != nil {
		s.recordRegistration(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		s.recordRegistration(metrics.ResultConflict)
		return nil, model.NewEmailExistsError()
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, reg.Username)
	if err != nil {
		s.recordRegistration(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		s.recordRegistration(metrics.ResultConflict)
		return nil, model.NewUsernameTakenError()
	}

	hash, err := HashPassword(reg.Password, s.config.BcryptCost)
	if err != nil {
		s.recordRegistration(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	role := model.DefaultRole
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		FirstName:    model.StringPtr(s.sanitize(reg.FirstName)),
		LastName:     model.StringPtr(s.sanitize(reg.LastName)),
		ImageURL:     model.StringPtr(reg.ImageURL),
		Role:         &role,
		IsNewUser:    true,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.recordRegistration(metrics.ResultConflict)
			return nil, apiErr
		}
		s.recordRegistration(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	// 登録した資格情報で改めて認証し、ログイン済みにする
	authn, err := s.authenticator.Authenticate(ctx, reg.Email, reg.Password)
	if err != nil {
		s.recordRegistration(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to authenticate registered user: %w", err)
	}

	session, err := s.openSession(ctx, authn, previousSessionID)
	if err != nil {
		s.recordRegistration(metrics.ResultFailure)
		return nil, err
	}

	s.recordRegistration(metrics.ResultSuccess)
	return &AuthResult{User: user, Session: session}, nil
}

// Login はメールアドレスとパスワードで認証し、新しいセッションを発行する。
// 認証失敗の理由は区別せず INVALID_CREDENTIALS を返す。
func (s *Service) Login(ctx context.Context, email, password, previousSessionID string) (*AuthResult, error) {
	authn, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		slog.Info("login rejected",
			slog.String("reason", err.Error()),
		)
		s.recordLogin(metrics.ResultFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.openSession(ctx, authn, previousSessionID)
	if err != nil {
		s.recordLogin(metrics.ResultFailure)
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, authn.Principal.Identifier())
	if err != nil || user == nil {
		// 認証できたのに本人を確認できない状態でログイン済みと扱わない
		if delErr := s.sessionRepo.DeleteByID(ctx, session.ID); delErr != nil {
			slog.Error("failed to discard session after inconsistent login",
				slog.String("error", delErr.Error()),
			)
		}
		attrs := []any{slog.String("email", authn.Principal.Identifier())}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		slog.Error("user not found after authentication", attrs...)
		s.recordLogin(metrics.ResultInconsistent)
		return nil, model.NewIdentityInconsistentError()
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)
	s.recordLogin(metrics.ResultSuccess)
	return &AuthResult{User: user, Session: session}, nil
}

// Logout は指定されたセッションを全て破棄する。
// 空のIDと重複は無視し、セッションが存在しなくても成功とする。
func (s *Service) Logout(ctx context.Context, sessionIDs ...string) error {
	seen := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if err := s.sessionRepo.DeleteByID(ctx, id); err != nil {
			s.recordLogout(metrics.ResultFailure)
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	if len(seen) == 0 {
		s.recordLogout(metrics.ResultNoSession)
		return nil
	}

	slog.Info("user logged out", slog.Int("sessions", len(seen)))
	s.recordLogout(metrics.ResultSuccess)
	return nil
}

// openSession は以前のセッションを破棄したうえで新しいセッションを作成し永続化する。
func (s *Service) openSession(ctx context.Context, authn *model.Authentication, previousSessionID string) (*model.Session, error) {
	if previousSessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, previousSessionID); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    authn.UserID,
		Email:     authn.Principal.Identifier(),
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) sanitize(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.Sanitize(raw)
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(result)
	}
}

func (s *Service) recordRegistration(result string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(result)
	}
}

func (s *Service) recordLogout(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogout(result)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
