package auth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/devent/internal/model"
	"github.com/hitoshi/devent/internal/repository"
)

// emailPattern はメールアドレスの形状検証パターン。
// 厳密なRFC準拠ではなく、明らかな入力ミスを弾くための簡易チェック。
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 6

// Service は認証情報の発行に関するビジネスロジックを提供する。
// サインアップとログインの両方でセッショントークンを発行する。
type Service struct {
	userRepo repository.UserRepository
	hasher   *PasswordHasher
	codec    *TokenCodec
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher *PasswordHasher, codec *TokenCodec) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		codec:    codec,
	}
}

// NormalizeEmail はメールアドレスを正規化する（前後空白の除去と小文字化）。
// 正規化後のアドレスが一意性判定とログインキーに使用される。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup は新規ユーザーを登録し、セッショントークンを発行する。
//
// メールアドレスは正規化後に形状検証される。重複の事前チェックは
// UX向上のための高速経路であり、同時サインアップの競合はストアの
// UNIQUE制約がAPIError(EMAIL_CONFLICT)として検知する。
func (s *Service) Signup(ctx context.Context, email, password, name string) (*model.AuthUser, string, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateSignupInput(email, password, name); err != nil {
		return nil, "", err
	}

	// 重複の事前チェック（高速経路）
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, "", model.NewEmailConflictError()
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user.PublicView(), token, nil
}

// Login は認証情報を検証し、セッショントークンを発行する。
//
// メールアドレス未登録とパスワード不一致は意図的に同一の
// APIError(INVALID_CREDENTIALS)に合流させ、ユーザー列挙攻撃を防ぐ。
func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthUser, string, error) {
	email = NormalizeEmail(email)

	if email == "" || password == "" {
		return nil, "", model.NewValidationError("メールアドレスとパスワードは必須です")
	}

	user, err := s.userRepo.FindByEmailWithHash(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.codec.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return user.PublicView(), token, nil
}

// validateSignupInput はサインアップの必須項目と形式を検証する。
func validateSignupInput(email, password, name string) error {
	if email == "" || password == "" || name == "" {
		return model.NewValidationError("メールアドレス、パスワード、名前は必須です")
	}
	if !emailPattern.MatchString(email) {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if len(password) < minPasswordLength {
		return model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength))
	}
	return nil
}
