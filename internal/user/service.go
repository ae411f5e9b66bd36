// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/devent/internal/model"
	"github.com/hitoshi/devent/internal/repository"
)

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// ユーザー本体を削除すると、作成したイベントはストアのCASCADE制約で
// 連鎖的に削除される。発行済みのセッショントークンは失効しないが、
// 認証ゲートウェイがユーザー本体の不在を検知して匿名として扱う。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewUnauthenticatedError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
