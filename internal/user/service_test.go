package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/devent/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmailWithHash(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return false, nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// --- テスト ---

// TestWithdraw は退会処理でユーザーが削除されることを検証する。
func TestWithdraw(t *testing.T) {
	deleted := ""
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@x.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	s := NewService(repo)

	if err := s.Withdraw(context.Background(), "user-123"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if deleted != "user-123" {
		t.Errorf("deleted = %q, want user-123", deleted)
	}
}

// TestWithdraw_UserNotFound は存在しないユーザーの退会が
// UNAUTHENTICATEDで拒否されることを検証する。
func TestWithdraw_UserNotFound(t *testing.T) {
	s := NewService(&mockUserRepo{})

	err := s.Withdraw(context.Background(), "gone-user")
	apiErr, ok := model.AsAPIError(err)
	if !ok || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Errorf("Withdraw = %v, want UNAUTHENTICATED", err)
	}
}

// TestWithdraw_DeleteFailure は削除失敗がエラーとして伝播することを検証する。
func TestWithdraw_DeleteFailure(t *testing.T) {
	deleteErr := errors.New("store failure")
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			return deleteErr
		},
	}
	s := NewService(repo)

	if err := s.Withdraw(context.Background(), "user-123"); !errors.Is(err, deleteErr) {
		t.Errorf("Withdraw = %v, want wrapped delete error", err)
	}
}
