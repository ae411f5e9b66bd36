// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/devent/internal/model"
)

// ErrDuplicateSlug はイベントslugの一意性制約違反を表す。
// サービス層はこのエラーを検知してサフィックス付きslugで再試行する。
var ErrDuplicateSlug = errors.New("duplicate event slug")

// IsDuplicateSlug はerrがslugの一意性制約違反かを判定する。
func IsDuplicateSlug(err error) bool {
	return errors.Is(err, ErrDuplicateSlug)
}

// UserRepository はユーザーデータの永続化インターフェース。
// 認証情報ストアの境界であり、パスワードハッシュの読み取りは
// FindByEmailWithHashのみに限定される。
type UserRepository interface {
	// Create はユーザーを作成する。userにはハッシュ化済みパスワードを設定すること。
	// メールアドレスが既存ユーザーと衝突する場合はAPIError(EMAIL_CONFLICT)を返す。
	// 一意性の最終的な保証はストアのUNIQUE制約であり、このメソッドが
	// 制約違反を検知してエラーに変換する。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// 返り値のPasswordHashは常に空文字列（SELECT対象に含めない契約）。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmailWithHash は正規化済みメールアドレスでユーザーを検索する。
	// パスワードハッシュを含む唯一の読み取り経路であり、ログインフロー
	// 専用。見つからない場合はnilを返す。
	FindByEmailWithHash(ctx context.Context, email string) (*model.User, error)

	// ExistsByEmail は正規化済みメールアドレスのユーザーが存在するかを返す。
	// サインアップ時の重複事前チェック用。最終的な一意性保証は
	// ストアのUNIQUE制約であり、このチェックはUX向上のための高速経路。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するeventsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// Create はイベントを作成する。slugが既存イベントと衝突する場合は
	// ErrDuplicateSlugを返す。
	Create(ctx context.Context, event *model.Event) error

	// FindBySlug は指定slugのイベントを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)

	// List はイベント一覧を作成日時の降順で返す。
	// queryが非空の場合はタイトル・説明・開催地の部分一致で絞り込み、
	// tagが非空の場合は指定タグを含むイベントのみを返す。
	List(ctx context.Context, query, tag string) ([]*model.Event, error)

	// ListByCreator は指定ユーザーが作成したイベントを作成日時の降順で返す。
	ListByCreator(ctx context.Context, userID string) ([]*model.Event, error)

	// ListSimilar は指定タグのいずれかを含むイベントを返す。
	// excludeIDのイベント自身は結果から除外する。
	ListSimilar(ctx context.Context, excludeID string, tags []string) ([]*model.Event, error)
}
