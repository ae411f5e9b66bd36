package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/devent/internal/database"
	"github.com/hitoshi/devent/internal/model"
)

// uniqueViolation はPostgreSQLの一意性制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
// 接続は呼び出しごとにGateから借り受け、自前でキャッシュしない。
type PostgresUserRepo struct {
	gate *database.Gate
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(gate *database.Gate) *PostgresUserRepo {
	return &PostgresUserRepo{gate: gate}
}

// acquire は共有接続を取得する。接続確立に失敗した場合は
// APIError(STORE_UNAVAILABLE)に変換して返す。
func (r *PostgresUserRepo) acquire(ctx context.Context) (*sql.DB, error) {
	db, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.NewStoreUnavailableError(), err)
	}
	return db, nil
}

// Create はユーザーを作成する。
// メールアドレスの一意性はUNIQUE制約が最終的に保証し、
// 制約違反はAPIError(EMAIL_CONFLICT)に変換される。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	db, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return model.NewEmailConflictError()
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// パスワードハッシュはSELECT対象に含まれない。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByEmailWithHash は正規化済みメールアドレスでユーザーを検索する。
// パスワードハッシュを含む唯一の読み取り経路。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmailWithHash(ctx context.Context, email string) (*model.User, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	user := &model.User{}
	err = db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// ExistsByEmail は正規化済みメールアドレスのユーザーが存在するかを返す。
func (r *PostgresUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するeventsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	db, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
