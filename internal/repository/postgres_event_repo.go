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

// eventColumns はイベント取得クエリで共通して使用するSELECT句。
const eventColumns = `id, slug, title, description, overview, image_url, venue,
	location, event_date, event_time, mode, audience, agenda, organizer, tags,
	created_by, created_at, updated_at`

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
// 接続は呼び出しごとにGateから借り受け、自前でキャッシュしない。
type PostgresEventRepo struct {
	gate *database.Gate
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(gate *database.Gate) *PostgresEventRepo {
	return &PostgresEventRepo{gate: gate}
}

// acquire は共有接続を取得する。接続確立に失敗した場合は
// APIError(STORE_UNAVAILABLE)に変換して返す。
func (r *PostgresEventRepo) acquire(ctx context.Context) (*sql.DB, error) {
	db, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.NewStoreUnavailableError(), err)
	}
	return db, nil
}

// Create はイベントを作成する。
// slugの一意性はUNIQUE制約が最終的に保証し、制約違反は
// ErrDuplicateSlugに変換される。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	db, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO events (id, slug, title, description, overview, image_url,
		   venue, location, event_date, event_time, mode, audience, agenda,
		   organizer, tags, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		event.ID, event.Slug, event.Title, event.Description, event.Overview,
		event.ImageURL, event.Venue, event.Location, event.Date, event.Time,
		event.Mode, event.Audience, pq.Array(event.Agenda), event.Organizer,
		pq.Array(event.Tags), event.CreatedBy, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, event.Slug)
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// FindBySlug は指定slugのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1`,
		slug,
	)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event by slug: %w", err)
	}

	return event, nil
}

// List はイベント一覧を作成日時の降順で返す。
// queryはタイトル・説明・開催地のILIKE部分一致、tagはタグの完全一致で絞り込む。
func (r *PostgresEventRepo) List(ctx context.Context, query, tag string) ([]*model.Event, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	sqlQuery := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}

	if query != "" {
		args = append(args, "%"+query+"%")
		n := fmt.Sprintf("$%d", len(args))
		sqlQuery += ` AND (title ILIKE ` + n + ` OR description ILIKE ` + n + ` OR location ILIKE ` + n + `)`
	}
	if tag != "" {
		args = append(args, tag)
		sqlQuery += fmt.Sprintf(` AND $%d = ANY(tags)`, len(args))
	}

	sqlQuery += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByCreator は指定ユーザーが作成したイベントを作成日時の降順で返す。
func (r *PostgresEventRepo) ListByCreator(ctx context.Context, userID string) ([]*model.Event, error) {
	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE created_by = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events by creator: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListSimilar は指定タグのいずれかを含むイベントを返す。
// excludeIDのイベント自身は結果から除外する。
func (r *PostgresEventRepo) ListSimilar(ctx context.Context, excludeID string, tags []string) ([]*model.Event, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	db, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE id <> $1 AND tags && $2
		 ORDER BY created_at DESC`,
		excludeID, pq.Array(tags),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list similar events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// rowScanner はsql.Rowとsql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent は1行をmodel.Eventに読み込む。
func scanEvent(row rowScanner) (*model.Event, error) {
	event := &model.Event{}
	err := row.Scan(
		&event.ID, &event.Slug, &event.Title, &event.Description,
		&event.Overview, &event.ImageURL, &event.Venue, &event.Location,
		&event.Date, &event.Time, &event.Mode, &event.Audience,
		pq.Array(&event.Agenda), &event.Organizer, pq.Array(&event.Tags),
		&event.CreatedBy, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// scanEvents は結果セット全体をmodel.Eventのスライスに読み込む。
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
