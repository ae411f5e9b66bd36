// Package event はイベントの登録・検索・推薦のドメインロジックを提供する。
package event

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/devent/internal/image"
	"github.com/hitoshi/devent/internal/model"
	"github.com/hitoshi/devent/internal/repository"
	"github.com/hitoshi/devent/internal/security"
)

// maxSlugRetries はslug衝突時のリトライ上限。
const maxSlugRetries = 5

// allowedModes は開催形態の許可値。
var allowedModes = map[string]bool{
	"In-Person": true,
	"Online":    true,
	"Hybrid":    true,
}

// CreateInput はイベント登録の入力を表す。
// 画像はアップロードされたバイト列（ImageData）またはURL指定
// （ImageURL）のどちらか一方で与えられる。
type CreateInput struct {
	Title       string
	Description string
	Overview    string
	Venue       string
	Location    string
	Date        string
	Time        string
	Mode        string
	Audience    string
	Agenda      []string
	Organizer   string
	Tags        []string

	ImageData        []byte
	ImageContentType string
	ImageURL         string
}

// Service はイベントのサービス層。
// 入力検証 → サニタイズ → 画像保存 → slug生成 → 永続化のフローを統括する。
type Service struct {
	eventRepo repository.EventRepository
	sanitizer security.ContentSanitizerService
	fetcher   image.FetcherService
	storage   image.StorageService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	eventRepo repository.EventRepository,
	sanitizer security.ContentSanitizerService,
	fetcher image.FetcherService,
	storage image.StorageService,
) *Service {
	return &Service{
		eventRepo: eventRepo,
		sanitizer: sanitizer,
		fetcher:   fetcher,
		storage:   storage,
	}
}

// Create はイベントを登録し、保存されたイベントを返す。
// フロー: 入力検証 → 画像の保存（アップロードまたはURL取得） →
// HTMLサニタイズ → slug生成（衝突時はリトライ） → 永続化
func (s *Service) Create(ctx context.Context, createdBy string, input *CreateInput) (*model.Event, error) {
	// 1. 入力検証
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	// 2. 画像の保存
	imageURL, err := s.storeImage(ctx, input)
	if err != nil {
		return nil, err
	}

	// 3. ユーザー入力のHTMLをサニタイズしてから保存する
	now := time.Now()
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(input.Title),
		Description: s.sanitizer.Sanitize(input.Description),
		Overview:    s.sanitizer.Sanitize(input.Overview),
		ImageURL:    imageURL,
		Venue:       strings.TrimSpace(input.Venue),
		Location:    strings.TrimSpace(input.Location),
		Date:        input.Date,
		Time:        input.Time,
		Mode:        input.Mode,
		Audience:    strings.TrimSpace(input.Audience),
		Agenda:      normalizeList(input.Agenda),
		Organizer:   strings.TrimSpace(input.Organizer),
		Tags:        normalizeTags(input.Tags),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// 4. slug生成と永続化。衝突したら数値サフィックスを付けてリトライする。
	base := Slugify(event.Title)
	for i := 0; i <= maxSlugRetries; i++ {
		event.Slug = base
		if i > 0 {
			event.Slug = fmt.Sprintf("%s-%d", base, i+1)
		}

		err := s.eventRepo.Create(ctx, event)
		if err == nil {
			slog.Info("イベントを登録しました",
				slog.String("event_id", event.ID),
				slog.String("slug", event.Slug),
				slog.String("created_by", createdBy),
			)
			return event, nil
		}
		if !repository.IsDuplicateSlug(err) {
			return nil, fmt.Errorf("イベントの保存に失敗しました: %w", err)
		}
	}

	return nil, fmt.Errorf("イベントslugの採番に失敗しました: %s", base)
}

// storeImage は入力の画像をオブジェクトストレージに保存し、公開URLを返す。
func (s *Service) storeImage(ctx context.Context, input *CreateInput) (string, error) {
	switch {
	case len(input.ImageData) > 0:
		url, err := s.storage.Store(ctx, bytes.NewReader(input.ImageData), int64(len(input.ImageData)), input.ImageContentType)
		if err != nil {
			return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
		}
		return url, nil

	case input.ImageURL != "":
		data, contentType, err := s.fetcher.Fetch(ctx, input.ImageURL)
		if err != nil {
			return "", model.NewValidationError(fmt.Sprintf("画像URLから取得できません: %v", err))
		}
		url, err := s.storage.Store(ctx, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
		}
		return url, nil

	default:
		return "", model.NewImageRequiredError()
	}
}

// GetBySlug はslugでイベントを取得する。
// 見つからない場合はEVENT_NOT_FOUNDのAPIErrorを返す。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	event, err := s.eventRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("イベントの検索に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(slug)
	}
	return event, nil
}

// List は公開イベントの一覧を返す。
// queryはタイトル・説明・開催地の部分一致、tagはタグの完全一致で絞り込む。
func (s *Service) List(ctx context.Context, query, tag string) ([]*model.Event, error) {
	events, err := s.eventRepo.List(ctx, strings.TrimSpace(query), strings.TrimSpace(tag))
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// ListSimilar はslugで指定されたイベントとタグを共有するイベントを返す。
// 基準となるイベント自身は結果に含まれない。
func (s *Service) ListSimilar(ctx context.Context, slug string) ([]*model.Event, error) {
	base, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListSimilar(ctx, base.ID, base.Tags)
	if err != nil {
		return nil, fmt.Errorf("類似イベントの取得に失敗しました: %w", err)
	}
	return events, nil
}

// MyEvents はユーザーが作成したイベントの一覧ビューを返す。
func (s *Service) MyEvents(ctx context.Context, userID string) ([]*model.EventCard, error) {
	events, err := s.eventRepo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("マイイベントの取得に失敗しました: %w", err)
	}

	cards := make([]*model.EventCard, 0, len(events))
	for _, e := range events {
		cards = append(cards, e.Card())
	}
	return cards, nil
}

// validateCreateInput はイベント登録入力の必須項目と形式を検証する。
func validateCreateInput(input *CreateInput) error {
	required := []struct {
		name  string
		value string
	}{
		{"title", input.Title},
		{"description", input.Description},
		{"overview", input.Overview},
		{"venue", input.Venue},
		{"location", input.Location},
		{"date", input.Date},
		{"time", input.Time},
		{"mode", input.Mode},
		{"audience", input.Audience},
		{"organizer", input.Organizer},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return model.NewValidationError(fmt.Sprintf("%sは必須です", f.name))
		}
	}

	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return model.NewValidationError("dateはYYYY-MM-DD形式で指定してください")
	}
	if _, err := time.Parse("15:04", input.Time); err != nil {
		return model.NewValidationError("timeはHH:MM形式で指定してください")
	}
	if !allowedModes[input.Mode] {
		return model.NewValidationError("modeはIn-Person、Online、Hybridのいずれかを指定してください")
	}
	if len(normalizeTags(input.Tags)) == 0 {
		return model.NewValidationError("tagsを1つ以上指定してください")
	}
	if Slugify(input.Title) == "" {
		return model.NewValidationError("titleからURLスラッグを生成できません")
	}

	return nil
}

// slugPattern はslug生成で除去する文字（英数字とハイフン以外）。
var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify はタイトルからURLスラッグを生成する。
// 小文字化し、英数字以外の連続をハイフン1つに置き換える。
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// normalizeList は空白要素を除いたリストを返す。
func normalizeList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// normalizeTags はタグを小文字に正規化し、重複と空白を除く。
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}
	return result
}
