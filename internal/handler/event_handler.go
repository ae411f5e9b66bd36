package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/devent/internal/event"
	"github.com/hitoshi/devent/internal/middleware"
	"github.com/hitoshi/devent/internal/model"
)

// maxMultipartMemory はマルチパートフォーム解析時にメモリへ展開する上限。
const maxMultipartMemory = 8 << 20 // 8 MiB

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	Create(ctx context.Context, createdBy string, input *event.CreateInput) (*model.Event, error)
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)
	List(ctx context.Context, query, tag string) ([]*model.Event, error)
	ListSimilar(ctx context.Context, slug string) ([]*model.Event, error)
	MyEvents(ctx context.Context, userID string) ([]*model.EventCard, error)
}

// EventMetricsRecorder はイベント系メトリクスの記録インターフェース。
type EventMetricsRecorder interface {
	RecordEventCreated()
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service      EventServiceInterface
	metrics      EventMetricsRecorder
	maxImageSize int64
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, metrics EventMetricsRecorder, maxImageSize int64) *EventHandler {
	return &EventHandler{
		service:      service,
		metrics:      metrics,
		maxImageSize: maxImageSize,
	}
}

// eventResponse はイベント詳細のAPIレスポンス。
type eventResponse struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Overview    string    `json:"overview"`
	ImageURL    string    `json:"image"`
	Venue       string    `json:"venue"`
	Location    string    `json:"location"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Mode        string    `json:"mode"`
	Audience    string    `json:"audience"`
	Agenda      []string  `json:"agenda"`
	Organizer   string    `json:"organizer"`
	Tags        []string  `json:"tags"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// eventListResponse はイベント一覧のAPIレスポンス。
type eventListResponse struct {
	Events []*eventResponse `json:"events"`
}

// Create はイベント登録を処理する。
// 画像はmultipart/form-dataのimageフィールド（ファイル）または
// image_urlフィールド（URL指定）で受け取る。
// POST /api/events（認証必須ルート）
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("multipart/form-data形式でリクエストしてください"))
		return
	}

	input := &event.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Overview:    r.FormValue("overview"),
		Venue:       r.FormValue("venue"),
		Location:    r.FormValue("location"),
		Date:        r.FormValue("date"),
		Time:        r.FormValue("time"),
		Mode:        r.FormValue("mode"),
		Audience:    r.FormValue("audience"),
		Agenda:      formList(r, "agenda"),
		Organizer:   r.FormValue("organizer"),
		Tags:        formList(r, "tags"),
		ImageURL:    r.FormValue("image_url"),
	}

	if err := h.readImageFile(r, input); err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), user.ID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordEventCreated()
	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

// readImageFile はアップロードされた画像ファイルを読み込みinputに設定する。
// ファイルが添付されていない場合は何もしない（URL指定にフォールバック）。
func (h *EventHandler) readImageFile(r *http.Request, input *event.CreateInput) error {
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return nil
	}
	if err != nil {
		return model.NewValidationError("画像ファイルの読み込みに失敗しました")
	}
	defer file.Close()

	if header.Size > h.maxImageSize {
		return model.NewValidationError("画像ファイルが大きすぎます")
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageSize+1))
	if err != nil {
		return model.NewValidationError("画像ファイルの読み込みに失敗しました")
	}
	if int64(len(data)) > h.maxImageSize {
		return model.NewValidationError("画像ファイルが大きすぎます")
	}

	input.ImageData = data
	input.ImageContentType = header.Header.Get("Content-Type")
	return nil
}

// Get はイベント詳細を取得する。
// GET /api/events/{slug}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	found, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(found))
}

// List はイベント一覧を取得する。
// GET /api/events?q={query}&tag={tag}
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	events, err := h.service.List(r.Context(), query, tag)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventListResponse(events))
}

// Similar は指定イベントとタグを共有するイベント一覧を取得する。
// GET /api/events/{slug}/similar
func (h *EventHandler) Similar(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	events, err := h.service.ListSimilar(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventListResponse(events))
}

// MyEvents は認証済みユーザーが作成したイベントの一覧を取得する。
// GET /api/events/my-events（認証必須ルート）
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	cards, err := h.service.MyEvents(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]*model.EventCard{"events": cards})
}

// formList はフォームの同名複数フィールドを読み取る。
// 単一フィールドにカンマ区切りで渡された場合は分割する。
func formList(r *http.Request, key string) []string {
	values := r.Form[key]
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// toEventResponse はEventをAPIレスポンスに変換する。
func toEventResponse(e *model.Event) *eventResponse {
	return &eventResponse{
		ID:          e.ID,
		Slug:        e.Slug,
		Title:       e.Title,
		Description: e.Description,
		Overview:    e.Overview,
		ImageURL:    e.ImageURL,
		Venue:       e.Venue,
		Location:    e.Location,
		Date:        e.Date,
		Time:        e.Time,
		Mode:        e.Mode,
		Audience:    e.Audience,
		Agenda:      e.Agenda,
		Organizer:   e.Organizer,
		Tags:        e.Tags,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// toEventListResponse はイベントのスライスを一覧レスポンスに変換する。
func toEventListResponse(events []*model.Event) *eventListResponse {
	resp := &eventListResponse{Events: make([]*eventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	return resp
}
