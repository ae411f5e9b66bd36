package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hitoshi/devent/internal/model"
)

func newTestEvent(slug, createdBy string) *model.Event {
	return &model.Event{
		ID:          uuid.New().String(),
		Slug:        slug,
		Title:       "Go Conference Tokyo",
		Description: "<p>年次カンファレンス</p>",
		Overview:    "<p>Goコミュニティの集い</p>",
		ImageURL:    "https://images.example.com/events/go-conf.png",
		Venue:       "Tokyo International Forum",
		Location:    "Tokyo, Japan",
		Date:        "2026-10-01",
		Time:        "10:00",
		Mode:        "In-Person",
		Audience:    "Developers",
		Agenda:      []string{"Opening", "Keynote", "Workshops"},
		Organizer:   "Go Community JP",
		Tags:        []string{"go", "backend"},
		CreatedBy:   createdBy,
	}
}

// createTestCreator はイベントのcreated_by外部キーを満たすユーザーを登録する。
func createTestCreator(t *testing.T, repo *PostgresUserRepo, email string) *model.User {
	t.Helper()
	user := newTestUser(email)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create event owner: %v", err)
	}
	return user
}

// TestPostgresEventRepo_CreateAndFind は登録したイベントをslugで
// 全フィールド込みで取得できることを検証する。
func TestPostgresEventRepo_CreateAndFind(t *testing.T) {
	gate := setupTestGate(t)
	repo := NewPostgresEventRepo(gate)
	ctx := context.Background()

	owner := createTestCreator(t, NewPostgresUserRepo(gate), "owner@example.com")
	event := newTestEvent("go-conference-tokyo", owner.ID)
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	found, err := repo.FindBySlug(ctx, "go-conference-tokyo")
	if err != nil {
		t.Fatalf("FindBySlug returned error: %v", err)
	}
	if found == nil {
		t.Fatal("FindBySlug returned nil for an existing event")
	}
	if found.Title != event.Title || found.Venue != event.Venue || found.Mode != event.Mode {
		t.Errorf("found = %+v, want title %q, venue %q, mode %q", found, event.Title, event.Venue, event.Mode)
	}
	if len(found.Agenda) != 3 || found.Agenda[1] != "Keynote" {
		t.Errorf("Agenda = %v, want the 3 stored entries", found.Agenda)
	}
	if len(found.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 stored tags", found.Tags)
	}
	if found.CreatedBy != owner.ID {
		t.Errorf("CreatedBy = %q, want %q", found.CreatedBy, owner.ID)
	}
}

// TestPostgresEventRepo_FindBySlug_NotFound は未登録slugでnilが返ることを検証する。
func TestPostgresEventRepo_FindBySlug_NotFound(t *testing.T) {
	repo := NewPostgresEventRepo(setupTestGate(t))

	found, err := repo.FindBySlug(context.Background(), "no-such-event")
	if err != nil {
		t.Fatalf("FindBySlug returned error: %v", err)
	}
	if found != nil {
		t.Errorf("found = %+v, want nil", found)
	}
}

// TestPostgresEventRepo_Create_DuplicateSlug はslug重複が
// ErrDuplicateSlugに変換されることを検証する。
func TestPostgresEventRepo_Create_DuplicateSlug(t *testing.T) {
	gate := setupTestGate(t)
	repo := NewPostgresEventRepo(gate)
	ctx := context.Background()

	owner := createTestCreator(t, NewPostgresUserRepo(gate), "owner@example.com")
	if err := repo.Create(ctx, newTestEvent("dup-slug", owner.ID)); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}

	err := repo.Create(ctx, newTestEvent("dup-slug", owner.ID))
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("second Create = %v, want ErrDuplicateSlug", err)
	}
}

// TestPostgresEventRepo_List は検索語・タグによる絞り込みと
// 作成日時の降順を検証する。
func TestPostgresEventRepo_List(t *testing.T) {
	gate := setupTestGate(t)
	repo := NewPostgresEventRepo(gate)
	ctx := context.Background()

	owner := createTestCreator(t, NewPostgresUserRepo(gate), "owner@example.com")

	goConf := newTestEvent("go-conf", owner.ID)
	rustMeetup := newTestEvent("rust-meetup", owner.ID)
	rustMeetup.Title = "Rust Meetup Osaka"
	rustMeetup.Tags = []string{"rust"}
	rustMeetup.Location = "Osaka, Japan"

	for _, e := range []*model.Event{goConf, rustMeetup} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	t.Run("全件", func(t *testing.T) {
		events, err := repo.List(ctx, "", "")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("len(events) = %d, want 2", len(events))
		}
	})

	t.Run("タイトルの部分一致（大文字小文字無視）", func(t *testing.T) {
		events, err := repo.List(ctx, "rust", "")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(events) != 1 || events[0].Slug != "rust-meetup" {
			t.Errorf("events = %+v, want only rust-meetup", events)
		}
	})

	t.Run("開催地の部分一致", func(t *testing.T) {
		events, err := repo.List(ctx, "osaka", "")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(events) != 1 || events[0].Slug != "rust-meetup" {
			t.Errorf("events = %+v, want only rust-meetup", events)
		}
	})

	t.Run("タグによる絞り込み", func(t *testing.T) {
		events, err := repo.List(ctx, "", "go")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(events) != 1 || events[0].Slug != "go-conf" {
			t.Errorf("events = %+v, want only go-conf", events)
		}
	})

	t.Run("該当なし", func(t *testing.T) {
		events, err := repo.List(ctx, "nonexistent-keyword", "")
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("events = %+v, want empty", events)
		}
	})
}

// TestPostgresEventRepo_ListByCreator は自分が作成したイベントだけが
// 返ることを検証する。
func TestPostgresEventRepo_ListByCreator(t *testing.T) {
	gate := setupTestGate(t)
	repo := NewPostgresEventRepo(gate)
	userRepo := NewPostgresUserRepo(gate)
	ctx := context.Background()

	alice := createTestCreator(t, userRepo, "alice@example.com")
	bob := createTestCreator(t, userRepo, "bob@example.com")

	if err := repo.Create(ctx, newTestEvent("alice-event", alice.ID)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(ctx, newTestEvent("bob-event", bob.ID)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	events, err := repo.ListByCreator(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListByCreator returned error: %v", err)
	}
	if len(events) != 1 || events[0].Slug != "alice-event" {
		t.Errorf("events = %+v, want only alice-event", events)
	}
}

// TestPostgresEventRepo_ListSimilar はタグを共有するイベントだけが、
// 自分自身を除いて返ることを検証する。
func TestPostgresEventRepo_ListSimilar(t *testing.T) {
	gate := setupTestGate(t)
	repo := NewPostgresEventRepo(gate)
	ctx := context.Background()

	owner := createTestCreator(t, NewPostgresUserRepo(gate), "owner@example.com")

	base := newTestEvent("base-event", owner.ID)       // tags: go, backend
	related := newTestEvent("related-event", owner.ID) // go を共有
	related.Tags = []string{"go", "cloud"}
	unrelated := newTestEvent("unrelated-event", owner.ID) // 共有タグなし
	unrelated.Tags = []string{"design"}

	for _, e := range []*model.Event{base, related, unrelated} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	t.Run("共有タグあり", func(t *testing.T) {
		events, err := repo.ListSimilar(ctx, base.ID, base.Tags)
		if err != nil {
			t.Fatalf("ListSimilar returned error: %v", err)
		}
		if len(events) != 1 || events[0].Slug != "related-event" {
			t.Errorf("events = %+v, want only related-event", events)
		}
	})

	t.Run("タグ未設定のイベント", func(t *testing.T) {
		events, err := repo.ListSimilar(ctx, base.ID, nil)
		if err != nil {
			t.Fatalf("ListSimilar returned error: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("events = %+v, want empty for an event with no tags", events)
		}
	})
}
