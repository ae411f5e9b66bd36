// Package model はドメインモデルを定義する。
package model

import "time"

// Event は公開イベントを表す。
// DescriptionとOverviewは保存前にサニタイズ済みのHTMLを保持する。
type Event struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Overview    string
	ImageURL    string
	Venue       string
	Location    string
	Date        string // "2006-01-02" 形式
	Time        string // "15:04" 形式
	Mode        string // "In-Person" / "Online" / "Hybrid" 等
	Audience    string
	Agenda      []string
	Organizer   string
	Tags        []string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventCard はイベント一覧用の軽量ビューを表す。
// マイイベント画面はこのビューのみを必要とする。
type EventCard struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image"`
	Location  string    `json:"location"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"createdAt"`
}

// Card はEventから一覧用の軽量ビューを返す。
func (e *Event) Card() *EventCard {
	return &EventCard{
		ID:        e.ID,
		Slug:      e.Slug,
		Title:     e.Title,
		ImageURL:  e.ImageURL,
		Location:  e.Location,
		Date:      e.Date,
		Time:      e.Time,
		CreatedAt: e.CreatedAt,
	}
}
