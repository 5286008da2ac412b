package adapter

import (
	"time"

	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/fame"
)

// RecordView is a FameRecord with its presentation fields resolved.
type RecordView struct {
	Character   string `json:"character"`
	Image       string `json:"image"`
	Community   string `json:"community"`
	Level       int    `json:"level"`
	Percent     int    `json:"percent"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type CategoryView struct {
	Name    string        `json:"name"`
	Title   string        `json:"title"`
	Records []*RecordView `json:"records"`
}

// SnapshotView is the JSON shape served to front ends.
type SnapshotView struct {
	Categories []*CategoryView `json:"categories"`
	Characters []*RecordView   `json:"characters"`
	Stale      bool            `json:"stale"`
	Notice     string          `json:"notice,omitempty"`
	NoticeTTL  int64           `json:"noticeTtlMs,omitempty"`
	LoadedAt   time.Time       `json:"loadedAt"`
}

func NewRecordView(r *domain.FameRecord, imageSize int) *RecordView {
	clamped := r.ClampedLevel()
	return &RecordView{
		Character:   r.Character,
		Image:       ImageOrPlaceholder(r, imageSize),
		Community:   r.Community,
		Level:       r.Level,
		Percent:     clamped * 10,
		Color:       FameColor(r.Level),
		Description: r.Description,
	}
}

func NewRecordViews(records []*domain.FameRecord, imageSize int) []*RecordView {
	views := make([]*RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, NewRecordView(r, imageSize))
	}
	return views
}

func NewSnapshotView(snap *fame.Snapshot) *SnapshotView {
	view := &SnapshotView{
		Categories: make([]*CategoryView, 0, len(snap.Categories)),
		Characters: NewRecordViews(snap.Characters, constants.PlaceholderConfig.CardSize),
		Stale:      snap.Stale,
		Notice:     snap.Notice,
		LoadedAt:   snap.LoadedAt,
	}
	if snap.Notice != "" {
		view.NoticeTTL = constants.NoticeConfig.Duration.Milliseconds()
	}
	for _, list := range snap.Categories {
		view.Categories = append(view.Categories, &CategoryView{
			Name:    list.Category.Name,
			Title:   list.Category.Title,
			Records: NewRecordViews(list.Records, constants.PlaceholderConfig.ListSize),
		})
	}
	return view
}
