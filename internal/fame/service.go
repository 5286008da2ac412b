package fame

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/domain"
	"go.uber.org/zap"
)

// Source provides the raw fame scale text.
type Source interface {
	Load(ctx context.Context) (string, error)
}

// CategoryList is one category's records, highest level first.
type CategoryList struct {
	Category *domain.Category     `json:"category"`
	Records  []*domain.FameRecord `json:"records"`
}

// Snapshot is the presentation-ready result of one load cycle.
type Snapshot struct {
	Records    []*domain.FameRecord `json:"records"`
	Categories []*CategoryList      `json:"categories"`
	Characters []*domain.FameRecord `json:"characters"`
	Stale      bool                 `json:"stale"`
	Notice     string               `json:"notice,omitempty"`
	LoadedAt   time.Time            `json:"loadedAt"`
}

// Category returns the list for the named category, or nil.
func (s *Snapshot) Category(name string) *CategoryList {
	if s == nil {
		return nil
	}
	for _, c := range s.Categories {
		if c.Category.Name == name {
			return c
		}
	}
	return nil
}

// Service runs load cycles: fetch, parse and cache, or fall back to the
// cached collection when the fetch fails.
type Service struct {
	source     Source
	parser     *Parser
	categories []*domain.Category
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex // one cycle at a time
}

func NewService(source Source, parser *Parser, categories []*domain.Category, logger *zap.Logger) *Service {
	return &Service{
		source:     source,
		parser:     parser,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

// Refresh runs one load cycle and never fails: the worst case is an empty,
// stale snapshot.
func (s *Service) Refresh(ctx context.Context) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Warn("Fetch failed, using cached fame data", zap.Error(err))
		records := s.parser.LoadCached(ctx)
		return Build(records, s.categories, true, constants.NoticeConfig.FetchFailed, s.now())
	}

	records := s.parser.Parse(ctx, text)
	return Build(records, s.categories, false, "", s.now())
}

// Build derives the category lists and character cards for records.
func Build(records []*domain.FameRecord, categories []*domain.Category, stale bool, notice string, loadedAt time.Time) *Snapshot {
	if records == nil {
		records = []*domain.FameRecord{}
	}

	lists := make([]*CategoryList, 0, len(categories))
	for _, c := range categories {
		lists = append(lists, &CategoryList{
			Category: c,
			Records:  SortByLevelDescending(Classify(records, c.Keywords)),
		})
	}

	return &Snapshot{
		Records:    records,
		Categories: lists,
		Characters: CharacterCards(records),
		Stale:      stale,
		Notice:     notice,
		LoadedAt:   loadedAt,
	}
}
