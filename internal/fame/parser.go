package fame

import (
	"context"
	"strconv"
	"strings"

	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/service/cache"
	"go.uber.org/zap"
)

const (
	fieldDelimiter = "|"
	requiredFields = 4
)

// DroppedLine describes an input line that did not satisfy the record shape.
type DroppedLine struct {
	Number int // 1-based
	Line   string
	Reason string
}

const (
	ReasonTooFewFields   = "fewer than 4 fields"
	ReasonEmptyCharacter = "empty character"
)

// ParseRecords converts fame scale text into records. Each non-blank line must
// carry character|imageUrl|community|level with a non-empty character, since
// the character name is what groups records; anything after the fourth field
// is rejoined with "|" as the description. Lines with fewer than four fields
// or a blank character are returned in dropped and never fail the parse.
func ParseRecords(text string) (records []*domain.FameRecord, dropped []DroppedLine) {
	records = make([]*domain.FameRecord, 0)

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, fieldDelimiter)
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}

		if len(parts) < requiredFields {
			dropped = append(dropped, DroppedLine{Number: i + 1, Line: line, Reason: ReasonTooFewFields})
			continue
		}
		if parts[0] == "" {
			dropped = append(dropped, DroppedLine{Number: i + 1, Line: line, Reason: ReasonEmptyCharacter})
			continue
		}

		records = append(records, &domain.FameRecord{
			Character:   parts[0],
			ImageURL:    parts[1],
			Community:   strings.ToLower(parts[2]),
			Level:       ParseLevel(parts[3]),
			Description: strings.Join(parts[requiredFields:], fieldDelimiter),
		})
	}

	return records, dropped
}

// ParseLevel reads the leading integer of s: an optional sign followed by
// decimal digits, ignoring anything after them ("7/10" is 7). A value with
// no leading digits, or one that overflows int, is 0.
func ParseLevel(s string) int {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}

	level, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return level
}

// Parser parses fame text and keeps the last good collection in a Store.
type Parser struct {
	store  cache.Store
	logger *zap.Logger
}

func NewParser(store cache.Store, logger *zap.Logger) *Parser {
	return &Parser{
		store:  store,
		logger: logger,
	}
}

// Parse parses text and replaces the cached collection with the result.
// A failed cache write is logged; the parsed records are still returned.
func (p *Parser) Parse(ctx context.Context, text string) []*domain.FameRecord {
	records, dropped := ParseRecords(text)

	for _, d := range dropped {
		p.logger.Debug("Skipping invalid fame line",
			zap.Int("line", d.Number),
			zap.String("reason", d.Reason),
			zap.String("content", d.Line),
		)
	}

	p.logger.Info("Fame data parsed",
		zap.Int("records", len(records)),
		zap.Int("dropped", len(dropped)),
	)

	if err := p.store.Write(ctx, records); err != nil {
		p.logger.Warn("Failed to cache fame data", zap.Error(err))
	}

	return records
}

// LoadCached returns the last cached collection. Absence or a cache error
// yields an empty collection.
func (p *Parser) LoadCached(ctx context.Context) []*domain.FameRecord {
	records, ok, err := p.store.Read(ctx)
	if err != nil {
		p.logger.Warn("Failed to read cached fame data", zap.Error(err))
		return []*domain.FameRecord{}
	}
	if !ok {
		p.logger.Info("No cached fame data available")
		return []*domain.FameRecord{}
	}
	return records
}
