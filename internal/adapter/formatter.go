package adapter

import (
	"embed"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/fame"
	"github.com/kapu/famescale/internal/util"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("formatter").
	Funcs(template.FuncMap{"add": func(a, b int) int { return a + b }}).
	ParseFS(templateFS, "templates/*.tmpl"))

// fameColors runs from deep red (0) to forest green (10).
var fameColors = [domain.MaxFameLevel + 1]string{
	"#7d1a1a",
	"#8a2c0b",
	"#983e0a",
	"#a5530a",
	"#b36a12",
	"#bf8220",
	"#c99b34",
	"#c2b44e",
	"#a8ad54",
	"#8aa75c",
	"#5e9e6a",
}

// FameColor returns the gradient color for level, clamped to 0–10.
func FameColor(level int) string {
	return fameColors[util.Clamp(level, domain.MinFameLevel, domain.MaxFameLevel)]
}

// ImageOrPlaceholder returns the record's image, or a placeholder showing
// the first letter of the character name.
func ImageOrPlaceholder(r *domain.FameRecord, size int) string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return fmt.Sprintf("%s/%d/%s/%s?text=%s",
		constants.PlaceholderConfig.BaseURL,
		size,
		constants.PlaceholderConfig.Background,
		constants.PlaceholderConfig.Foreground,
		url.QueryEscape(util.FirstRune(r.Character)),
	)
}

// LevelBar draws a ten-cell bar filled to the clamped level.
func LevelBar(level int) string {
	filled := util.Clamp(level, domain.MinFameLevel, domain.MaxFameLevel)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", domain.MaxFameLevel-filled) + "]"
}

// Formatter renders fame snapshots as plain text.
type Formatter struct {
	descriptionLimit int
}

func NewFormatter(descriptionLimit int) *Formatter {
	if descriptionLimit <= 0 {
		descriptionLimit = constants.StringLimits.Description
	}
	return &Formatter{descriptionLimit: descriptionLimit}
}

type itemView struct {
	Name        string
	Bar         string
	Level       int
	Description string
}

type categoryView struct {
	Title string
	Items []itemView
}

type cardView struct {
	Name      string
	Community string
	Level     int
}

type snapshotView struct {
	Notice     string
	Categories []categoryView
	Characters []cardView
}

// FormatSnapshot renders every category list followed by the character list.
func (f *Formatter) FormatSnapshot(snap *fame.Snapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("snapshot must not be nil")
	}

	view := snapshotView{Notice: snap.Notice}
	for _, list := range snap.Categories {
		cv := categoryView{Title: list.Category.Title, Items: make([]itemView, 0, len(list.Records))}
		for _, r := range list.Records {
			cv.Items = append(cv.Items, itemView{
				Name:        r.Character,
				Bar:         LevelBar(r.Level),
				Level:       r.Level,
				Description: util.TruncateString(r.Description, f.descriptionLimit),
			})
		}
		view.Categories = append(view.Categories, cv)
	}
	for _, r := range snap.Characters {
		view.Characters = append(view.Characters, cardView{Name: r.Character, Community: r.Community, Level: r.Level})
	}

	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, "snapshot", view); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// FormatCharacter renders one character's best record.
func (f *Formatter) FormatCharacter(r *domain.FameRecord) string {
	if r == nil {
		return "❌ Character not found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 %s\n", r.Character))
	sb.WriteString(fmt.Sprintf("   %s %d/10 (%s)\n", LevelBar(r.Level), r.Level, FameColor(r.Level)))
	sb.WriteString(fmt.Sprintf("   Community: %s\n", r.Community))
	sb.WriteString(fmt.Sprintf("   Image: %s", ImageOrPlaceholder(r, constants.PlaceholderConfig.CardSize)))
	if r.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   %s", r.Description))
	}
	return sb.String()
}

// FormatSearch renders character cards matching term.
func (f *Formatter) FormatSearch(term string, cards []*domain.FameRecord) string {
	if len(cards) == 0 {
		return fmt.Sprintf("🔍 No characters match '%s'.", term)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 '%s' (%d)\n", term, len(cards)))
	for i, r := range cards {
		sb.WriteString(fmt.Sprintf("%d. %s — %s (%d/10)", i+1, r.Character, r.Community, r.Level))
		if i < len(cards)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatError formats error message
func (f *Formatter) FormatError(message string) string {
	return fmt.Sprintf("❌ %s", message)
}
