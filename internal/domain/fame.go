package domain

// FameRecord is one entry of the fame scale: a character's renown within a community.
// JSON field names match the cached collection format.
type FameRecord struct {
	Character   string `json:"character"`
	ImageURL    string `json:"imageUrl"`
	Community   string `json:"community"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Fame levels are intended to fall in this range. Parsing does not clamp;
// presentation does.
const (
	MinFameLevel = 0
	MaxFameLevel = 10
)

// ClampedLevel returns Level limited to [MinFameLevel, MaxFameLevel].
func (r *FameRecord) ClampedLevel() int {
	if r.Level < MinFameLevel {
		return MinFameLevel
	}
	if r.Level > MaxFameLevel {
		return MaxFameLevel
	}
	return r.Level
}
