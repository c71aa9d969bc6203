package store

// Position is the screen edge the floating button sits on.
type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// Theme is the widget colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Settings is the persisted preference record.
type Settings struct {
	Position Position `json:"position"`
	Theme    Theme    `json:"theme"`
	ShowLogo bool     `json:"showLogo"`
}

// DefaultSettings returns the record used when nothing is stored yet.
func DefaultSettings() Settings {
	return Settings{
		Position: PositionLeft,
		Theme:    ThemeLight,
		ShowLogo: true,
	}
}

// Normalize replaces unknown enum values with their defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	switch s.Position {
	case PositionLeft, PositionRight:
	default:
		s.Position = def.Position
	}
	switch s.Theme {
	case ThemeLight, ThemeDark:
	default:
		s.Theme = def.Theme
	}
	return s
}
