// Package theme activates the Tk theme and configures the semantic widget
// styles used by the scanner window.
package theme

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// PaletteSnapshot holds the resolved colors for one mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Primary   string
	Danger    string
	Accent    string
	Warning   string
	Text      string
	TextMuted string
}

var (
	light = PaletteSnapshot{
		AppBg:     "#f7f9fb",
		Surface:   "#ffffff",
		Primary:   "#2563eb",
		Danger:    "#dc2626",
		Accent:    "#10b981",
		Warning:   "#f59e0b",
		Text:      "#1e293b",
		TextMuted: "#64748b",
	}
	dark = PaletteSnapshot{
		AppBg:     "#0f172a",
		Surface:   "#1e293b",
		Primary:   "#3b82f6",
		Danger:    "#ef4444",
		Accent:    "#10b981",
		Warning:   "#fbbf24",
		Text:      "#f1f5f9",
		TextMuted: "#94a3b8",
	}
)

// style names used with Style("primary.TButton") etc.
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleStateLabel    = "state.TLabel"
	StyleAutoOnLabel   = "autoon.TLabel"
	StyleAutoOffLabel  = "autooff.TLabel"
	StyleProgress      = "scan.Horizontal.TProgressbar"
)

var darkMode bool

// CurrentPalette returns the palette of the active mode.
func CurrentPalette() PaletteSnapshot {
	if darkMode {
		return dark
	}
	return light
}

// InitStyles (re)applies styles for the current mode.
func InitStyles() { apply(CurrentPalette()) }

// SetDark switches mode and reapplies styles. Returns the new mode.
func SetDark(on bool) bool {
	darkMode = on
	apply(CurrentPalette())
	return darkMode
}

// ToggleDark flips dark mode.
func ToggleDark() bool { return SetDark(!darkMode) }

// IsDark reports current mode.
func IsDark() bool { return darkMode }

func apply(p PaletteSnapshot) {
	_ = ActivateTheme("azure light")
	App.Configure(Background(p.AppBg))

	button := func(name, bg string) {
		StyleConfigure(name, Background(bg), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	}
	button(StylePrimaryButton, p.Primary)
	button(StyleDangerButton, p.Danger)

	StyleConfigure(StyleStateLabel, Foreground(p.Text), Background(p.Surface), Padding("4p 2p"), Borderwidth(1), Relief("groove"))
	StyleConfigure(StyleAutoOnLabel, Foreground("white"), Background(p.Accent), Padding("4p 2p"))
	StyleConfigure(StyleAutoOffLabel, Foreground("white"), Background(p.TextMuted), Padding("4p 2p"))
	StyleConfigure(StyleProgress, Background(p.Accent))
}
