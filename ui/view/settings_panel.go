package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/card-scan-go/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// SettingsPanel holds the card id field and the detection tuning form. The
// card id applies immediately; tuning values are written to the config file
// and take effect on the next start.
type SettingsPanel interface {
	Build(startRow int, onCardID func(id string)) (endRow int)
	SetEditable(enabled bool)
	ApplyChanges() error
}

type settingsPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	cardText *TextWidget
	saveBtn  *ButtonWidget
	widgets  map[string]*TextWidget
}

// NewSettingsPanel creates the view bound to cfg.
func NewSettingsPanel(cfg *config.Config, cfgPath string, logger *slog.Logger) SettingsPanel {
	return &settingsPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, widgets: make(map[string]*TextWidget)}
}

func (v *settingsPanel) Build(startRow int, onCardID func(id string)) (row int) {
	c := v.cfg
	row = startRow

	Grid(Label(Txt("Card ID"), Anchor("w")), Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
	v.cardText = Text(Height(1), Width(16))
	Grid(v.cardText, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
	v.cardText.Insert("1.0", c.CardID)
	setCard := Button(Txt("Set Card"), Command(func() {
		if onCardID != nil {
			onCardID(strings.TrimSpace(v.text(v.cardText)))
		}
	}))
	Grid(setCard, Row(row), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
	row++

	makeRow := func(id, label, value string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("minVariance", "Min Variance", fmt.Sprintf("%.1f", c.MinVariance))
	makeRow("minContrast", "Min Contrast", fmt.Sprintf("%.1f", c.MinContrast))
	makeRow("stabilityThreshold", "Stability Threshold (0-1)", fmt.Sprintf("%.2f", c.StabilityThreshold))
	makeRow("stabilityFrames", "Stability Frames", strconv.Itoa(c.StabilityFrames))
	makeRow("pixelDiff", "Pixel Diff Threshold", strconv.Itoa(c.PixelDiffThreshold))
	makeRow("intervalMs", "Interval ms", strconv.Itoa(c.IntervalMs))
	makeRow("jpegQuality", "JPEG Quality (1-100)", strconv.Itoa(c.JPEGQuality))
	v.saveBtn = Button(Txt("Save Settings"), Command(func() { _ = v.ApplyChanges() }))
	Grid(v.saveBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *settingsPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.saveBtn != nil {
		v.saveBtn.Configure(State(state))
	}
}

func (v *settingsPanel) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.Join(w.Get("1.0", END), "")
}

// ApplyChanges parses the form into a copy of the config, validates it and
// saves it. The bound config is only replaced when validation passes.
func (v *settingsPanel) ApplyChanges() error {
	if v.cfg == nil {
		return nil
	}
	fields := make(map[string]string, len(v.widgets))
	for id, w := range v.widgets {
		fields[id] = strings.TrimSpace(v.text(w))
	}
	cfg, err := applyFields(*v.cfg, fields)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("settings rejected", "error", err)
		}
		return err
	}
	*v.cfg = cfg
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
		return err
	}
	if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
	return nil
}

// applyFields writes parseable form values into cfg and validates the result.
// Unparseable values keep the previous setting.
func applyFields(cfg config.Config, fields map[string]string) (config.Config, error) {
	assignFloat := func(id string, dst *float64) {
		if f, err := strconv.ParseFloat(fields[id], 64); err == nil {
			*dst = f
		}
	}
	assignInt := func(id string, dst *int) {
		if i, err := strconv.Atoi(fields[id]); err == nil {
			*dst = i
		}
	}
	assignFloat("minVariance", &cfg.MinVariance)
	assignFloat("minContrast", &cfg.MinContrast)
	assignFloat("stabilityThreshold", &cfg.StabilityThreshold)
	assignInt("stabilityFrames", &cfg.StabilityFrames)
	assignInt("pixelDiff", &cfg.PixelDiffThreshold)
	assignInt("intervalMs", &cfg.IntervalMs)
	assignInt("jpegQuality", &cfg.JPEGQuality)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
