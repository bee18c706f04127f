package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Tunables(t *testing.T) {
	c := DefaultConfig()
	if c.MinVariance != 800 || c.MinContrast != 50 {
		t.Fatalf("detector defaults: variance=%v contrast=%v", c.MinVariance, c.MinContrast)
	}
	if c.StabilityThreshold != 0.75 || c.StabilityFrames != 20 || c.PixelDiffThreshold != 40 {
		t.Fatalf("stability defaults: %v %d %d", c.StabilityThreshold, c.StabilityFrames, c.PixelDiffThreshold)
	}
	if c.Interval().Milliseconds() != 120 {
		t.Fatalf("interval = %v", c.Interval())
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_ClampsInvalid(t *testing.T) {
	c := &Config{StabilityThreshold: 3, JPEGQuality: 500, DetectStride: -1}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.StabilityThreshold != 0.75 {
		t.Errorf("threshold = %v", c.StabilityThreshold)
	}
	if c.JPEGQuality != 90 {
		t.Errorf("quality = %d", c.JPEGQuality)
	}
	if c.DetectStride != 8 || c.StabilityFrames != 20 || c.IntervalMs != 120 {
		t.Errorf("zero values not defaulted: %+v", c)
	}
	if c.Side != "front" {
		t.Errorf("side = %q", c.Side)
	}
}

func TestValidate_RejectsUnknownSide(t *testing.T) {
	c := DefaultConfig()
	c.Side = "left"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown side")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.StabilityFrames != 20 {
		t.Fatalf("expected defaults, got %+v", c)
	}
}

func TestSaveLoad_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cfg.json", "cfg.yaml"} {
		path := filepath.Join(dir, name)
		c := DefaultConfig()
		c.StabilityFrames = 12
		c.Side = "back"
		c.HTTPAddr = ":9090"
		if err := c.Save(path); err != nil {
			t.Fatalf("%s save: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("%s load: %v", name, err)
		}
		if got.StabilityFrames != 12 || got.Side != "back" || got.HTTPAddr != ":9090" {
			t.Fatalf("%s round trip mismatch: %+v", name, got)
		}
	}
}

func TestLoad_YAMLPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("min_variance: 500\nguide_width: 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.MinVariance != 500 || c.GuideWidth != 300 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.GuideHeight != 220 || c.MinContrast != 50 {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if c == nil || c.StabilityFrames != 20 {
		t.Fatalf("expected defaults alongside error, got %+v", c)
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("CARDSCAN_STABILITY_FRAMES", "7")
	t.Setenv("CARDSCAN_SIDE", "back")
	t.Setenv("CARDSCAN_AUTO_MODE", "0")
	c := DefaultConfig()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.StabilityFrames != 7 || c.Side != "back" || c.AutoMode {
		t.Fatalf("env not applied: %+v", c)
	}
}

func TestApplyEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CARDSCAN_CARD_ID=card-42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CARDSCAN_CARD_ID") })
	c := DefaultConfig()
	if err := c.ApplyEnv(path, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.CardID != "card-42" {
		t.Fatalf("card id = %q", c.CardID)
	}
}
