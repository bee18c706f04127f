package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CARDSCAN_"

// ApplyEnv loads the optional dotenv files (missing files are ignored) and then
// overrides fields from CARDSCAN_* variables. The result is re-validated.
func (c *Config) ApplyEnv(dotenv ...string) error {
	for _, f := range dotenv {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.IntervalMs = getEnvInt("INTERVAL_MS", c.IntervalMs)
	c.MinVariance = getEnvFloat("MIN_VARIANCE", c.MinVariance)
	c.MinContrast = getEnvFloat("MIN_CONTRAST", c.MinContrast)
	c.StabilityThreshold = getEnvFloat("STABILITY_THRESHOLD", c.StabilityThreshold)
	c.StabilityFrames = getEnvInt("STABILITY_FRAMES", c.StabilityFrames)
	c.PixelDiffThreshold = getEnvInt("PIXEL_DIFF_THRESHOLD", c.PixelDiffThreshold)
	c.GuideWidth = getEnvInt("GUIDE_WIDTH", c.GuideWidth)
	c.GuideHeight = getEnvInt("GUIDE_HEIGHT", c.GuideHeight)
	c.Side = getEnv("SIDE", c.Side)
	c.AutoMode = getEnvBool("AUTO_MODE", c.AutoMode)
	c.CardID = getEnv("CARD_ID", c.CardID)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	return c.Validate()
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
