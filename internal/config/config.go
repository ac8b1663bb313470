// Package config provides configuration management for the strip server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Output drivers.
const (
	OutputArtNet = "artnet"
	OutputSerial = "serial"
	OutputNone   = "none"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Strip and frame loop
	PixelCount        int
	FrameInterval     time.Duration
	MaxWritesPerFrame int

	// Animation defaults, used until a configuration is saved
	DefaultMode    int
	DefaultCycleMs uint32
	SparkIntervals uint32
	RandomSeed     uint64 // 0 seeds from the clock
	ThemesFile     string

	BreathingColor  string
	BreathingEasing generator.EasingType

	// Output
	OutputDriver string

	// Art-Net configuration
	ArtNetBroadcast string
	ArtNetPort      int
	ArtNetUniverse  int
	ArtNetIdle      time.Duration

	// Serial configuration
	SerialDevice string
	SerialBaud   int

	// Direct pixel writes over UDP
	OverrideEnabled bool
	OverrideAddr    string
	OverridePort    int

	// Direct pixel writes over MQTT; disabled when MQTTURL is empty
	MQTTURL      string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
	MQTTClientID string

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./strip.db"),

		// Strip
		PixelCount:        getEnvInt("PIXEL_COUNT", 50),
		FrameInterval:     time.Duration(getEnvInt("FRAME_INTERVAL_MS", 20)) * time.Millisecond,
		MaxWritesPerFrame: getEnvInt("MAX_WRITES_PER_FRAME", 1024),

		// Animation
		DefaultMode:     getEnvInt("DEFAULT_MODE", 0),
		DefaultCycleMs:  uint32(getEnvUint("DEFAULT_CYCLE_MS", 10000)),
		SparkIntervals:  uint32(getEnvUint("SPARK_INTERVALS", 1)),
		RandomSeed:      getEnvUint("RANDOM_SEED", 0),
		ThemesFile:      getEnv("THEMES_FILE", ""),
		BreathingColor:  getEnv("BREATHING_COLOR", "#ffa050"),
		BreathingEasing: generator.EasingType(getEnv("BREATHING_EASING", string(generator.EasingInOutSine))),

		// Output
		OutputDriver: getEnv("OUTPUT_DRIVER", OutputArtNet),

		// Art-Net
		ArtNetBroadcast: getEnv("ARTNET_BROADCAST", "255.255.255.255"),
		ArtNetPort:      getEnvInt("ARTNET_PORT", 6454),
		ArtNetUniverse:  getEnvInt("ARTNET_UNIVERSE", 1),
		ArtNetIdle:      time.Duration(getEnvInt("ARTNET_IDLE_MS", 1000)) * time.Millisecond,

		// Serial
		SerialDevice: getEnv("SERIAL_DEVICE", "/dev/ttyUSB0"),
		SerialBaud:   getEnvInt("SERIAL_BAUD", 115200),

		// Pixel writes
		OverrideEnabled: getEnvBool("OVERRIDE_ENABLED", true),
		OverrideAddr:    getEnv("OVERRIDE_ADDR", ""),
		OverridePort:    getEnvInt("OVERRIDE_PORT", 'N'<<8|'X'),

		MQTTURL:      getEnv("MQTT_URL", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "lacylights/strip/pixels"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "lacylights-strip"),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.PixelCount <= 0 {
		return fmt.Errorf("PIXEL_COUNT must be positive, got %d", c.PixelCount)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("FRAME_INTERVAL_MS must be positive, got %s", c.FrameInterval)
	}
	if c.MaxWritesPerFrame <= 0 {
		return fmt.Errorf("MAX_WRITES_PER_FRAME must be positive, got %d", c.MaxWritesPerFrame)
	}
	if c.DefaultCycleMs < generator.MinCycleMs {
		return fmt.Errorf("DEFAULT_CYCLE_MS must be at least %d, got %d", generator.MinCycleMs, c.DefaultCycleMs)
	}
	switch c.OutputDriver {
	case OutputArtNet, OutputSerial, OutputNone:
	default:
		return fmt.Errorf("OUTPUT_DRIVER must be one of %s, %s, %s; got %q",
			OutputArtNet, OutputSerial, OutputNone, c.OutputDriver)
	}
	if _, err := c.Breathing(); err != nil {
		return fmt.Errorf("BREATHING_COLOR: %w", err)
	}
	return nil
}

// Breathing returns the parsed breathing color.
func (c *Config) Breathing() (rgb.Color, error) {
	return rgb.ParseHex(c.BreathingColor)
}

// OverrideListenAddr returns host:port for the UDP pixel write listener.
func (c *Config) OverrideListenAddr() string {
	return fmt.Sprintf("%s:%d", c.OverrideAddr, c.OverridePort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvUint returns the unsigned value of an environment variable or a default value.
func getEnvUint(key string, defaultValue uint64) uint64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
