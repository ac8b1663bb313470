package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-strip/internal/config"
	"github.com/bbernstein/lacylights-strip/internal/database/models"
	"github.com/bbernstein/lacylights-strip/internal/database/repositories"
	"github.com/bbernstein/lacylights-strip/internal/services/dmx"
	"github.com/bbernstein/lacylights-strip/internal/services/settings"
	"github.com/bbernstein/lacylights-strip/internal/services/version"
)

func newStore(t *testing.T) *settings.Service {
	return settings.NewService(repositories.NewSettingRepository(setupTestDB(t)), 0, 10000)
}

// setupTestDB creates a migrated in-memory SQLite database.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		Port:              "4000",
		DatabaseURL:       "test.db",
		PixelCount:        10,
		FrameInterval:     20 * time.Millisecond,
		MaxWritesPerFrame: 16,
		DefaultCycleMs:    10000,
		SparkIntervals:    1,
		RandomSeed:        7,
		BreathingColor:    "#ffa050",
		OutputDriver:      config.OutputNone,
	}
}

func TestPrintBanner(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	printBanner(testConfig(), version.New("1.0.0", "today", "abc123"))

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	for _, want := range []string{
		"LacyLights Strip Server",
		"Version: 1.0.0",
		"Commit:  abc123",
		"Environment: test",
		"Port:        4000",
		"Database:    test.db",
		"Pixels:      10",
		"Output:      none",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in banner", want)
		}
	}
}

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if BuildTime == "" {
		t.Error("BuildTime should have a default value")
	}
	if GitCommit == "" {
		t.Error("GitCommit should have a default value")
	}
	if err := version.ValidateVersion(Version); err != nil {
		t.Errorf("Default Version should be semver: %v", err)
	}
}

func TestBuildModes(t *testing.T) {
	params, table, err := buildModes(testConfig())
	if err != nil {
		t.Fatalf("buildModes failed: %v", err)
	}
	if params.Pixels() != 10 {
		t.Errorf("Expected 10 pixels, got %d", params.Pixels())
	}
	if params.Cycle() != 10000 {
		t.Errorf("Expected cycle 10000, got %d", params.Cycle())
	}
	if table.Len() == 0 {
		t.Error("Expected registered modes")
	}
}

func TestBuildModes_WithThemes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.toml")
	if err := os.WriteFile(path, []byte("[[themes]]\nname = \"sunset\"\ncolors = [\"#ff4400\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, plain, err := buildModes(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ThemesFile = path
	_, table, err := buildModes(cfg)
	if err != nil {
		t.Fatalf("buildModes failed: %v", err)
	}
	if table.Len() != plain.Len()+1 {
		t.Errorf("Expected one extra mode, got %d vs %d", table.Len(), plain.Len())
	}

	found := false
	for _, name := range table.Names() {
		if name == "sunset sparks" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a 'sunset sparks' mode in %v", table.Names())
	}
}

func TestBuildModes_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.ThemesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, _, err := buildModes(cfg); err == nil {
		t.Error("Expected an error for a missing themes file")
	}

	cfg = testConfig()
	cfg.BreathingColor = "nope"
	if _, _, err := buildModes(cfg); err == nil {
		t.Error("Expected an error for a bad breathing color")
	}
}

func TestNewRand_Seeded(t *testing.T) {
	a, b := newRand(42), newRand(42)
	for i := 0; i < 10; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("Seeded generators diverged at %d: %d != %d", i, x, y)
		}
	}
}

func TestOpenOutput_None(t *testing.T) {
	out, err := openOutput(context.Background(), testConfig(), newStore(t))
	if err != nil {
		t.Fatalf("openOutput failed: %v", err)
	}
	if out.sink != nil {
		t.Error("Expected no sink for the none driver")
	}
	if out.run != nil {
		t.Error("Expected no reader for the none driver")
	}
	if out.artnet != nil {
		t.Error("Expected no Art-Net output for the none driver")
	}
	out.close()
}

func TestOpenOutput_SerialMissingDevice(t *testing.T) {
	cfg := testConfig()
	cfg.OutputDriver = config.OutputSerial
	cfg.SerialDevice = filepath.Join(t.TempDir(), "no-such-tty")

	if _, err := openOutput(context.Background(), cfg, newStore(t)); err == nil {
		t.Error("Expected an error for a missing serial device")
	}
}

func TestLoadBroadcastAddress(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	svc := dmx.NewService(dmx.Config{BroadcastAddr: "255.255.255.255", Port: 6454, Pixels: 10})

	// nothing saved
	loadBroadcastAddress(ctx, store, svc)
	if got := svc.GetBroadcastAddress(); got != "255.255.255.255" {
		t.Errorf("Expected unchanged address, got %s", got)
	}

	if err := store.SaveBroadcast(ctx, "127.0.0.1"); err != nil {
		t.Fatalf("SaveBroadcast failed: %v", err)
	}
	loadBroadcastAddress(ctx, store, svc)
	if got := svc.GetBroadcastAddress(); got != "127.0.0.1" {
		t.Errorf("Expected saved address, got %s", got)
	}
	if !svc.IsEnabled() {
		t.Error("Expected Art-Net enabled after loading an address")
	}
	svc.DisableArtNet()
}

func TestIgnoreCanceled(t *testing.T) {
	if err := ignoreCanceled(context.Canceled); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
	other := errors.New("boom")
	if err := ignoreCanceled(other); err != other {
		t.Errorf("Expected other error, got %v", err)
	}
	if err := ignoreCanceled(nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
