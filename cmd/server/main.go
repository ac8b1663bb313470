// Package main is the entry point for the LacyLights strip server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-strip/internal/api"
	"github.com/bbernstein/lacylights-strip/internal/config"
	"github.com/bbernstein/lacylights-strip/internal/database"
	"github.com/bbernstein/lacylights-strip/internal/database/repositories"
	"github.com/bbernstein/lacylights-strip/internal/services/clock"
	"github.com/bbernstein/lacylights-strip/internal/services/control"
	"github.com/bbernstein/lacylights-strip/internal/services/dmx"
	"github.com/bbernstein/lacylights-strip/internal/services/frame"
	"github.com/bbernstein/lacylights-strip/internal/services/generator"
	"github.com/bbernstein/lacylights-strip/internal/services/modes"
	"github.com/bbernstein/lacylights-strip/internal/services/pubsub"
	"github.com/bbernstein/lacylights-strip/internal/services/remote"
	"github.com/bbernstein/lacylights-strip/internal/services/serial"
	"github.com/bbernstein/lacylights-strip/internal/services/settings"
	"github.com/bbernstein/lacylights-strip/internal/services/version"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var envFile string
	var showVersion bool
	pflag.StringVarP(&envFile, "env-file", "e", ".env", "environment file to load")
	pflag.BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	pflag.Parse()

	if err := version.ValidateVersion(Version); err != nil {
		log.Printf("Warning: %v", err)
	}
	info := version.New(Version, BuildTime, GitCommit)
	if showVersion {
		fmt.Println(info.String())
		return
	}

	// Load .env file if present
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	printBanner(cfg, info)

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 2,
		MaxOpenConn: 4,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migrations complete")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, db, info); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// run wires every service and blocks until ctx is cancelled or a service fails.
func run(ctx context.Context, cfg *config.Config, db *gorm.DB, info version.Info) error {
	params, table, err := buildModes(cfg)
	if err != nil {
		return err
	}
	log.Printf("🎨 %d modes registered", table.Len())

	ps := pubsub.New()
	store := settings.NewService(repositories.NewSettingRepository(db), cfg.DefaultMode, cfg.DefaultCycleMs)
	ctl := control.NewService(table, params, store, ps)
	if err := ctl.Restore(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	out, err := openOutput(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer out.close()

	driver := frame.NewDriver(table, params, clock.NewSystem(), out.sink, frame.Config{
		Interval:          cfg.FrameInterval,
		MaxWritesPerFrame: cfg.MaxWritesPerFrame,
	})
	driver.SetOnFrame(func(f rgb.Frame) {
		if ps.HasSubscribers(pubsub.TopicFrame) {
			ps.Publish(pubsub.TopicFrame, f)
		}
	})
	driver.Start()
	defer driver.Stop()

	deps := api.Deps{
		Control: ctl,
		Driver:  driver,
		PubSub:  ps,
		Info:    info,
	}
	if out.artnet != nil {
		deps.ArtNet = out.artnet
		deps.Broadcasts = store
	}
	server := api.NewServer(api.Config{
		CORSOrigin: cfg.CORSOrigin,
		Debug:      cfg.IsDevelopment(),
	}, deps)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening on http://localhost:%s\n", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.OverrideEnabled {
		listener, err := remote.Listen(cfg.OverrideListenAddr(), driver)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := listener.Run(gctx)
			datagrams, records, dropped := listener.Stats()
			log.Printf("📡 UDP listener stopped: %d datagrams, %d records, %d dropped", datagrams, records, dropped)
			return ignoreCanceled(err)
		})
	}

	if cfg.MQTTURL != "" {
		sub := remote.NewSubscriber(remote.MQTTConfig{
			URL:      cfg.MQTTURL,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, driver)
		g.Go(func() error {
			// a missing broker must not take the strip down
			if err := ignoreCanceled(sub.Run(gctx)); err != nil {
				log.Printf("Warning: MQTT disabled: %v", err)
				return nil
			}
			messages, dropped := sub.Stats()
			log.Printf("📡 MQTT subscriber stopped: %d messages, %d records dropped", messages, dropped)
			return nil
		})
	}

	if out.run != nil {
		g.Go(func() error {
			if err := ignoreCanceled(out.run(gctx)); err != nil {
				log.Printf("Warning: output reader stopped: %v", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// buildModes creates the shared generator parameters and the mode table.
func buildModes(cfg *config.Config) (*generator.Params, *modes.Table, error) {
	opts := modes.Options{
		Intervals:       cfg.SparkIntervals,
		BreathingEasing: cfg.BreathingEasing,
	}

	breathing, err := cfg.Breathing()
	if err != nil {
		return nil, nil, err
	}
	opts.BreathingColor = breathing

	if cfg.ThemesFile != "" {
		themes, err := config.LoadThemes(cfg.ThemesFile)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("🎨 Loaded %d themes from %s", len(themes), cfg.ThemesFile)
		opts.Themes = themes
	}

	params := generator.NewParams(cfg.PixelCount, cfg.DefaultCycleMs)
	table := modes.Default(params, newRand(cfg.RandomSeed), opts)
	return params, table, nil
}

// newRand returns a seeded generator; seed 0 seeds from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
}

// output is the selected hardware sink plus its lifecycle hooks.
type output struct {
	sink   frame.Sink
	run    func(ctx context.Context) error
	close  func()
	artnet *dmx.Service
}

func openOutput(ctx context.Context, cfg *config.Config, store *settings.Service) (*output, error) {
	switch cfg.OutputDriver {
	case config.OutputArtNet:
		svc := dmx.NewService(dmx.Config{
			Enabled:       true,
			BroadcastAddr: cfg.ArtNetBroadcast,
			Port:          cfg.ArtNetPort,
			FirstUniverse: cfg.ArtNetUniverse,
			Pixels:        cfg.PixelCount,
			IdleInterval:  cfg.ArtNetIdle,
		})
		if err := svc.Initialize(); err != nil {
			log.Printf("Warning: Art-Net initialization failed: %v", err)
			// keep rendering in simulation mode
			svc.DisableArtNet()
		}
		loadBroadcastAddress(ctx, store, svc)
		return &output{sink: svc, close: svc.Stop, artnet: svc}, nil

	case config.OutputSerial:
		sink, err := serial.Open(serial.Config{
			Device: cfg.SerialDevice,
			Baud:   cfg.SerialBaud,
			Pixels: cfg.PixelCount,
		})
		if err != nil {
			return nil, err
		}
		return &output{sink: sink, run: sink.Run, close: func() { _ = sink.Close() }}, nil

	default:
		log.Println("🎨 No output driver, rendering only")
		return &output{close: func() {}}, nil
	}
}

// loadBroadcastAddress applies a broadcast address saved in the settings table.
func loadBroadcastAddress(ctx context.Context, store *settings.Service, svc *dmx.Service) {
	saved, err := store.LoadBroadcast(ctx)
	if err != nil {
		log.Printf("Warning: %v", err)
		return
	}
	if saved == "" {
		return
	}
	log.Printf("📡 Loading saved Art-Net broadcast address: %s", saved)
	if err := svc.ReloadBroadcastAddress(saved); err != nil {
		log.Printf("Warning: failed to load saved broadcast address: %v", err)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config, info version.Info) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights Strip Server")
	fmt.Printf("  Version: %s\n", info.Version)
	fmt.Printf("  Build:   %s\n", info.BuildTime)
	fmt.Printf("  Commit:  %s\n", info.GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Pixels:      %d\n", cfg.PixelCount)
	fmt.Printf("  Output:      %s\n", cfg.OutputDriver)
	fmt.Println("============================================")
}
