// Package api serves the HTTP configuration surface of the strip.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bbernstein/lacylights-strip/internal/services/control"
	"github.com/bbernstein/lacylights-strip/internal/services/override"
	"github.com/bbernstein/lacylights-strip/internal/services/pubsub"
	"github.com/bbernstein/lacylights-strip/internal/services/version"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// usage is the body of every rejected /cfg request.
const usage = "error: use mode,cycle"

// Driver is the part of the frame driver the API needs.
type Driver interface {
	Submit(w override.Write) bool
	Frames() uint64
	Overruns() uint64
	Dropped() uint64
	Suppressed() bool
	Writes() (accepted, ignored uint64)
}

// Config holds HTTP settings.
type Config struct {
	CORSOrigin string
	Debug      bool
	// Timeout bounds non-streaming requests.
	Timeout time.Duration
}

// ArtNet is the Art-Net output, present only when it is the selected driver.
type ArtNet interface {
	GetBroadcastAddress() string
	ReloadBroadcastAddress(addr string) error
	IsEnabled() bool
	PacketsSent() uint64
}

// BroadcastStore persists the Art-Net broadcast address.
type BroadcastStore interface {
	SaveBroadcast(ctx context.Context, addr string) error
}

// Deps are the services the API serves. ArtNet and Broadcasts may be nil.
type Deps struct {
	Control    *control.Service
	Driver     Driver
	PubSub     *pubsub.PubSub
	Info       version.Info
	ArtNet     ArtNet
	Broadcasts BroadcastStore
}

// Server routes HTTP requests to the control service and the frame driver.
type Server struct {
	cfg     Config
	control *control.Service
	driver  Driver
	ps      *pubsub.PubSub
	info    version.Info
	artnet  ArtNet
	store   BroadcastStore
	started time.Time
	router  chi.Router
}

// NewServer builds the router.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		control: deps.Control,
		driver:  deps.Driver,
		ps:      deps.PubSub,
		info:    deps.Info,
		artnet:  deps.ArtNet,
		store:   deps.Broadcasts,
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{s.cfg.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		Debug:            s.cfg.Debug,
	})
	router.Use(corsMiddleware.Handler)

	// the websocket stream must not be cut by the request timeout
	router.Get("/ws", s.handleStream)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Timeout))

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/cfg", s.handleConfig)
		r.Post("/cfg", s.handleConfig)
		r.Get("/modes", s.handleModes)
		r.Post("/clear", s.handleClear)
		r.Post("/pixels", s.handlePixels)

		if s.artnet != nil {
			r.Get("/artnet", s.handleArtNet)
			r.Post("/artnet", s.handleArtNet)
		}
	})

	return router
}

type healthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Frames     uint64 `json:"frames"`
	Overruns   uint64 `json:"overruns"`
	Dropped    uint64 `json:"dropped"`
	Overridden bool   `json:"overridden"`
	Accepted   uint64 `json:"writesAccepted"`
	Ignored    uint64 `json:"writesIgnored"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	accepted, ignored := s.driver.Writes()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    s.info.Version,
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Frames:     s.driver.Frames(),
		Overruns:   s.driver.Overruns(),
		Dropped:    s.driver.Dropped(),
		Overridden: s.driver.Suppressed(),
		Accepted:   accepted,
		Ignored:    ignored,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok: "+s.info.String())
}

type configResponse struct {
	Version string        `json:"version"`
	Cfg     control.State `json:"cfg"`
}

// handleConfig reports the configuration and applies mode and cycle when given,
// either as query parameters or as a form body.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, usage)
		return
	}

	update, err := parseUpdate(r.Form)
	if err != nil {
		writeText(w, http.StatusBadRequest, usage)
		return
	}

	if err := s.control.Apply(r.Context(), update); err != nil {
		if errors.Is(err, control.ErrInvalidMode) || errors.Is(err, control.ErrInvalidCycle) {
			writeText(w, http.StatusBadRequest, usage)
			return
		}
		log.Printf("⚠️  %v", err)
		http.Error(w, "error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, configResponse{Version: s.info.Version, Cfg: s.control.State()})
}

func parseUpdate(form url.Values) (control.Update, error) {
	var u control.Update
	for key, values := range form {
		if len(values) != 1 {
			return u, errors.New("repeated parameter")
		}
		switch key {
		case "mode":
			m, err := strconv.Atoi(values[0])
			if err != nil {
				return u, err
			}
			u.Mode = &m
		case "cycle":
			ms, err := strconv.ParseUint(values[0], 10, 32)
			if err != nil {
				return u, err
			}
			c := uint32(ms)
			u.CycleMs = &c
		default:
			return u, errors.New("unknown parameter " + key)
		}
	}
	return u, nil
}

type modeResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	names := s.control.Modes()
	out := make([]modeResponse, len(names))
	for i, name := range names {
		out[i] = modeResponse{Index: i, Name: name}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.control.Clear(r.Context()); err != nil {
		log.Printf("⚠️  %v", err)
		http.Error(w, "error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Version: s.info.Version, Cfg: s.control.State()})
}

// pixelWrite is one record of a POST /pixels body.
type pixelWrite struct {
	Index int   `json:"index"`
	R     uint8 `json:"r"`
	G     uint8 `json:"g"`
	B     uint8 `json:"b"`
}

type pixelsResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

func (s *Server) handlePixels(w http.ResponseWriter, r *http.Request) {
	var body []pixelWrite
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, "error: expected [{index,r,g,b}]", http.StatusBadRequest)
		return
	}

	resp := pixelsResponse{}
	for _, p := range body {
		write := override.Write{Pixel: p.Index, Color: rgb.Color{R: p.R, G: p.G, B: p.B}}
		if s.driver.Submit(write) {
			resp.Accepted++
		} else {
			resp.Dropped++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to write response: %v", err)
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg + "\n"))
}
