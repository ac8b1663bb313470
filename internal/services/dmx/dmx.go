// Package dmx sends LED strip frames as Art-Net DMX.
package dmx

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bbernstein/lacylights-strip/pkg/artnet"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// UniverseSize is the number of channels per DMX universe.
const UniverseSize = int(artnet.DMXDataLength)

// Service maps frames onto DMX universes and transmits them over Art-Net.
// Changed universes are sent as soon as a frame is shown; all universes are
// re-sent once per idle interval as keep-alive.
type Service struct {
	mu sync.RWMutex

	// Channel data per universe (1-indexed)
	universes     map[int][]byte
	firstUniverse int
	pixels        int

	// Configuration
	enabled       bool
	broadcastAddr string
	port          int
	idleInterval  time.Duration

	// Dirty flag system for efficient transmission
	dirtyUniverses map[int]bool

	lastTransmissionTime time.Time
	packetsSent          uint64

	// Art-Net sequence number (increments for each packet, wraps at 255)
	sequence byte

	// UDP socket
	conn *net.UDPConn
	addr *net.UDPAddr

	// Control
	stopChan chan struct{}
	running  bool
}

// Config holds DMX service configuration.
type Config struct {
	Enabled       bool
	BroadcastAddr string
	Port          int
	// FirstUniverse is the 1-based universe of pixel 0.
	FirstUniverse int
	// Pixels is the strip length.
	Pixels int
	// IdleInterval is the keep-alive period.
	IdleInterval time.Duration
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		BroadcastAddr: "255.255.255.255",
		Port:          artnet.DefaultPort,
		FirstUniverse: 1,
		Pixels:        50,
		IdleInterval:  time.Second,
	}
}

// NewService creates a new DMX service.
func NewService(cfg Config) *Service {
	port := cfg.Port
	if port <= 0 {
		port = artnet.DefaultPort
	}
	first := cfg.FirstUniverse
	if first <= 0 {
		first = 1
	}
	idle := cfg.IdleInterval
	if idle <= 0 {
		idle = time.Second
	}
	pixels := cfg.Pixels
	if pixels < 0 {
		pixels = 0
	}

	s := &Service{
		universes:      make(map[int][]byte),
		firstUniverse:  first,
		pixels:         pixels,
		dirtyUniverses: make(map[int]bool),
		enabled:        cfg.Enabled,
		broadcastAddr:  cfg.BroadcastAddr,
		port:           port,
		idleInterval:   idle,
		stopChan:       make(chan struct{}),
	}

	for i := 0; i < artnet.UniverseCount(pixels); i++ {
		s.universes[first+i] = make([]byte, UniverseSize)
	}

	return s
}

// Initialize opens the Art-Net socket and starts the keep-alive loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.enabled {
		if err := s.dial(); err != nil {
			return err
		}
		log.Printf("🎭 DMX Service initialized: %d pixels on %d universes from universe %d",
			s.pixels, len(s.universes), s.firstUniverse)
		log.Printf("📡 Art-Net output enabled, broadcasting to %s:%d", s.broadcastAddr, s.port)
	} else {
		log.Printf("🎭 DMX Service initialized with %d universes (simulation mode)", len(s.universes))
	}

	s.running = true
	go s.keepAliveLoop()

	return nil
}

func (s *Service) dial() error {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(s.broadcastAddr, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("failed to resolve Art-Net address: %w", err)
	}
	s.addr = addr

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to open Art-Net socket: %w", err)
	}
	s.conn = conn
	return nil
}

// keepAliveLoop re-sends every universe when nothing was sent for an idle interval.
func (s *Service) keepAliveLoop() {
	ticker := time.NewTicker(s.idleInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			if time.Since(s.lastTransmissionTime) >= s.idleInterval && s.enabled && s.conn != nil {
				_ = s.outputDMX(s.allUniverses())
			}
			s.mu.Unlock()
		}
	}
}

// Show copies a frame into the universes and sends the universes that changed.
// Pixels beyond the configured strip length are ignored.
func (s *Service) Show(frame rgb.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range frame {
		if i >= s.pixels {
			break
		}
		offset, ch := artnet.PixelAddress(i)
		universe := s.firstUniverse + offset
		data := s.universes[universe]
		if data[ch] != c.R || data[ch+1] != c.G || data[ch+2] != c.B {
			data[ch], data[ch+1], data[ch+2] = c.R, c.G, c.B
			s.dirtyUniverses[universe] = true
		}
	}

	if len(s.dirtyUniverses) == 0 || !s.enabled || s.conn == nil {
		return nil
	}

	dirty := make([]int, 0, len(s.dirtyUniverses))
	for u := range s.dirtyUniverses {
		dirty = append(dirty, u)
	}
	return s.outputDMX(dirty)
}

func (s *Service) allUniverses() []int {
	all := make([]int, 0, len(s.universes))
	for u := range s.universes {
		all = append(all, u)
	}
	return all
}

// outputDMX sends one Art-Net packet per universe and clears their dirty flags.
// It returns the first send error.
func (s *Service) outputDMX(universes []int) error {
	var firstErr error
	for _, universe := range universes {
		// Increment sequence number for each packet (wraps at 255)
		s.sequence++
		packet := artnet.BuildDMXPacket(universe, s.universes[universe], s.sequence)

		if _, err := s.conn.Write(packet); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("art-net send for universe %d: %w", universe, err)
			}
			continue
		}
		s.packetsSent++
		delete(s.dirtyUniverses, universe)
	}
	s.lastTransmissionTime = time.Now()
	return firstErr
}

// GetUniverse returns a copy of a universe's channel data, or nil if it is not used.
func (s *Service) GetUniverse(universe int) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.universes[universe]
	if !ok {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// UniverseCount returns the number of universes used by the strip.
func (s *Service) UniverseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.universes)
}

// PacketsSent returns the number of Art-Net packets sent.
func (s *Service) PacketsSent() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packetsSent
}

// IsEnabled returns whether Art-Net output is enabled.
func (s *Service) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// GetBroadcastAddress returns the Art-Net broadcast address.
func (s *Service) GetBroadcastAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcastAddr
}

// Stop blacks out the strip, stops the keep-alive loop and closes the socket.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false

	// Send final blackout packet
	for universe := range s.universes {
		s.universes[universe] = make([]byte, UniverseSize)
	}
	if s.enabled && s.conn != nil {
		_ = s.outputDMX(s.allUniverses())
		_ = s.conn.Close()
		s.conn = nil
	}

	log.Printf("🎭 DMX Service stopped")
}

// ReloadBroadcastAddress updates the broadcast address and reconnects.
// If Art-Net was disabled, this will enable it.
func (s *Service) ReloadBroadcastAddress(newAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasEnabled := s.enabled
	log.Printf("🔄 Reloading Art-Net broadcast address from %s to %s (was enabled: %v)", s.broadcastAddr, newAddress, wasEnabled)

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	s.broadcastAddr = newAddress
	if err := s.dial(); err != nil {
		return err
	}

	// everything is new to the new receiver
	for u := range s.universes {
		s.dirtyUniverses[u] = true
	}

	if !wasEnabled {
		s.enabled = true
		log.Printf("✅ Art-Net enabled with broadcast address %s:%d", s.broadcastAddr, s.port)
	} else {
		log.Printf("✅ Art-Net broadcast address updated to %s:%d", s.broadcastAddr, s.port)
	}
	return nil
}

// DisableArtNet disables Art-Net output and closes the connection.
// Frames are still stored (simulation mode).
func (s *Service) DisableArtNet() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.enabled = false
	log.Printf("🔌 Art-Net output disabled")
}
