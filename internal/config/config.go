package config

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/ornithopter83/selftrack/internal/geometry"
	"github.com/ornithopter83/selftrack/internal/pose"
	"github.com/ornithopter83/selftrack/internal/session"
)

// Default configuration values
const (
	DefaultBaseURL   = "https://ornithopter83.github.io/Self-Tracking/"
	DefaultAddr      = "127.0.0.1:8765"
	DefaultDisplay   = "1920x1080"
	DefaultViewport  = "640x480"
	DefaultHeader    = 40
	DefaultMirror    = true
	DefaultMQTTTopic = "selftrack"
)

// Config holds application configuration
type Config struct {
	// BaseURL is where the relay page is deployed
	BaseURL string

	// Addr is the listen address of the receiver page server
	Addr string

	// Mirror flips landmarks horizontally before drawing
	Mirror bool

	// Display is the size of the screen the receiver window is centered on
	Display image.Point

	// Header is the height reserved above the video surface
	Header int

	// Viewport is the video size used until the relay reports one
	Viewport image.Point

	MarkersFile string
	Markers     pose.MarkerSet

	// Frame export, disabled when MQTTBroker is empty
	MQTTBroker string
	MQTTTopic  string
}

// Options for loading config with CLI flag overrides
type Options struct {
	BaseURL     string
	Addr        string
	Mirror      string
	Display     string
	Header      string
	Viewport    string
	MarkersFile string
	MQTTBroker  string
	MQTTTopic   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		BaseURL:     resolve(opts.BaseURL, "SELFTRACK_BASE_URL", DefaultBaseURL),
		Addr:        resolve(opts.Addr, "SELFTRACK_ADDR", DefaultAddr),
		MarkersFile: resolve(opts.MarkersFile, "SELFTRACK_MARKERS", ""),
		MQTTBroker:  resolve(opts.MQTTBroker, "SELFTRACK_MQTT_BROKER", ""),
		MQTTTopic:   resolve(opts.MQTTTopic, "SELFTRACK_MQTT_TOPIC", DefaultMQTTTopic),
	}

	mirror := resolve(opts.Mirror, "SELFTRACK_MIRROR", strconv.FormatBool(DefaultMirror))
	m, err := strconv.ParseBool(mirror)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror value %q: %w", mirror, err)
	}
	cfg.Mirror = m

	header := resolve(opts.Header, "SELFTRACK_HEADER", strconv.Itoa(DefaultHeader))
	h, err := strconv.Atoi(header)
	if err != nil || h < 0 {
		return nil, fmt.Errorf("invalid header height %q", header)
	}
	cfg.Header = h

	if cfg.Display, err = ParseSize(resolve(opts.Display, "SELFTRACK_DISPLAY", DefaultDisplay)); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	if cfg.Viewport, err = ParseSize(resolve(opts.Viewport, "SELFTRACK_VIEWPORT", DefaultViewport)); err != nil {
		return nil, fmt.Errorf("viewport: %w", err)
	}
	if cfg.Viewport.X > geometry.MaxSide || cfg.Viewport.Y > geometry.MaxSide {
		return nil, fmt.Errorf("viewport: sides must be at most %d", geometry.MaxSide)
	}

	cfg.Markers = pose.DefaultMarkers()
	if cfg.MarkersFile != "" {
		if cfg.Markers, err = LoadMarkers(cfg.MarkersFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func resolve(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// ParseSize parses a "WIDTHxHEIGHT" string such as "1920x1080".
func ParseSize(s string) (image.Point, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return image.Point{}, fmt.Errorf("size %q must be positive", s)
	}
	return image.Pt(width, height), nil
}

// URLs returns the sender and receiver links for token
func (c *Config) URLs(token session.Token) session.URLs {
	return session.BuildURLs(c.BaseURL, token)
}

// PageURL returns the local address of the receiver page
func (c *Config) PageURL() string {
	host := c.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return fmt.Sprintf("http://%s/", host)
}

// ExportEnabled reports whether accepted frames are published to MQTT
func (c *Config) ExportEnabled() bool {
	return c.MQTTBroker != ""
}
