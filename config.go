// Copyright (C) 2016, Heiko Koehler

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/overlay"
	"github.com/hkoehler/ledenik/internal/status"
)

var ErrUnknownThing = errors.New("unknown thing")

type Config struct {
	Port    int    // TCP port for HTTP service
	Backend string // base URL of the backend
	Things  []*ThingConfig

	// durations in time.ParseDuration syntax
	Refresh      string // page auto reload
	Stale        string // connection problem banner
	Status       string // herd page down threshold
	PollInterval string // reported state polling
	PendingTTL   string // unconfirmed commands are dropped after this

	Zone       string // IANA zone for displayed times
	TimeFormat string // strftime pattern
	LogLevel   string
	HoverStep  float64 // crosshair column width in pixels

	MarkerWidth  float64
	MarkerHeight float64

	refresh, stale, status, poll, pendingTTL time.Duration
	location                                 *time.Location
}

type ThingConfig struct {
	Name  string
	Title string
	// Image is the URL of the plot picture markers are placed on
	Image string
}

func (conf ThingConfig) String() string {
	return fmt.Sprintf("Thing(Name: \"%s\", Title: \"%s\", Image: \"%s\")",
		conf.Name, conf.Title, conf.Image)
}

func (conf ThingConfig) DisplayName() string {
	if conf.Title != "" {
		return conf.Title
	}
	return conf.Name
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() *Config {
	conf := &Config{
		Port:         8080,
		Backend:      "http://localhost:5000",
		Refresh:      "5s",
		Stale:        status.DefaultStale.String(),
		Status:       status.DefaultStatus.String(),
		PollInterval: "5s",
		PendingTTL:   "5m",
		Zone:         "UTC",
		TimeFormat:   status.DefaultTimeFormat,
		LogLevel:     "info",
		HoverStep:    4,
		MarkerWidth:  overlay.DefaultMarkerSize.Width,
		MarkerHeight: overlay.DefaultMarkerSize.Height,
	}
	if err := conf.resolve(); err != nil {
		panic(err)
	}
	return conf
}

// LoadConfig decodes a JSON config on top of the defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	conf := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(conf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := conf.resolve(); err != nil {
		return nil, err
	}
	for _, thing := range conf.Things {
		log.Debug(thing)
	}
	return conf, nil
}

func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

// resolve parses durations and the zone and checks the things.
func (conf *Config) resolve() error {
	durations := []struct {
		name string
		s    string
		d    *time.Duration
	}{
		{"Refresh", conf.Refresh, &conf.refresh},
		{"Stale", conf.Stale, &conf.stale},
		{"Status", conf.Status, &conf.status},
		{"PollInterval", conf.PollInterval, &conf.poll},
		{"PendingTTL", conf.PendingTTL, &conf.pendingTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.s)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.name, err)
		}
		*d.d = v
	}
	loc, err := time.LoadLocation(conf.Zone)
	if err != nil {
		return fmt.Errorf("config Zone: %w", err)
	}
	conf.location = loc

	seen := make(map[string]bool)
	for _, thing := range conf.Things {
		if thing == nil || thing.Name == "" {
			return errors.New("config: thing without name")
		}
		if seen[thing.Name] {
			return fmt.Errorf("config: duplicate thing %q", thing.Name)
		}
		seen[thing.Name] = true
	}
	return nil
}

// Thing looks up a configured thing by name.
func (conf *Config) Thing(name string) (*ThingConfig, error) {
	for _, thing := range conf.Things {
		if thing.Name == name {
			return thing, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownThing, name)
}

func (conf *Config) Clock() status.Clock {
	return status.Clock{Location: conf.location, Format: conf.TimeFormat}
}

func (conf *Config) MarkerSize() overlay.Size {
	return overlay.Size{Width: conf.MarkerWidth, Height: conf.MarkerHeight}
}
