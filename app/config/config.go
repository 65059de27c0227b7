// Package config loads and validates the harness configuration from a YAML
// file. The config describes the target Dumont Cloud instance, the routes and
// API endpoints to probe, the pages to snapshot and the delivery destinations
// for session reports.
package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

// Config is the top-level harness configuration
type Config struct {
	Target     Target      `yaml:"target" json:"target"`
	Browser    Browser     `yaml:"browser,omitempty" json:"browser,omitempty"`
	Probes     []Probe     `yaml:"probes,omitempty" json:"probes,omitempty"`
	Pages      []Page      `yaml:"pages,omitempty" json:"pages,omitempty"`
	Conditions *Conditions `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Watch      Watch       `yaml:"watch,omitempty" json:"watch,omitempty"`
	Notify     Notify      `yaml:"notify,omitempty" json:"notify,omitempty"`
}

// Target describes the Dumont Cloud instance under test
type Target struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Token   string        `yaml:"token,omitempty" json:"token,omitempty"` // bearer token for /api/v1, supports ${ENV} expansion
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Browser holds playwright launch options
type Browser struct {
	Headless *bool         `yaml:"headless,omitempty" json:"headless,omitempty"`
	SlowMo   float64       `yaml:"slow_mo,omitempty" json:"slow_mo,omitempty"` // milliseconds added to each operation
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Probe kinds. Route probes fetch a page over plain HTTP and match marker
// text, api probes hit bearer-token REST endpoints.
const (
	KindRoute = "route"
	KindAPI   = "api"
)

// Probe is a single health check against the target
type Probe struct {
	Name   string `yaml:"name" json:"name"`
	Path   string `yaml:"path" json:"path"`
	Kind   string `yaml:"kind,omitempty" json:"kind,omitempty"`     // route (default) or api
	Status int    `yaml:"status,omitempty" json:"status,omitempty"` // expected http status, 200 if not set
	Marker string `yaml:"marker,omitempty" json:"marker,omitempty"` // substring expected in the response body
}

// Page is a snapshot target, captured in a real browser
type Page struct {
	Name     string `yaml:"name" json:"name"`
	Path     string `yaml:"path" json:"path"`
	WaitFor  string `yaml:"wait_for,omitempty" json:"wait_for,omitempty"` // selector confirming the page rendered
	FullPage bool   `yaml:"full_page,omitempty" json:"full_page,omitempty"`
}

// Conditions gate heavy browser work on host resources
type Conditions struct {
	CPUBelow      *int   `yaml:"cpu_below,omitempty" json:"cpu_below,omitempty"`             // percentage
	MemoryBelow   *int   `yaml:"memory_below,omitempty" json:"memory_below,omitempty"`       // percentage
	DiskFreeAbove *int   `yaml:"disk_free_above,omitempty" json:"disk_free_above,omitempty"` // percentage
	DiskFreePath  string `yaml:"disk_free_path,omitempty" json:"disk_free_path,omitempty"`
}

// Watch configures scheduled smoke runs
type Watch struct {
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"` // standard 5-field cron spec
	Attempts int    `yaml:"attempts,omitempty" json:"attempts,omitempty"` // retry attempts per session, 1 if not set
}

// Notify lists report delivery destinations, in go-pkgz/notify URL form
// (mailto:..., slack:..., https://... for webhooks)
type Notify struct {
	OnFailure    bool     `yaml:"on_failure,omitempty" json:"on_failure,omitempty"`
	OnCompletion bool     `yaml:"on_completion,omitempty" json:"on_completion,omitempty"`
	Destinations []string `yaml:"destinations,omitempty" json:"destinations,omitempty"`
}

// Load reads and parses the config file. Token values support environment
// expansion so secrets stay out of the file itself.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file) // #nosec G304 - config file path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", file, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", file, err)
	}

	cfg.Target.Token = os.ExpandEnv(cfg.Target.Token)
	cfg.setDefaults()

	if err := Verify(cfg); err != nil {
		return nil, err
	}

	log.Printf("[INFO] loaded config from %s, %d probes, %d pages, target %s",
		file, len(cfg.Probes), len(cfg.Pages), cfg.Target.BaseURL)
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Target.Timeout == 0 {
		c.Target.Timeout = 30 * time.Second
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 15 * time.Second
	}
	for i := range c.Probes {
		if c.Probes[i].Kind == "" {
			c.Probes[i].Kind = KindRoute
		}
		if c.Probes[i].Status == 0 {
			c.Probes[i].Status = 200
		}
	}
	if c.Watch.Attempts == 0 {
		c.Watch.Attempts = 1
	}
}

// IsHeadless reports the effective headless setting, true unless disabled explicitly
func (b Browser) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}
