package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/robfig/cron/v3"
)

const (
	// watch retry limits
	minAttempts = 1
	maxAttempts = 10
)

//go:embed schema.json
var embeddedSchemaData []byte

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	// parse embedded schema
	var schema map[string]interface{}
	if err := json.Unmarshal(embeddedSchemaData, &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// basic validation using embedded schema data
	if err := Verify(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Verify performs semantic validation of the config
func Verify(cfg *Config) error {
	if cfg.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url is required")
	}
	if !strings.HasPrefix(cfg.Target.BaseURL, "http://") && !strings.HasPrefix(cfg.Target.BaseURL, "https://") {
		return fmt.Errorf("target.base_url must start with http:// or https://")
	}

	if len(cfg.Probes) == 0 && len(cfg.Pages) == 0 {
		return fmt.Errorf("at least one probe or page is required")
	}

	for i, p := range cfg.Probes {
		if err := validateProbe(p, i+1); err != nil {
			return err
		}
	}

	for i, p := range cfg.Pages {
		if p.Name == "" {
			return fmt.Errorf("page %d: name is required", i+1)
		}
		if !strings.HasPrefix(p.Path, "/") {
			return fmt.Errorf("page %d: path must start with /", i+1)
		}
	}

	if cfg.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Watch.Schedule); err != nil {
			return fmt.Errorf("watch.schedule is not a valid cron spec: %w", err)
		}
	}
	if cfg.Watch.Attempts < minAttempts || cfg.Watch.Attempts > maxAttempts {
		return fmt.Errorf("watch.attempts must be between %d and %d", minAttempts, maxAttempts)
	}

	if cfg.Conditions != nil {
		if err := validateConditions(cfg.Conditions); err != nil {
			return err
		}
	}

	for i, dest := range cfg.Notify.Destinations {
		if !strings.Contains(dest, ":") {
			return fmt.Errorf("notify destination %d: %q is not a valid destination URL", i+1, dest)
		}
	}

	return nil
}

func validateProbe(p Probe, num int) error {
	if p.Name == "" {
		return fmt.Errorf("probe %d: name is required", num)
	}
	if !strings.HasPrefix(p.Path, "/") {
		return fmt.Errorf("probe %d: path must start with /", num)
	}
	if p.Kind != KindRoute && p.Kind != KindAPI {
		return fmt.Errorf("probe %d: kind must be %q or %q, got %q", num, KindRoute, KindAPI, p.Kind)
	}
	if p.Status < 100 || p.Status > 599 {
		return fmt.Errorf("probe %d: status %d is not a valid http status", num, p.Status)
	}
	if p.Kind == KindAPI && !strings.HasPrefix(p.Path, "/api/") {
		return fmt.Errorf("probe %d: api probe path must start with /api/", num)
	}
	return nil
}

func validateConditions(c *Conditions) error {
	checkPct := func(v *int, name string) error {
		if v != nil && (*v < 1 || *v > 100) {
			return fmt.Errorf("conditions.%s must be between 1 and 100", name)
		}
		return nil
	}
	if err := checkPct(c.CPUBelow, "cpu_below"); err != nil {
		return err
	}
	if err := checkPct(c.MemoryBelow, "memory_below"); err != nil {
		return err
	}
	if err := checkPct(c.DiskFreeAbove, "disk_free_above"); err != nil {
		return err
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
