package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// Voucher is one redeemable catalog entry. The catalog is policy data consumed
// by the core, not owned by it: points costs and categories are edited here,
// never in code.
type Voucher struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Points      int    `yaml:"points" json:"points"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}

// Config holds the points policy: the urgency→points table and the voucher
// catalog. Historical builds shipped different urgency tables (20/50/100 at one
// point), which is exactly why the mapping is data and not a switch statement.
type Config struct {
	UrgencyPoints map[string]int `yaml:"urgency_points"`
	Vouchers      []Voucher      `yaml:"vouchers"`
}

// DefaultUrgencyPoints is the reference mapping used when no file overrides it.
var DefaultUrgencyPoints = map[string]int{
	"normal": 50,
	"medium": 70,
	"high":   100,
}

// Load reads the YAML policy file. Environment variables referenced as ${NAME}
// are substituted before parsing. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{UrgencyPoints: map[string]int{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.UrgencyPoints = DefaultUrgencyPoints
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		content = strings.ReplaceAll(content, "${"+pair[0]+"}", pair[1])
	}

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if len(cfg.UrgencyPoints) == 0 {
		cfg.UrgencyPoints = DefaultUrgencyPoints
	}

	// Catalog entries may omit an id; derive a stable one from the title.
	for i := range cfg.Vouchers {
		if cfg.Vouchers[i].ID == "" {
			cfg.Vouchers[i].ID = slug.Make(cfg.Vouchers[i].Title)
		}
	}

	return cfg, nil
}

// PointsFor resolves an urgency tier to its point value, falling back to the
// normal tier for unknown tiers.
func (c *Config) PointsFor(urgency string) int {
	if p, ok := c.UrgencyPoints[urgency]; ok {
		return p
	}
	return c.UrgencyPoints["normal"]
}

// FindVoucher looks up a catalog entry by id.
func (c *Config) FindVoucher(id string) (Voucher, bool) {
	for _, v := range c.Vouchers {
		if v.ID == id {
			return v, true
		}
	}
	return Voucher{}, false
}
