// Package config loads service configuration from a .env file, the process
// environment, and an optional TOML rules file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Madhuiit/dcl/internal/eligibility"
	"github.com/Madhuiit/dcl/internal/store"
)

// DefaultTeams is the DCL season's team roster.
var DefaultTeams = []string{
	"Naman Communication", "bhagat sing club", "Yaar Albela", "Maa Santoshi", "Ramdevariya",
	"Maa Karni club", "Lemda Eleven", "Risingin Star", "Pareek Patrolium",
	"Rajasthan Royal", "Kevin XI", "khetarpal Eleven", "Dadoji Eleven", "Jabaz Eleven", "Review Later",
}

// Config is the full service configuration.
type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	PlayersFile   string        `env:"PLAYERS_FILE" envDefault:"players.json"`

	StoreBackend    string `env:"STORE_BACKEND" envDefault:"file"`
	StateFile       string `env:"STATE_FILE" envDefault:"auction_state.json"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"auction.db"`
	DatabaseURL     string `env:"DATABASE_URL"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"dcl"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"auction"`

	RedisURL        string        `env:"REDIS_URL"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	DistributedLock bool          `env:"DISTRIBUTED_LOCK" envDefault:"false"`
	LockTTL         time.Duration `env:"LOCK_TTL" envDefault:"10s"`

	// RulesFile names a TOML file whose [auction] table overrides Auction.
	RulesFile string `env:"AUCTION_CONFIG"`

	Auction Auction `envPrefix:"AUCTION_"`
}

// Auction holds the bidding rules and team roster.
type Auction struct {
	Teams                []string `env:"TEAMS" envSeparator:","`
	InitialPoints        int64    `env:"INITIAL_POINTS" envDefault:"110000"`
	MinimumTeamSize      int      `env:"MINIMUM_TEAM_SIZE" envDefault:"13"`
	MinimumBid           int64    `env:"MINIMUM_BID" envDefault:"500"`
	EnforceLimitOnAdjust bool     `env:"ENFORCE_LIMIT_ON_ADJUST" envDefault:"false"`
}

// rulesFile mirrors the TOML layout. Pointers distinguish "absent" from zero.
type rulesFile struct {
	Auction struct {
		Teams                []string `toml:"teams"`
		InitialPoints        *int64   `toml:"initial_points"`
		MinimumTeamSize      *int     `toml:"minimum_team_size"`
		MinimumBid           *int64   `toml:"minimum_bid"`
		EnforceLimitOnAdjust *bool    `toml:"enforce_limit_on_adjust"`
	} `toml:"auction"`
}

// Load reads envFile (if it exists) into the environment without overriding
// variables already set, parses the environment, and applies the rules file
// named by AUCTION_CONFIG.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RulesFile != "" {
		if err := cfg.applyRulesFile(cfg.RulesFile); err != nil {
			return nil, err
		}
	}

	cfg.Auction.Teams = cleanTeams(cfg.Auction.Teams)
	if len(cfg.Auction.Teams) == 0 {
		cfg.Auction.Teams = append([]string(nil), DefaultTeams...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyRulesFile(path string) error {
	var rf rulesFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return fmt.Errorf("rules file %s: %w", path, err)
	}
	a := rf.Auction
	if len(a.Teams) > 0 {
		c.Auction.Teams = a.Teams
	}
	if a.InitialPoints != nil {
		c.Auction.InitialPoints = *a.InitialPoints
	}
	if a.MinimumTeamSize != nil {
		c.Auction.MinimumTeamSize = *a.MinimumTeamSize
	}
	if a.MinimumBid != nil {
		c.Auction.MinimumBid = *a.MinimumBid
	}
	if a.EnforceLimitOnAdjust != nil {
		c.Auction.EnforceLimitOnAdjust = *a.EnforceLimitOnAdjust
	}
	return nil
}

func cleanTeams(teams []string) []string {
	out := make([]string, 0, len(teams))
	for _, t := range teams {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate rejects rule values the engine cannot work with.
func (c *Config) Validate() error {
	a := c.Auction
	if a.InitialPoints < 0 {
		return fmt.Errorf("config: initial points must not be negative, got %d", a.InitialPoints)
	}
	if a.MinimumTeamSize < 0 {
		return fmt.Errorf("config: minimum team size must not be negative, got %d", a.MinimumTeamSize)
	}
	if a.MinimumBid < 0 {
		return fmt.Errorf("config: minimum bid must not be negative, got %d", a.MinimumBid)
	}
	seen := make(map[string]bool, len(a.Teams))
	for _, t := range a.Teams {
		if seen[t] {
			return fmt.Errorf("config: duplicate team %q", t)
		}
		seen[t] = true
	}
	if c.DistributedLock && c.RedisURL == "" {
		return errors.New("config: DISTRIBUTED_LOCK requires REDIS_URL")
	}
	return nil
}

// Rules converts the auction section into eligibility rules.
func (c *Config) Rules() eligibility.Rules {
	r := eligibility.NewRules(c.Auction.InitialPoints, c.Auction.MinimumTeamSize, c.Auction.MinimumBid)
	r.EnforceLimitOnAdjust = c.Auction.EnforceLimitOnAdjust
	return r
}

// StoreOptions returns the backend selection for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:         c.StoreBackend,
		StateFile:       c.StateFile,
		SQLitePath:      c.SQLitePath,
		DatabaseURL:     c.DatabaseURL,
		MongoURI:        c.MongoURI,
		MongoDatabase:   c.MongoDatabase,
		MongoCollection: c.MongoCollection,
	}
}
