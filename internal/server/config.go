package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings     `hcl:"server,block"`
	Game   GameSettings       `hcl:"game,block"`
	Seats  []SeatConfig       `hcl:"seat,block"`
	Blinds []BlindLevelConfig `hcl:"blind_level,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	LogFile     string `hcl:"log_file,optional"`
	DBPath      string `hcl:"db_path,optional"`
	TurnTimeout int    `hcl:"turn_timeout,optional"` // seconds before a fold is forced
}

// GameSettings contains the defaults used when a game starts without
// explicit parameters.
type GameSettings struct {
	BlindTime int   `hcl:"blind_time,optional"` // seconds per blind level
	Chips     int64 `hcl:"chips,optional"`      // starting stack
}

// SeatConfig defines one roster entry
type SeatConfig struct {
	Name     string `hcl:"name,label"`
	IsOnline bool   `hcl:"is_online,optional"`
	IsActive bool   `hcl:"is_active,optional"`
}

// BlindLevelConfig defines one row of the blind schedule
type BlindLevelConfig struct {
	Level      int   `hcl:"level,label"`
	SmallBlind int64 `hcl:"small_blind"`
	BigBlind   int64 `hcl:"big_blind"`
	Ante       int64 `hcl:"ante,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:     "localhost",
			Port:        8080,
			LogLevel:    "info",
			LogFile:     "tourneyd.log",
			DBPath:      "tourney.db",
			TurnTimeout: 30,
		},
		Game: GameSettings{
			BlindTime: 600,
			Chips:     10000,
		},
		Seats: []SeatConfig{
			{Name: "seat1", IsActive: true},
			{Name: "seat2", IsActive: true},
			{Name: "seat3", IsActive: true},
			{Name: "seat4", IsActive: true},
		},
		Blinds: []BlindLevelConfig{
			{Level: 1, SmallBlind: 50, BigBlind: 100},
			{Level: 2, SmallBlind: 100, BigBlind: 200},
			{Level: 3, SmallBlind: 150, BigBlind: 300, Ante: 25},
		},
	}
}

// LoadConfig loads server configuration from an HCL file, falling back
// to defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.DBPath == "" {
		config.Server.DBPath = "tourney.db"
	}
	if config.Server.TurnTimeout == 0 {
		config.Server.TurnTimeout = 30
	}
	if config.Game.BlindTime == 0 {
		config.Game.BlindTime = 600
	}
	if config.Game.Chips == 0 {
		config.Game.Chips = 10000
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Seats) < 4 {
		return fmt.Errorf("at least 4 seats must be configured, have %d", len(c.Seats))
	}
	if len(c.Blinds) == 0 {
		return fmt.Errorf("at least one blind level must be configured")
	}

	seen := make(map[int]bool)
	for _, b := range c.Blinds {
		if b.Level < 1 {
			return fmt.Errorf("blind level %d: level must be positive", b.Level)
		}
		if seen[b.Level] {
			return fmt.Errorf("blind level %d configured twice", b.Level)
		}
		seen[b.Level] = true
		if b.SmallBlind <= 0 {
			return fmt.Errorf("blind level %d: small blind must be positive", b.Level)
		}
		if b.BigBlind <= b.SmallBlind {
			return fmt.Errorf("blind level %d: big blind must be greater than small blind", b.Level)
		}
		if b.Ante < 0 {
			return fmt.Errorf("blind level %d: ante cannot be negative", b.Level)
		}
	}
	if !seen[1] {
		return fmt.Errorf("blind level 1 must be configured")
	}

	names := make(map[string]bool)
	for _, s := range c.Seats {
		if s.Name == "" {
			return fmt.Errorf("seat name cannot be empty")
		}
		if names[s.Name] {
			return fmt.Errorf("seat %s configured twice", s.Name)
		}
		names[s.Name] = true
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// EngineSeats converts the seat blocks to the engine roster.
func (c *Config) EngineSeats() []engine.Seat {
	seats := make([]engine.Seat, 0, len(c.Seats))
	for _, s := range c.Seats {
		seats = append(seats, engine.Seat{
			Name:     s.Name,
			IsOnline: s.IsOnline,
			IsActive: s.IsActive,
		})
	}
	return seats
}

// EngineBlinds converts the blind level blocks to the engine schedule.
func (c *Config) EngineBlinds() []*engine.GameBlind {
	blinds := make([]*engine.GameBlind, 0, len(c.Blinds))
	for _, b := range c.Blinds {
		blinds = append(blinds, &engine.GameBlind{
			Level:      b.Level,
			SmallBlind: b.SmallBlind,
			BigBlind:   b.BigBlind,
			Ante:       b.Ante,
		})
	}
	return blinds
}
