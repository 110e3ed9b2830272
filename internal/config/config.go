package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime profile. Immutable after Load.
type Config struct {
	Telemetry TelemetryConfig   `toml:"telemetry"`
	Input     InputConfig       `toml:"input"`
	Collision CollisionConfig   `toml:"collision"`
	Nav       NavConfig         `toml:"nav"`
	Inventory InventoryUIConfig `toml:"inventory_ui"`
	Humanize  HumanizeConfig    `toml:"humanize"`
	Profile   ProfileConfig     `toml:"profile"`
	Database  DatabaseConfig    `toml:"database"`
	Monitor   MonitorConfig     `toml:"monitor"`
	Events    EventsConfig      `toml:"events"`
	Logging   LoggingConfig     `toml:"logging"`
}

type TelemetryConfig struct {
	Port    int           `toml:"port"`
	Timeout time.Duration `toml:"timeout"`
}

type InputConfig struct {
	ScreenWidth  int     `toml:"screen_width"`
	ScreenHeight int     `toml:"screen_height"`
	CurveMin     float64 `toml:"curve_min"`
	CurveMax     float64 `toml:"curve_max"`
}

type CollisionConfig struct {
	ArchivePath string `toml:"archive_path"`
	CacheSize   int    `toml:"cache_size"`
}

type NavConfig struct {
	PixelsPerTile  float64 `toml:"pixels_per_tile"` // minimap calibration, ≈4 px/tile
	MinimapCenterX int     `toml:"minimap_center_x"`
	MinimapCenterY int     `toml:"minimap_center_y"`
	MinimapRadius  float64 `toml:"minimap_radius"`
	CompassX       int     `toml:"compass_x"` // compass orb, clicked to force north
	CompassY       int     `toml:"compass_y"`
	Variance       string  `toml:"variance"` // conservative | moderate | aggressive
	PathCacheSize  int     `toml:"path_cache_size"`
}

// InventoryUIConfig anchors the on-screen 4x7 inventory grid. Slot indices
// run row-major from the top left.
type InventoryUIConfig struct {
	OriginX    int `toml:"origin_x"`
	OriginY    int `toml:"origin_y"`
	SlotWidth  int `toml:"slot_width"`
	SlotHeight int `toml:"slot_height"`
	Columns    int `toml:"columns"`
}

type HumanizeConfig struct {
	IdleFreqMin   time.Duration `toml:"idle_freq_min"`
	IdleFreqMax   time.Duration `toml:"idle_freq_max"`
	BreakFreqMin  time.Duration `toml:"break_freq_min"`
	BreakFreqMax  time.Duration `toml:"break_freq_max"`
	BreakDurMin   time.Duration `toml:"break_dur_min"`
	BreakDurMax   time.Duration `toml:"break_dur_max"`
	LogoutBreaks  bool          `toml:"logout_breaks"`
	LogoutFreqMin time.Duration `toml:"logout_freq_min"`
	LogoutFreqMax time.Duration `toml:"logout_freq_max"`
	LogoutDurMin  time.Duration `toml:"logout_dur_min"`
	LogoutDurMax  time.Duration `toml:"logout_dur_max"`
}

// ProfileConfig parameterizes the bot policy without code: id sets,
// thresholds, layouts and the optional Lua script.
type ProfileConfig struct {
	Mode            string                 `toml:"mode"` // "gathering" | "combat"
	Script          string                 `toml:"script"`
	TargetIDs       []int                  `toml:"target_ids"`
	ActionText      string                 `toml:"action_text"`
	LootIDs         []int                  `toml:"loot_ids"`
	FoodIDs         []int                  `toml:"food_ids"`
	FoodThreshold   int                    `toml:"food_threshold"`   // eat below this HP%
	EscapeThreshold int                    `toml:"escape_threshold"` // flee below this HP%
	EscapeItemID    int                    `toml:"escape_item_id"`
	EscapeAction    string                 `toml:"escape_action"`
	MinFoodCount    int                    `toml:"min_food_count"`
	SkillAnimation  int                    `toml:"skill_animation"`
	RespawnTimeout  time.Duration          `toml:"respawn_timeout"`
	BankObjectIDs   []int                  `toml:"bank_object_ids"`
	BankTile        []int32                `toml:"bank_tile"` // x, y, plane
	WorkTile        []int32                `toml:"work_tile"`
	Banking         bool                   `toml:"banking"`
	PowerDrop       bool                   `toml:"power_drop"`
	DropIDs         []int                  `toml:"drop_ids"`
	Equipment       map[string]int         `toml:"equipment"` // slot name → item id
	InventoryLayout []InventoryRequirement `toml:"inventory_layout"`
}

// InventoryRequirement is one required stack in the inventory layout.
type InventoryRequirement struct {
	ItemID      int  `toml:"item_id"`
	Count       int  `toml:"count"`
	WithdrawAll bool `toml:"withdraw_all"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = stats persistence disabled
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type MonitorConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

type EventsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML profile, layering it over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Nav.Variance {
	case "conservative", "moderate", "aggressive":
	default:
		return fmt.Errorf("invalid nav.variance %q", c.Nav.Variance)
	}
	switch c.Profile.Mode {
	case "gathering", "combat":
	default:
		return fmt.Errorf("invalid profile.mode %q", c.Profile.Mode)
	}
	if c.Telemetry.Port <= 0 || c.Telemetry.Port > 65535 {
		return fmt.Errorf("invalid telemetry.port %d", c.Telemetry.Port)
	}
	if len(c.Profile.BankTile) != 0 && len(c.Profile.BankTile) != 3 {
		return fmt.Errorf("profile.bank_tile wants [x, y, plane]")
	}
	if len(c.Profile.WorkTile) != 0 && len(c.Profile.WorkTile) != 3 {
		return fmt.Errorf("profile.work_tile wants [x, y, plane]")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			Port:    8080,
			Timeout: 2 * time.Second,
		},
		Input: InputConfig{
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			CurveMin:     0.5,
			CurveMax:     2.0,
		},
		Collision: CollisionConfig{
			ArchivePath: "data/collision.zip",
			CacheSize:   50,
		},
		Nav: NavConfig{
			PixelsPerTile:  4.0,
			MinimapCenterX: 1690,
			MinimapCenterY: 120,
			MinimapRadius:  72,
			CompassX:       1592,
			CompassY:       48,
			Variance:       "moderate",
			PathCacheSize:  100,
		},
		Inventory: InventoryUIConfig{
			OriginX:    1655,
			OriginY:    210,
			SlotWidth:  42,
			SlotHeight: 36,
			Columns:    4,
		},
		Humanize: HumanizeConfig{
			IdleFreqMin:   20 * time.Second,
			IdleFreqMax:   70 * time.Second,
			BreakFreqMin:  25 * time.Minute,
			BreakFreqMax:  55 * time.Minute,
			BreakDurMin:   2 * time.Minute,
			BreakDurMax:   7 * time.Minute,
			LogoutBreaks:  false,
			LogoutFreqMin: 90 * time.Minute,
			LogoutFreqMax: 180 * time.Minute,
			LogoutDurMin:  10 * time.Minute,
			LogoutDurMax:  30 * time.Minute,
		},
		Profile: ProfileConfig{
			Mode:            "gathering",
			ActionText:      "Mine",
			FoodThreshold:   60,
			EscapeThreshold: 20,
			MinFoodCount:    2,
			RespawnTimeout:  60 * time.Second,
			Banking:         true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Monitor: MonitorConfig{
			BindAddress: "127.0.0.1:9280",
		},
		Events: EventsConfig{
			BindAddress: "127.0.0.1:9281",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
