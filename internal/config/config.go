package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/security"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/collisions.defaults.json"

// Config is the root configuration for the collision report. Every field is
// optional; the Get* methods supply defaults for anything left out, so a
// partial file is safe.
type Config struct {
	// Dataset
	City     *string `json:"city,omitempty"`
	Region   *string `json:"region,omitempty"` // appended to geocoder queries
	Timezone *string `json:"timezone,omitempty"`
	Years    []int   `json:"years,omitempty"`

	// Categories
	AgeBoundaries  []int    `json:"age_boundaries,omitempty"`
	AgeGroupNames  []string `json:"age_group_names,omitempty"`
	DayStartHour   *int     `json:"day_start_hour,omitempty"`
	NightStartHour *int     `json:"night_start_hour,omitempty"`

	// Serving
	Listen          *string `json:"listen,omitempty"`
	DataDir         *string `json:"data_dir,omitempty"`
	DBPath          *string `json:"db_path,omitempty"`
	RefreshSchedule *string `json:"refresh_schedule,omitempty"` // cron spec; "" disables
	GeocodeRate     *string `json:"geocode_rate,omitempty"`     // duration string like "1s"

	// Map
	FatalColor  *string   `json:"fatal_color,omitempty"`
	SevereColor *string   `json:"severe_color,omitempty"`
	OtherColor  *string   `json:"other_color,omitempty"`
	MapCenter   []float64 `json:"map_center,omitempty"` // [lat, lon]
	MapZoom     *int      `json:"map_zoom,omitempty"`
}

var defaultYears = []int{2008, 2009, 2010, 2011, 2012, 2013}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.City != nil {
		if err := security.ValidateCityName(*c.City); err != nil {
			return err
		}
	}

	if c.Timezone != nil {
		if _, err := time.LoadLocation(*c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", *c.Timezone, err)
		}
	}

	for i := 1; i < len(c.Years); i++ {
		if c.Years[i] <= c.Years[i-1] {
			return fmt.Errorf("years must be strictly increasing, got %v", c.Years)
		}
	}

	ages, err := collision.NewAgeGroups(c.GetAgeBoundaries())
	if err != nil {
		return err
	}
	if len(c.AgeGroupNames) > 0 && len(c.AgeGroupNames) != ages.Len() {
		return fmt.Errorf("age_group_names needs %d entries (one per boundary plus N/A), got %d",
			ages.Len(), len(c.AgeGroupNames))
	}

	day, night := c.GetDayStartHour(), c.GetNightStartHour()
	if day < 0 || day > 23 {
		return fmt.Errorf("day_start_hour must be between 0 and 23, got %d", day)
	}
	if night < 0 || night > 23 {
		return fmt.Errorf("night_start_hour must be between 0 and 23, got %d", night)
	}
	if day >= night {
		return fmt.Errorf("day_start_hour (%d) must be before night_start_hour (%d)", day, night)
	}

	if s := c.GetRefreshSchedule(); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			return fmt.Errorf("invalid refresh_schedule '%s': %w", s, err)
		}
	}

	if c.GeocodeRate != nil && *c.GeocodeRate != "" {
		d, err := time.ParseDuration(*c.GeocodeRate)
		if err != nil {
			return fmt.Errorf("invalid geocode_rate '%s': %w", *c.GeocodeRate, err)
		}
		if d < 0 {
			return fmt.Errorf("geocode_rate must be non-negative, got %s", d)
		}
	}

	if c.MapCenter != nil && len(c.MapCenter) != 2 {
		return fmt.Errorf("map_center must be [lat, lon], got %v", c.MapCenter)
	}
	if c.MapZoom != nil && (*c.MapZoom < 0 || *c.MapZoom > 22) {
		return fmt.Errorf("map_zoom must be between 0 and 22, got %d", *c.MapZoom)
	}

	return nil
}

func getString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// GetCity returns the city slug used in yearly file names.
func (c *Config) GetCity() string { return getString(c.City, "oakland") }

// GetRegion returns the suffix appended to geocoder queries.
func (c *Config) GetRegion() string { return getString(c.Region, "Oakland, CA") }

// GetTimezone returns the IANA zone name records are bucketed in.
func (c *Config) GetTimezone() string { return getString(c.Timezone, "America/Los_Angeles") }

// GetLocation loads GetTimezone, falling back to UTC.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.GetTimezone())
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetYears returns the filterable years.
func (c *Config) GetYears() []int {
	if len(c.Years) == 0 {
		return append([]int(nil), defaultYears...)
	}
	return append([]int(nil), c.Years...)
}

// GetAgeBoundaries returns the inclusive upper bounds of the age groups.
func (c *Config) GetAgeBoundaries() []int {
	if len(c.AgeBoundaries) == 0 {
		return append([]int(nil), collision.DefaultAgeBoundaries...)
	}
	return append([]int(nil), c.AgeBoundaries...)
}

func (c *Config) GetDayStartHour() int   { return getInt(c.DayStartHour, 5) }
func (c *Config) GetNightStartHour() int { return getInt(c.NightStartHour, 19) }

func (c *Config) GetListen() string  { return getString(c.Listen, ":8080") }
func (c *Config) GetDataDir() string { return getString(c.DataDir, "data") }
func (c *Config) GetDBPath() string  { return getString(c.DBPath, "all-collisions.db") }

// GetRefreshSchedule returns the cron spec for data directory refresh.
// An empty string disables refresh.
func (c *Config) GetRefreshSchedule() string {
	return getString(c.RefreshSchedule, "@every 10m")
}

// GetGeocodeRate returns the minimum interval between geocoder requests.
func (c *Config) GetGeocodeRate() time.Duration {
	if c.GeocodeRate == nil || *c.GeocodeRate == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.GeocodeRate)
	if err != nil {
		return time.Second
	}
	return d
}

func (c *Config) GetFatalColor() string  { return getString(c.FatalColor, "red") }
func (c *Config) GetSevereColor() string { return getString(c.SevereColor, "purple") }
func (c *Config) GetOtherColor() string  { return getString(c.OtherColor, "gold") }

// GetMapCenter returns the initial [lat, lon] of the map.
func (c *Config) GetMapCenter() [2]float64 {
	if len(c.MapCenter) != 2 {
		return [2]float64{37.8044, -122.2708}
	}
	return [2]float64{c.MapCenter[0], c.MapCenter[1]}
}

func (c *Config) GetMapZoom() int { return getInt(c.MapZoom, 13) }

// AgeGroups builds the age grouping from GetAgeBoundaries.
func (c *Config) AgeGroups() (collision.AgeGroups, error) {
	return collision.NewAgeGroups(c.GetAgeBoundaries())
}

// DayNight returns the time-of-day policy.
func (c *Config) DayNight() collision.DayNight {
	return collision.DayNight{
		DayStart:   c.GetDayStartHour(),
		NightStart: c.GetNightStartHour(),
		Location:   c.GetLocation(),
	}
}

// Builder returns a record builder using the configured age groups and
// time-of-day policy.
func (c *Config) Builder() (*collision.Builder, error) {
	ages, err := c.AgeGroups()
	if err != nil {
		return nil, err
	}
	return &collision.Builder{Ages: ages, DayNight: c.DayNight()}, nil
}

// Categories returns the category definitions handed to the engine.
func (c *Config) Categories() (category.Config, error) {
	ages, err := c.AgeGroups()
	if err != nil {
		return nil, err
	}
	cfg := category.DefaultConfig(c.GetYears(), ages)
	if len(c.AgeGroupNames) > 0 {
		if len(c.AgeGroupNames) != ages.Len() {
			return nil, fmt.Errorf("age_group_names needs %d entries, got %d", ages.Len(), len(c.AgeGroupNames))
		}
		def := cfg[category.AgeGroup]
		def.Names = append([]string(nil), c.AgeGroupNames...)
		cfg[category.AgeGroup] = def
	}
	return cfg, nil
}
