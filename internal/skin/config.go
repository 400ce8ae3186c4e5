package skin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/tailscale/hujson"
)

// ConfigFileName is the project config file name.
const ConfigFileName = ".flagskin.json"

// FactionConfig is the configured appearance of one faction.
type FactionConfig struct {
	Color     string `json:"color"`
	ImagePath string `json:"image_path"`
	ImageURL  string `json:"image_url"`
}

// FactionsConfig holds every faction's appearance.
type FactionsConfig struct {
	Sorcerer FactionConfig `json:"sorcerer"`
	Warlock  FactionConfig `json:"warlock"`
	Neutral  FactionConfig `json:"neutral"`
}

// Config holds all configuration options.
type Config struct {
	Enabled             bool           `json:"enabled"`
	UseCache            bool           `json:"use_cache"`
	Debug               bool           `json:"debug"`
	CacheDir            string         `json:"cache_dir"`
	NeutralDiscriminant int            `json:"neutral_discriminant"`
	Factions            FactionsConfig `json:"factions"`

	// Sources tracks which config files were loaded (for diagnostics).
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
	Env     []string
}

// DefaultConfig returns the default configuration. CacheDir is left empty
// and resolved by [LoadConfig].
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		UseCache:            true,
		NeutralDiscriminant: DefaultNeutralDiscriminant,
		Factions: FactionsConfig{
			Sorcerer: FactionConfig{Color: FormatHexColor(Sorcerer.DefaultColor())},
			Warlock:  FactionConfig{Color: FormatHexColor(Warlock.DefaultColor())},
			Neutral:  FactionConfig{Color: FormatHexColor(Neutral.DefaultColor())},
		},
	}
}

// Faction returns f's configuration.
func (c *Config) Faction(f Faction) *FactionConfig {
	switch f {
	case Sorcerer:
		return &c.Factions.Sorcerer
	case Warlock:
		return &c.Factions.Warlock
	default:
		return &c.Factions.Neutral
	}
}

// Source returns f's appearance. An unparsable color becomes f's default.
func (c Config) Source(f Faction) Source {
	fc := c.Faction(f)

	col, err := ParseHexColor(fc.Color)
	if err != nil {
		col = f.DefaultColor()
	}

	return Source{
		Color: col,
		Path:  strings.TrimSpace(fc.ImagePath),
		URL:   strings.TrimSpace(fc.ImageURL),
	}
}

// InvalidColors lists factions whose configured color does not parse.
func (c Config) InvalidColors() []Faction {
	var bad []Faction

	for _, f := range Factions {
		if _, err := ParseHexColor(c.Faction(f).Color); err != nil {
			bad = append(bad, f)
		}
	}

	return bad
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDir    string            // directory searched for the project config; required
	ConfigPath string            // -c/--config flag value
	Env        map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/flagskin/config.json or ~/.config/flagskin/config.json)
// 3. Project config file at default location (.flagskin.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty), replacing 3
// 5. FLAGSKIN_* environment variables.
//
// Relative cache_dir and image_path values are resolved against WorkDir.
func LoadConfig(input LoadConfigInput) (Config, error) {
	cfg := DefaultConfig()

	if globalPath := globalConfigPath(input.Env); globalPath != "" {
		overlay, loaded, err := loadConfigFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = overlay.mergeInto(cfg)
			cfg.Sources.Global = globalPath
		}
	}

	projectPath := input.projectPath()
	mustExist := input.ConfigPath != ""

	if mustExist {
		if _, err := os.Stat(projectPath); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}
	}

	overlay, loaded, err := loadConfigFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = overlay.mergeInto(cfg)
		cfg.Sources.Project = projectPath
	}

	envCfg, err := parseEnvOverrides(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg, cfg.Sources.Env = envCfg.mergeInto(cfg)

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir(input.Env, input.WorkDir)
	} else if !filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDir = filepath.Join(input.WorkDir, cfg.CacheDir)
	}

	for _, f := range Factions {
		fc := cfg.Faction(f)
		if p := strings.TrimSpace(fc.ImagePath); p != "" && !filepath.IsAbs(p) {
			fc.ImagePath = filepath.Join(input.WorkDir, p)
		}
	}

	return cfg, nil
}

// ConfigFiles returns the files LoadConfig reads for input, whether or not
// they exist: the global config (if a home is known) and the project or
// explicit config.
func ConfigFiles(input LoadConfigInput) []string {
	var files []string

	if globalPath := globalConfigPath(input.Env); globalPath != "" {
		files = append(files, globalPath)
	}

	return append(files, input.projectPath())
}

func (input LoadConfigInput) projectPath() string {
	if input.ConfigPath == "" {
		return filepath.Join(input.WorkDir, ConfigFileName)
	}

	if filepath.IsAbs(input.ConfigPath) {
		return input.ConfigPath
	}

	return filepath.Join(input.WorkDir, input.ConfigPath)
}

// FormatConfig renders cfg as indented JSON.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format config: %w", err)
	}

	return string(data), nil
}

// globalConfigPath returns the path to the global config file.
// Returns empty string if home directory cannot be determined.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "flagskin", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "flagskin", "config.json")
	}

	return ""
}

// defaultCacheDir mirrors globalConfigPath for the XDG cache directory.
func defaultCacheDir(env map[string]string, workDir string) string {
	if xdgCache := env["XDG_CACHE_HOME"]; xdgCache != "" {
		return filepath.Join(xdgCache, "flagskin", "textures")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".cache", "flagskin", "textures")
	}

	return filepath.Join(workDir, ".flagskin-cache")
}

// fileConfig is a config file as written. Absent keys stay nil so they do
// not override lower layers.
type fileConfig struct {
	Enabled             *bool              `json:"enabled"`
	UseCache            *bool              `json:"use_cache"`
	Debug               *bool              `json:"debug"`
	CacheDir            *string            `json:"cache_dir"`
	NeutralDiscriminant *int               `json:"neutral_discriminant"`
	Factions            fileFactionsConfig `json:"factions"`
}

type fileFactionsConfig struct {
	Sorcerer fileFactionConfig `json:"sorcerer"`
	Warlock  fileFactionConfig `json:"warlock"`
	Neutral  fileFactionConfig `json:"neutral"`
}

type fileFactionConfig struct {
	Color     *string `json:"color"`
	ImagePath *string `json:"image_path"`
	ImageURL  *string `json:"image_url"`
}

func (o fileConfig) mergeInto(base Config) Config {
	setIf(&base.Enabled, o.Enabled)
	setIf(&base.UseCache, o.UseCache)
	setIf(&base.Debug, o.Debug)
	setIf(&base.CacheDir, o.CacheDir)
	setIf(&base.NeutralDiscriminant, o.NeutralDiscriminant)

	for f, fo := range map[Faction]fileFactionConfig{
		Sorcerer: o.Factions.Sorcerer,
		Warlock:  o.Factions.Warlock,
		Neutral:  o.Factions.Neutral,
	} {
		fc := base.Faction(f)
		setIf(&fc.Color, fo.Color)
		setIf(&fc.ImagePath, fo.ImagePath)
		setIf(&fc.ImageURL, fo.ImageURL)
	}

	return base
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// are reported as not loaded.
func loadConfigFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

// envConfig holds FLAGSKIN_* overrides. Unset variables stay nil.
type envConfig struct {
	Enabled             *bool   `env:"FLAGSKIN_ENABLED"`
	UseCache            *bool   `env:"FLAGSKIN_USE_CACHE"`
	Debug               *bool   `env:"FLAGSKIN_DEBUG"`
	CacheDir            *string `env:"FLAGSKIN_CACHE_DIR"`
	NeutralDiscriminant *int    `env:"FLAGSKIN_NEUTRAL_DISCRIMINANT"`
}

func parseEnvOverrides(environ map[string]string) (envConfig, error) {
	var cfg envConfig

	if environ == nil {
		environ = map[string]string{}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return envConfig{}, fmt.Errorf("%w: %w", ErrEnvInvalid, err)
	}

	return cfg, nil
}

// mergeInto applies the overrides and returns the names of the variables used.
func (o envConfig) mergeInto(base Config) (Config, []string) {
	var used []string

	track := func(name string, set bool) {
		if set {
			used = append(used, name)
		}
	}

	setIf(&base.Enabled, o.Enabled)
	track("FLAGSKIN_ENABLED", o.Enabled != nil)
	setIf(&base.UseCache, o.UseCache)
	track("FLAGSKIN_USE_CACHE", o.UseCache != nil)
	setIf(&base.Debug, o.Debug)
	track("FLAGSKIN_DEBUG", o.Debug != nil)
	setIf(&base.CacheDir, o.CacheDir)
	track("FLAGSKIN_CACHE_DIR", o.CacheDir != nil)
	setIf(&base.NeutralDiscriminant, o.NeutralDiscriminant)
	track("FLAGSKIN_NEUTRAL_DISCRIMINANT", o.NeutralDiscriminant != nil)

	return base, used
}
