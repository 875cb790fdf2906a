// internal/config/config.go
//
// This package handles configuration and the .classicquest directory.
// Every directory classicquest runs in gets a .classicquest/ folder holding
// the config file, logs and shopping-list exports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the directory we create in each working directory
	StateDirName = ".classicquest"

	// Environment overrides. They win over config.yaml; the process
	// environment wins over .classicquest/.env.
	EnvDataset  = "CLASSICQUEST_DATASET"
	EnvIcons    = "CLASSICQUEST_ICONS"
	EnvLogLevel = "CLASSICQUEST_LOG_LEVEL"
)

const defaultProjectConfigYAML = `# classicquest configuration
version: 1

# Recipe dataset. Leave path empty to use the bundled enchanting recipes.
# format: auto | json | csv
dataset:
  path: ""
  format: auto

# Reagent icons are fetched from the wiki tooltip service. Set enabled: false
# to work fully offline; reagents then show "no image".
icons:
  enabled: true
  tooltip_url: https://nether.wowhead.com/classic/tooltip/item/%d
  image_url: https://wow.zamimg.com/images/wow/icons/large/%s.jpg
  timeout: 5s
  retries: 2
  concurrency: 4
  cache_size: 256
  cache_ttl: 1h

links:
  spell_url: https://www.wowhead.com/classic/spell=%d

logging:
  level: info
`

// DatasetConfig locates the recipe dataset.
type DatasetConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format" validate:"oneof=auto json csv"`
}

// IconsConfig tunes reagent icon enrichment.
type IconsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	TooltipURL  string        `yaml:"tooltip_url" validate:"required,contains=%d"`
	ImageURL    string        `yaml:"image_url" validate:"required,contains=%s"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=0"`
	Retries     int           `yaml:"retries" validate:"min=0,max=10"`
	Concurrency int           `yaml:"concurrency" validate:"min=1,max=32"`
	CacheSize   int           `yaml:"cache_size" validate:"min=1,max=100000"`
	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"min=0"`
}

// LinksConfig holds external page patterns.
type LinksConfig struct {
	SpellURL string `yaml:"spell_url" validate:"required,contains=%d"`
}

// LoggingConfig selects the diagnostic log level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ProjectConfig models .classicquest/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version" validate:"min=1"`
	Dataset DatasetConfig `yaml:"dataset"`
	Icons   IconsConfig   `yaml:"icons"`
	Links   LinksConfig   `yaml:"links"`
	Logging LoggingConfig `yaml:"logging"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory classicquest was started from
	ProjectDir string

	// StateDir is ProjectDir/.classicquest
	StateDir string

	Project ProjectConfig
}

// InitStateDir creates the .classicquest directory structure in projectDir
// and writes a commented default config when none exists.
//
// Structure created:
// .classicquest/
// ├── config.yaml
// ├── logs/       <- journey.log and classicquest.log
// └── exports/    <- shopping list spreadsheets
func InitStateDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, StateDirName)
	for _, dir := range []string{
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, "exports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// NewConfig loads config.yaml (defaults when missing) and applies
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, StateDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ExportsDir returns the directory shopping lists are exported to
func (c *Config) ExportsDir() string {
	return filepath.Join(c.StateDir, "exports")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// EnvPath returns the optional dotenv override file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.StateDir, ".env")
}

// DatasetPath returns the configured dataset path, resolved against the
// project directory. Empty means the bundled dataset.
func (c *Config) DatasetPath() string {
	return resolvePath(c.ProjectDir, c.Project.Dataset.Path)
}

// SetDatasetPath overrides the dataset for this run without persisting it.
func (c *Config) SetDatasetPath(path string) {
	c.Project.Dataset.Path = strings.TrimSpace(path)
}

// DisableIcons turns enrichment off for this run without persisting it.
func (c *Config) DisableIcons() {
	c.Project.Icons.Enabled = false
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() error {
	values, err := godotenv.Read(c.EnvPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", c.EnvPath(), err)
		}
		values = map[string]string{}
	}
	for _, key := range []string{EnvDataset, EnvIcons, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	if v, ok := values[EnvDataset]; ok {
		c.Project.Dataset.Path = strings.TrimSpace(v)
	}
	if v, ok := values[EnvIcons]; ok {
		enabled, err := parseSwitch(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvIcons, err)
		}
		c.Project.Icons.Enabled = enabled
	}
	if v, ok := values[EnvLogLevel]; ok {
		c.Project.Logging.Level = v
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Dataset: DatasetConfig{Format: "auto"},
		Icons: IconsConfig{
			Enabled:     true,
			TooltipURL:  "https://nether.wowhead.com/classic/tooltip/item/%d",
			ImageURL:    "https://wow.zamimg.com/images/wow/icons/large/%s.jpg",
			Timeout:     5 * time.Second,
			Retries:     2,
			Concurrency: 4,
			CacheSize:   256,
			CacheTTL:    time.Hour,
		},
		Links:   LinksConfig{SpellURL: "https://www.wowhead.com/classic/spell=%d"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	def := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = def.Version
	}
	if strings.TrimSpace(pc.Dataset.Format) == "" {
		pc.Dataset.Format = def.Dataset.Format
	}
	if strings.TrimSpace(pc.Icons.TooltipURL) == "" {
		pc.Icons.TooltipURL = def.Icons.TooltipURL
	}
	if strings.TrimSpace(pc.Icons.ImageURL) == "" {
		pc.Icons.ImageURL = def.Icons.ImageURL
	}
	if pc.Icons.Concurrency == 0 {
		pc.Icons.Concurrency = def.Icons.Concurrency
	}
	if pc.Icons.CacheSize == 0 {
		pc.Icons.CacheSize = def.Icons.CacheSize
	}
	if strings.TrimSpace(pc.Links.SpellURL) == "" {
		pc.Links.SpellURL = def.Links.SpellURL
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = def.Logging.Level
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Dataset.Path = strings.TrimSpace(pc.Dataset.Path)
	pc.Dataset.Format = strings.ToLower(strings.TrimSpace(pc.Dataset.Format))
	pc.Icons.TooltipURL = strings.TrimSpace(pc.Icons.TooltipURL)
	pc.Icons.ImageURL = strings.TrimSpace(pc.Icons.ImageURL)
	pc.Links.SpellURL = strings.TrimSpace(pc.Links.SpellURL)
	level := strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	if level == "warning" {
		level = "warn"
	}
	pc.Logging.Level = level
}

var validate = validator.New()

func (pc *ProjectConfig) validate() error {
	if err := validate.Struct(pc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
