package core

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/devblok/torero/sched"
	"github.com/gobuffalo/envy"
	yaml "github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables overriding the configuration file
const (
	EnvWorkers  = "TORERO_WORKERS"
	EnvAssets   = "TORERO_ASSETS"
	EnvArchive  = "TORERO_ARCHIVE"
	EnvLogLevel = "TORERO_LOG_LEVEL"
)

// MaxFramesPerSecond caps the configured frame rate
const MaxFramesPerSecond = 1000

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time      TimeConfiguration      `yaml:"time" toml:"time"`
	Scheduler SchedulerConfiguration `yaml:"scheduler" toml:"scheduler"`
	Window    WindowConfiguration    `yaml:"window" toml:"window"`
	Assets    AssetsConfiguration    `yaml:"assets" toml:"assets"`
	Log       LogConfiguration       `yaml:"log" toml:"log"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `yaml:"frames_per_second" toml:"frames_per_second"`

	// EventPollDelay is the wait in milliseconds for new events
	// while resources are still loading
	EventPollDelay int `yaml:"event_poll_delay" toml:"event_poll_delay"`
}

// SchedulerConfiguration sizes the loading worker pool
type SchedulerConfiguration struct {
	// Workers, when 0, is detected from the available processors
	Workers int `yaml:"workers" toml:"workers"`
}

// WindowConfiguration is used to configure the window
type WindowConfiguration struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

// AssetsConfiguration tells where resources are read from
type AssetsConfiguration struct {
	Directory string `yaml:"directory" toml:"directory"`

	// Archive is an optional kar file searched after the directory
	Archive string `yaml:"archive" toml:"archive"`
}

// LogConfiguration is used to configure logging
type LogConfiguration struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfiguration returns the values used for anything
// the configuration file leaves out
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  16,
		},
		Window: WindowConfiguration{
			Width:  800,
			Height: 600,
			Title:  "Torero",
		},
		Assets: AssetsConfiguration{
			Directory: "assets",
		},
		Log: LogConfiguration{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfiguration reads the YAML, or TOML when its extension says
// so, file at path over the defaults,
// applies the environment overrides and clamps the result. An empty
// path yields the defaults.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, err
		}

		unmarshal := yaml.Unmarshal
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			unmarshal = toml.Unmarshal
		}
		if err := unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("configuration %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}
	cfg.clamp()
	return cfg, nil
}

// LoadEnvFiles loads .env style files into the environment used for
// overrides. Variables already set win over the files, missing files
// are ignored.
func LoadEnvFiles(files ...string) error {
	set := envy.Map()
	for _, f := range files {
		values, err := godotenv.Read(f)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return fmt.Errorf("env file %s: %w", f, err)
		}
		for k, v := range values {
			if _, ok := set[k]; !ok {
				envy.Set(k, v)
			}
		}
	}
	return nil
}

func (c *Configuration) applyEnvironment() error {
	if v, err := envy.MustGet(EnvWorkers); err == nil {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Scheduler.Workers = workers
	}
	c.Assets.Directory = envy.Get(EnvAssets, c.Assets.Directory)
	c.Assets.Archive = envy.Get(EnvArchive, c.Assets.Archive)
	c.Log.Level = envy.Get(EnvLogLevel, c.Log.Level)
	return nil
}

// sanity clamps
func (c *Configuration) clamp() {
	def := DefaultConfiguration()
	if c.Time.FramesPerSecond < 0 {
		c.Time.FramesPerSecond = 0
	} else if c.Time.FramesPerSecond > MaxFramesPerSecond {
		c.Time.FramesPerSecond = MaxFramesPerSecond
	}
	if c.Time.EventPollDelay <= 0 {
		c.Time.EventPollDelay = def.Time.EventPollDelay
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = sched.DetectCapacity()
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = def.Window.Width, def.Window.Height
	}
	if c.Window.Title == "" {
		c.Window.Title = def.Window.Title
	}
	if c.Assets.Directory == "" {
		c.Assets.Directory = def.Assets.Directory
	}
}
