// Package config loads the TOML settings shared by the CLI and the App:
// size ceilings, generator defaults, the script timeout and logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/chazu/glowform/pkg/channel"
	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/kernel"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the root of a glowform.toml file. Missing sections keep their
// defaults.
type Config struct {
	Limits  kernel.Limits `toml:"limits"`
	Tube    Tube          `toml:"tube"`
	Channel Channel       `toml:"channel"`
	Extrude Extrude       `toml:"extrude"`
	Engine  Engine        `toml:"engine"`
	Log     Log           `toml:"log"`
}

// Tube holds the swept tube defaults.
type Tube struct {
	Radius   float64 `toml:"radius"`
	Segments int     `toml:"segments"`
}

// Channel holds the U-channel profile and snap-fit defaults.
type Channel struct {
	Width          float64 `toml:"width"`
	WallThickness  float64 `toml:"wall_thickness"`
	WallHeight     float64 `toml:"wall_height"`
	FloorThickness float64 `toml:"floor_thickness"`
	CapThickness   float64 `toml:"cap_thickness"`
	Tolerance      float64 `toml:"tolerance"`
}

// Extrude holds the flat and raised part defaults.
type Extrude struct {
	Depth          float64 `toml:"depth"`
	BaseDepth      float64 `toml:"base_depth"`
	ReliefDepth    float64 `toml:"relief_depth"`
	CircleSegments int     `toml:"circle_segments"`
}

// Engine configures script evaluation.
type Engine struct {
	Timeout string `toml:"timeout"` // time.ParseDuration syntax
}

// Log configures the application logger.
type Log struct {
	Level   string `toml:"level"`
	Console bool   `toml:"console"` // human-readable output instead of JSON
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	def := design.DefaultDefaults()
	return &Config{
		Limits: kernel.DefaultLimits(),
		Tube:   Tube{Radius: def.TubeRadius, Segments: def.TubeSegments},
		Channel: Channel{
			Width:          def.Channel.Width,
			WallThickness:  def.Channel.WallThickness,
			WallHeight:     def.Channel.WallHeight,
			FloorThickness: def.Channel.FloorThickness,
			CapThickness:   def.Channel.CapThickness,
			Tolerance:      def.SnapTolerance,
		},
		Extrude: Extrude{
			Depth:          def.Depth,
			BaseDepth:      def.BaseDepth,
			ReliefDepth:    def.ReliefDepth,
			CircleSegments: def.CircleSegments,
		},
		Engine: Engine{Timeout: "5s"},
		Log:    Log{Level: "info", Console: true},
	}
}

// Load reads and validates the file at path. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are an error so typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return nil, fmt.Errorf("config: %s", sme.String())
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every value that cannot be clamped.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", name, v))
		}
	}
	nonNegative := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", name, v))
		}
	}

	for name, v := range map[string]int{
		"limits.max_path_points": c.Limits.MaxPathPoints,
		"limits.max_segments":    c.Limits.MaxSegments,
		"limits.max_triangles":   c.Limits.MaxTriangles,
		"limits.max_parts":       c.Limits.MaxParts,
	} {
		nonNegative(name, float64(v))
	}

	positive("tube.radius", c.Tube.Radius)
	if c.Tube.Segments < 3 {
		errs = append(errs, fmt.Errorf("tube.segments must be at least 3, got %d", c.Tube.Segments))
	}
	if c.Extrude.CircleSegments < 3 {
		errs = append(errs, fmt.Errorf("extrude.circle_segments must be at least 3, got %d", c.Extrude.CircleSegments))
	}
	if ceiling := c.Limits.MaxSegments; ceiling > 0 {
		if c.Tube.Segments > ceiling {
			errs = append(errs, fmt.Errorf("tube.segments %d exceeds limits.max_segments %d", c.Tube.Segments, ceiling))
		}
		if c.Extrude.CircleSegments > ceiling {
			errs = append(errs, fmt.Errorf("extrude.circle_segments %d exceeds limits.max_segments %d", c.Extrude.CircleSegments, ceiling))
		}
	}

	if err := c.profile().Valid(); err != nil {
		errs = append(errs, err)
	}
	nonNegative("channel.wall_thickness", c.Channel.WallThickness)
	nonNegative("channel.floor_thickness", c.Channel.FloorThickness)
	nonNegative("channel.cap_thickness", c.Channel.CapThickness)

	positive("extrude.depth", c.Extrude.Depth)
	positive("extrude.base_depth", c.Extrude.BaseDepth)
	positive("extrude.relief_depth", c.Extrude.ReliefDepth)

	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (c *Config) profile() channel.Profile {
	return channel.Profile{
		Width:          c.Channel.Width,
		WallThickness:  c.Channel.WallThickness,
		WallHeight:     c.Channel.WallHeight,
		FloorThickness: c.Channel.FloorThickness,
		CapThickness:   c.Channel.CapThickness,
	}
}

// Defaults converts the generator settings into design defaults.
func (c *Config) Defaults() design.Defaults {
	return design.Defaults{
		Depth:          c.Extrude.Depth,
		BaseDepth:      c.Extrude.BaseDepth,
		ReliefDepth:    c.Extrude.ReliefDepth,
		TubeRadius:     c.Tube.Radius,
		TubeSegments:   c.Tube.Segments,
		CircleSegments: c.Extrude.CircleSegments,
		Channel:        c.profile(),
		SnapTolerance:  c.Channel.Tolerance,
	}
}

// Timeout returns the script evaluation limit.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("engine.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("engine.timeout must be positive, got %s", d)
	}
	return d, nil
}

// Level returns the configured log level.
func (c *Config) Level() (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger builds the application logger writing to w.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := c.Level()
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
