// Package config loads the optional operator profile that supplies flag
// defaults. Flags and environment variables still take precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gookit/validate"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the profile is looked up.
const DefaultPath = "~/.funkctl/config.yaml"

// ErrInvalidProfile is returned when the profile fails validation.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile is the content of config.yaml. Every field is optional.
type Profile struct {
	Server     string        `yaml:"server" validate:"fullUrl"`
	SessionDir string        `yaml:"session_dir"`
	CacheDir   string        `yaml:"cache_dir"`
	Interval   time.Duration `yaml:"interval" validate:"min:0"`
	Timeout    time.Duration `yaml:"timeout" validate:"min:0"`
	Limit      int           `yaml:"limit" validate:"min:0|max:100"`
	Debug      bool          `yaml:"debug"`
}

// Parse decodes and validates a profile.
func Parse(r io.Reader) (*Profile, error) {
	var p Profile
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	v := validate.Struct(&p)
	if !v.Validate() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProfile, v.Errors.One())
	}

	return &p, nil
}

// Values returns the profile as flag name to value, omitting unset fields.
func (p *Profile) Values() map[string]string {
	values := make(map[string]string)
	set := func(name, value string) {
		if value != "" {
			values[name] = value
		}
	}

	set("server", p.Server)
	set("session-dir", p.SessionDir)
	set("cache-dir", p.CacheDir)
	if p.Interval > 0 {
		set("interval", p.Interval.String())
	}
	if p.Timeout > 0 {
		set("timeout", p.Timeout.String())
	}
	if p.Limit > 0 {
		set("limit", strconv.Itoa(p.Limit))
	}
	if p.Debug {
		set("debug", "true")
	}

	return values
}

// Loader is a kong.ConfigurationLoader for YAML profiles.
func Loader(r io.Reader) (kong.Resolver, error) {
	p, err := Parse(r)
	if err != nil {
		return nil, err
	}

	values := p.Values()
	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		if v, ok := values[flag.Name]; ok {
			return v, nil
		}
		if v, ok := values[strings.ReplaceAll(flag.Name, "_", "-")]; ok {
			return v, nil
		}
		return nil, nil
	}), nil
}
