// Package config reads the JSON description of a workcell: its arms, where they are mounted and how to reach them.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"time"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.viam.com/utils"
)

// Config is a workcell configuration.
type Config struct {
	Components []Component `json:"components"`
}

// AttributeMap holds the model specific settings of a component.
type AttributeMap map[string]interface{}

// Has returns whether or not the given name is in the map.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// String returns the attribute as a string, or "" when it is missing.
func (am AttributeMap) String(name string) string {
	if am == nil {
		return ""
	}
	return cast.ToString(am[name])
}

// Bool returns the attribute as a bool, or def when it is missing or not a boolean.
func (am AttributeMap) Bool(name string, def bool) bool {
	if !am.Has(name) {
		return def
	}
	v, err := cast.ToBoolE(am[name])
	if err != nil {
		return def
	}
	return v
}

// Component is one configured device.
type Component struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	Pose       *PoseConfig  `json:"pose,omitempty"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	seen := map[string]struct{}{}
	for idx, cmp := range c.Components {
		path := "components." + cmp.Name
		if cmp.Name == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "name")
		}
		if _, ok := seen[cmp.Name]; ok {
			return utils.NewConfigValidationError(path, errors.Errorf("duplicate component name at index %d", idx))
		}
		seen[cmp.Name] = struct{}{}
		if cmp.Pose != nil {
			if _, err := cmp.Pose.Pose(); err != nil {
				return utils.NewConfigValidationError(path+".pose", err)
			}
		}
	}
	return nil
}

// FindComponent returns the component with the given name.
func (c *Config) FindComponent(name string) (*Component, error) {
	for i := range c.Components {
		if c.Components[i].Name == name {
			return &c.Components[i], nil
		}
	}
	return nil, errors.Errorf("no component named %q", name)
}

// Read reads a config from the given file, substituting environment variables first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DecodeAttributes converts attributes into the model's typed config. Keys follow the target's json tags,
// scalar types are converted where unambiguous and durations must be written as strings like "30s".
func DecodeAttributes(attrs AttributeMap, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numericDurationHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(map[string]interface{}(attrs)), "decoding attributes")
}

var durationType = reflect.TypeOf(time.Duration(0))

// numericDurationHookFunc refuses bare numbers for durations, which would otherwise decode as nanoseconds.
func numericDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return nil, errors.Errorf("duration %v has no unit, write it as a string such as \"%vs\"", data, data)
		default:
			return data, nil
		}
	}
}
