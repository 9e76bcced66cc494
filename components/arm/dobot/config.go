package dobot

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/components/arm/magician"
)

const (
	// DefaultPort is the udev alias of the arm's serial adapter.
	DefaultPort = "/dev/dobot"
	// DefaultCommandTimeout bounds a single queued command.
	DefaultCommandTimeout = time.Minute
)

// Config describes how to reach the arm.
type Config struct {
	Port            string `json:"port,omitempty"`
	CalibrateOnInit bool   `json:"calibrate_on_init,omitempty"`
	Simulator       bool   `json:"simulator,omitempty"`
	Revision        string `json:"revision,omitempty"`
	BaudRate        int    `json:"baud_rate,omitempty"`
	// CommandTimeout of zero waits for commands without a bound; unset uses DefaultCommandTimeout.
	CommandTimeout  *time.Duration `json:"command_timeout,omitempty"`
	SimMaxPause     time.Duration  `json:"sim_max_pause,omitempty"`
	SimHomeDuration time.Duration  `json:"sim_home_duration,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if _, err := conf.HardwareRevision(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if conf.BaudRate < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("baud_rate must be positive, got %d", conf.BaudRate))
	}
	if conf.CommandTimeout != nil && *conf.CommandTimeout < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("command_timeout must not be negative, got %v", *conf.CommandTimeout))
	}
	if conf.SimMaxPause < 0 || conf.SimHomeDuration < 0 {
		return utils.NewConfigValidationError(path, errors.New("simulator durations must not be negative"))
	}
	return nil
}

func (conf *Config) port() string {
	if conf.Port == "" {
		return DefaultPort
	}
	return conf.Port
}

func (conf *Config) revision() string {
	if conf.Revision == "" {
		return arm.RevisionV2.Name
	}
	return conf.Revision
}

// HardwareRevision returns the configured hardware revision.
func (conf *Config) HardwareRevision() (arm.Revision, error) {
	return arm.RevisionByName(conf.revision())
}

func (conf *Config) baudRate() int {
	if conf.BaudRate == 0 {
		return magician.DefaultBaudRate
	}
	return conf.BaudRate
}

func (conf *Config) commandTimeout() time.Duration {
	if conf.CommandTimeout == nil {
		return DefaultCommandTimeout
	}
	return *conf.CommandTimeout
}
