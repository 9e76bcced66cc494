// Package sim implements a simulated arm device. It holds the commanded pose in memory and emulates execution
// time by sleeping in proportion to the requested velocity. It never reports alarms.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/logging"
	"github.com/robotcell/dobot/spatialmath"
	"github.com/robotcell/dobot/utils"
)

const (
	// DefaultMaxPause is how long a move at 0% velocity takes.
	DefaultMaxPause = 5 * time.Second
	// DefaultHomeDuration is how long homing takes.
	DefaultHomeDuration = 2 * time.Second
)

// Config is used to construct a simulated device. Zero values select the defaults.
type Config struct {
	MaxPause     time.Duration
	HomeDuration time.Duration
	Revision     arm.Revision
	// Clock drives the simulated execution time; tests substitute a mock.
	Clock clock.Clock
}

// Device is the simulated arm.Device.
type Device struct {
	logger       logging.Logger
	clock        clock.Clock
	revision     arm.Revision
	maxPause     time.Duration
	homeDuration time.Duration

	closed atomic.Bool

	mu       sync.Mutex
	pose     spatialmath.Pose
	suction  bool
	homed    int
	commands int
}

// NewDevice returns a simulated device resting at the local origin with the revision's tool orientation.
func NewDevice(conf Config, logger logging.Logger) *Device {
	d := &Device{
		logger:       logger,
		clock:        conf.Clock,
		revision:     conf.Revision,
		maxPause:     conf.MaxPause,
		homeDuration: conf.HomeDuration,
	}
	if d.clock == nil {
		d.clock = clock.New()
	}
	if d.revision.Name == "" {
		d.revision = arm.RevisionV2
	}
	if d.maxPause <= 0 {
		d.maxPause = DefaultMaxPause
	}
	if d.homeDuration <= 0 {
		d.homeDuration = DefaultHomeDuration
	}
	d.pose = spatialmath.NewPoseFromOrientation(spatialmath.OrientationFromYaw(0, d.revision.Tilt))
	return d
}

// MoveDuration is the simulated execution time of a move: MaxPause at 0% velocity falling linearly to none at 100%.
func (d *Device) MoveDuration(velocity float64) time.Duration {
	return time.Duration(utils.ScaleByPct(float64(d.maxPause), 100-velocity))
}

// CurrentPose returns the last commanded pose.
func (d *Device) CurrentPose(ctx context.Context) (spatialmath.Pose, error) {
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pose, nil
}

// CurrentJoints returns the revision's joints, all zero; the simulation has no kinematics.
func (d *Device) CurrentJoints(ctx context.Context) ([]arm.Joint, error) {
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	return d.revision.ZeroJoints(), nil
}

// Faults is always empty.
func (d *Device) Faults(ctx context.Context) (arm.FaultState, error) {
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	return arm.FaultState{}, nil
}

// ClearFaults has nothing to clear.
func (d *Device) ClearFaults(ctx context.Context) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	return nil
}

// Home waits for the homing duration.
func (d *Device) Home(ctx context.Context) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	d.logger.Debugw("simulating homing", "duration", d.homeDuration)
	if err := d.sleep(ctx, d.homeDuration); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.homed++
	return nil
}

// Move waits for the simulated execution time and then stores the pose as current. The request is expected to
// have been validated by the caller. A cancelled move leaves the pose unchanged.
func (d *Device) Move(ctx context.Context, local spatialmath.Pose, mode arm.MoveMode, velocity, acceleration float64) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	dur := d.MoveDuration(velocity)
	d.logger.Debugw("simulating move", "mode", mode, "velocity", velocity, "acceleration", acceleration, "duration", dur)
	if err := d.sleep(ctx, dur); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pose = local
	d.commands++
	return nil
}

// SetEndEffector records the suction state.
func (d *Device) SetEndEffector(ctx context.Context, active bool) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suction = active
	return nil
}

// EndEffectorActive reports the last suction state set.
func (d *Device) EndEffectorActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suction
}

// Close marks the device closed.
func (d *Device) Close(ctx context.Context) error {
	d.closed.Store(true)
	return nil
}

func (d *Device) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	timer := d.clock.Timer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
