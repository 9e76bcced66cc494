// Package dobot implements the motion dispatcher of a Dobot Magician: it takes world frame requests, checks them
// and the arm's alarms, transforms them into the arm's own frame and runs them on a physical or simulated device.
package dobot

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/components/arm/magician"
	"github.com/robotcell/dobot/components/arm/sim"
	"github.com/robotcell/dobot/logging"
	"github.com/robotcell/dobot/operation"
	"github.com/robotcell/dobot/spatialmath"
)

// DefaultEndEffector is the id of the suction cup, the arm's only end effector.
const DefaultEndEffector = "default"

// State is the dispatcher's view of the arm.
type State int32

// The dispatcher states.
const (
	StateIdle State = iota
	StateMoving
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Dobot dispatches commands to one arm. Commands are serialized; a command issued while another runs waits for it.
type Dobot struct {
	name   string
	mount  spatialmath.Pose
	device arm.Device
	logger logging.Logger

	state atomic.Int32
	// mu is held for the whole of a command.
	mu    sync.Mutex
	opMgr operation.SingleOperationManager

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	cleanup   runtime.Cleanup
}

// New connects to the arm described by conf, or starts a simulation of it, and homes it if asked to.
func New(ctx context.Context, name string, mount spatialmath.Pose, conf *Config, logger logging.Logger) (*Dobot, error) {
	if conf == nil {
		conf = &Config{}
	}
	if err := conf.Validate(name); err != nil {
		return nil, err
	}
	rev, err := conf.HardwareRevision()
	if err != nil {
		return nil, err
	}

	var dev arm.Device
	if conf.Simulator {
		dev = sim.NewDevice(sim.Config{
			MaxPause:     conf.SimMaxPause,
			HomeDuration: conf.SimHomeDuration,
			Revision:     rev,
		}, logger.Sublogger("sim"))
	} else {
		dev, err = magician.NewDevice(ctx, magician.Config{
			Port:           conf.port(),
			BaudRate:       conf.baudRate(),
			Revision:       rev,
			CommandTimeout: conf.commandTimeout(),
		}, logger.Sublogger("magician"))
		if err != nil {
			return nil, err
		}
	}

	d := NewWithDevice(name, mount, dev, logger)
	if conf.CalibrateOnInit {
		if err := d.Home(ctx); err != nil {
			return nil, multierr.Combine(errors.Wrap(err, "calibrating on init"), d.Close(ctx))
		}
	}
	return d, nil
}

// NewWithDevice returns a dispatcher driving dev. A nil mount places the arm at the world origin.
func NewWithDevice(name string, mount spatialmath.Pose, dev arm.Device, logger logging.Logger) *Dobot {
	if mount == nil {
		mount = spatialmath.NewZeroPose()
	}
	d := &Dobot{
		name:   name,
		mount:  mount,
		device: dev,
		logger: logger,
	}
	d.cleanup = runtime.AddCleanup(d, func(dev arm.Device) {
		if err := dev.Close(context.Background()); err != nil {
			logger.Warnw("error closing unreachable arm device", "error", err)
		}
	}, dev)
	return d
}

// Name returns the arm's name.
func (d *Dobot) Name() string {
	return d.name
}

// Pose returns the mount pose of the arm's base in the world.
func (d *Dobot) Pose() spatialmath.Pose {
	return d.mount
}

// State returns the current dispatcher state.
func (d *Dobot) State() State {
	return State(d.state.Load())
}

func (d *Dobot) setState(s State) {
	d.state.Store(int32(s))
}

// IsMoving reports whether a command is executing on the device.
func (d *Dobot) IsMoving() bool {
	return d.State() == StateMoving
}

// command runs exec on the device once no other command is running and the arm reports no alarms.
func (d *Dobot) command(ctx context.Context, method string, exec func(ctx context.Context) error) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, done := d.opMgr.New(ctx, method)
	defer done()
	logger := d.logger
	if op := operation.Get(ctx); op != nil {
		logger = logger.WithFields("op", op.ID.String(), "method", method)
	}

	faults, err := d.device.Faults(ctx)
	if err != nil {
		d.setState(StateIdle)
		return arm.NewDeviceError(method, err)
	}
	if !faults.Empty() {
		d.setState(StateFaulted)
		logger.Warnw("arm has alarms, command not sent", "alarms", faults.Names())
		return &arm.HardwareAlarmError{Alarms: faults}
	}

	d.setState(StateMoving)
	logger.Debug("starting")
	err = exec(ctx)
	d.setState(StateIdle)
	if err != nil {
		if errors.Is(err, arm.ErrUnsupportedMoveType) {
			return err
		}
		logger.Warnw("command failed", "error", err)
		return arm.NewDeviceError(method, err)
	}
	logger.Debug("done")
	return nil
}

// Move moves the end effector to a world frame pose. Velocity and acceleration are percentages.
func (d *Dobot) Move(ctx context.Context, pose spatialmath.Pose, moveType MoveType, velocity, acceleration float64) error {
	return d.MoveTo(ctx, MoveRequest{Pose: pose, Type: moveType, Velocity: velocity, Acceleration: acceleration})
}

// MoveTo runs a move request.
func (d *Dobot) MoveTo(ctx context.Context, req MoveRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return d.command(ctx, "move", func(ctx context.Context) error {
		local := spatialmath.ToLocal(d.mount, req.Pose)
		mode, err := Encode(req.Type)
		if err != nil {
			return err
		}
		return d.device.Move(ctx, local, mode, req.Velocity, req.Acceleration)
	})
}

// MoveToPose moves the end effector linearly with speed in [0, 1] as a fraction of the maximum velocity.
func (d *Dobot) MoveToPose(ctx context.Context, endEffectorID string, pose spatialmath.Pose, speed float64) error {
	if err := checkEndEffector(endEffectorID); err != nil {
		return err
	}
	return d.Move(ctx, pose, MoveTypeLinear, speed*100, DefaultAcceleration)
}

// MoveToJoints is not supported; the arm only takes cartesian targets.
func (d *Dobot) MoveToJoints(ctx context.Context, joints []arm.Joint, speed float64) error {
	return arm.NewUnsupportedOperationError("MoveToJoints")
}

// Home runs the homing procedure.
func (d *Dobot) Home(ctx context.Context) error {
	return d.command(ctx, "home", d.device.Home)
}

// SetEndEffector switches the suction cup on or off.
func (d *Dobot) SetEndEffector(ctx context.Context, active bool) error {
	return d.command(ctx, "set_end_effector", func(ctx context.Context) error {
		return d.device.SetEndEffector(ctx, active)
	})
}

// Suck turns the suction on.
func (d *Dobot) Suck(ctx context.Context) error {
	return d.SetEndEffector(ctx, true)
}

// Release turns the suction off.
func (d *Dobot) Release(ctx context.Context) error {
	return d.SetEndEffector(ctx, false)
}

// EndEffectorPose returns the world frame pose of the end effector as reported by the device right now.
func (d *Dobot) EndEffectorPose(ctx context.Context, endEffectorID string) (spatialmath.Pose, error) {
	if err := checkEndEffector(endEffectorID); err != nil {
		return nil, err
	}
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	local, err := d.device.CurrentPose(ctx)
	if err != nil {
		return nil, arm.NewDeviceError("end_effector_pose", err)
	}
	return spatialmath.ToWorld(d.mount, local), nil
}

// JointPositions returns the five joints of the arm in radians.
func (d *Dobot) JointPositions(ctx context.Context) ([]arm.Joint, error) {
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	joints, err := d.device.CurrentJoints(ctx)
	if err != nil {
		return nil, arm.NewDeviceError("joint_positions", err)
	}
	return joints, nil
}

// Alarms returns the alarms active on the arm.
func (d *Dobot) Alarms(ctx context.Context) (arm.FaultState, error) {
	if d.closed.Load() {
		return nil, arm.ErrClosed
	}
	faults, err := d.device.Faults(ctx)
	if err != nil {
		return nil, arm.NewDeviceError("alarms", err)
	}
	return faults, nil
}

// ClearAlarms resets the arm's alarms. A faulted dispatcher becomes idle.
func (d *Dobot) ClearAlarms(ctx context.Context) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	fc, ok := d.device.(arm.FaultClearer)
	if !ok {
		return arm.NewUnsupportedOperationError("ClearAlarms")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := fc.ClearFaults(ctx); err != nil {
		return arm.NewDeviceError("clear_alarms", err)
	}
	d.state.CompareAndSwap(int32(StateFaulted), int32(StateIdle))
	d.logger.Info("alarms cleared")
	return nil
}

// Stop abandons the running command and, when the device supports it, aborts its motion.
func (d *Dobot) Stop(ctx context.Context) error {
	if d.closed.Load() {
		return arm.ErrClosed
	}
	d.opMgr.CancelRunning(ctx)
	if s, ok := d.device.(arm.Stopper); ok {
		if err := s.Stop(ctx); err != nil {
			return arm.NewDeviceError("stop", err)
		}
	}
	return nil
}

// EndEffectorIDs returns the ids of the arm's end effectors.
func (d *Dobot) EndEffectorIDs() []string {
	return []string{DefaultEndEffector}
}

// Grippers returns the ids of the arm's grippers; it has none.
func (d *Dobot) Grippers() []string {
	return []string{}
}

// Suctions returns the ids of the arm's suction cups.
func (d *Dobot) Suctions() []string {
	return []string{DefaultEndEffector}
}

// DynamicParams returns the allowed values of action parameters that depend on the arm.
func (d *Dobot) DynamicParams() map[string][]string {
	return map[string][]string{"end_effector_id": d.EndEffectorIDs()}
}

// Close releases the device. It is safe to call more than once.
func (d *Dobot) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.cleanup.Stop()
		d.opMgr.CancelRunning(ctx)
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closeErr = d.device.Close(ctx)
	})
	return d.closeErr
}

func checkEndEffector(id string) error {
	if !lo.Contains([]string{DefaultEndEffector}, id) {
		return errors.Wrapf(arm.ErrUnknownEndEffector, "%q", id)
	}
	return nil
}
