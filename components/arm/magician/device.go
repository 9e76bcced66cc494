// Package magician drives a Dobot Magician over its USB serial link.
//
// Commands that move the arm go through the firmware's command queue. Each queued command returns its queue
// index and the driver polls the index the firmware is executing until the command has completed.
package magician

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/logging"
	"github.com/robotcell/dobot/operation"
	"github.com/robotcell/dobot/serial"
	"github.com/robotcell/dobot/spatialmath"
	"github.com/robotcell/dobot/utils"
)

const (
	// DefaultBaudRate is the Magician's fixed serial speed.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single response read.
	DefaultReadTimeout = time.Second
	// DefaultPollInterval is how often the executing queue index is read while waiting.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultCommandRate caps the frames per second sent to the firmware.
	DefaultCommandRate = 100

	commandBurst = 4

	// cartesian velocity and acceleration limits the ratios of SetPTPCommonParams scale, mm/s and mm/s^2.
	coordinateVelocity     = 200.0
	coordinateAcceleration = 200.0
)

// Config is used to connect to a Magician.
type Config struct {
	Port     string
	BaudRate int
	Revision arm.Revision
	// CommandTimeout bounds the wait for a queued command; zero waits until ctx is done.
	CommandTimeout time.Duration
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	// CommandRate is the most frames per second sent to the arm, polls included.
	CommandRate float64
	// HomeOnInit runs the homing procedure once connected.
	HomeOnInit bool
}

// Device is an arm.Device talking to the Magician firmware.
type Device struct {
	logger         logging.Logger
	port           io.ReadWriteCloser
	portName       string
	reader         *packetReader
	revision       arm.Revision
	commandTimeout time.Duration
	pollInterval   time.Duration
	limiter        *rate.Limiter

	mu    sync.Mutex // serializes request/response exchanges
	opMgr operation.SingleOperationManager

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewDevice opens the serial port and prepares the command queue. Failure to open the port or to get an answer
// from the arm returns an *arm.ConnectionError.
func NewDevice(ctx context.Context, conf Config, logger logging.Logger) (*Device, error) {
	if conf.BaudRate == 0 {
		conf.BaudRate = DefaultBaudRate
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = DefaultPollInterval
	}
	if conf.CommandRate <= 0 {
		conf.CommandRate = DefaultCommandRate
	}
	if conf.Revision.Name == "" {
		conf.Revision = arm.RevisionV2
	}

	port, err := serial.Open(conf.Port, serial.Options{BaudRate: conf.BaudRate, ReadTimeout: conf.ReadTimeout})
	if err != nil {
		return nil, &arm.ConnectionError{Port: conf.Port, Err: err}
	}

	d := &Device{
		logger:         logger,
		port:           port,
		portName:       conf.Port,
		reader:         newPacketReader(port),
		revision:       conf.Revision,
		commandTimeout: conf.CommandTimeout,
		pollInterval:   conf.PollInterval,
		limiter:        rate.NewLimiter(rate.Limit(conf.CommandRate), commandBurst),
	}

	if err := d.init(ctx); err != nil {
		return nil, &arm.ConnectionError{Port: conf.Port, Err: multierr.Combine(err, d.Close(ctx))}
	}
	logger.Infow("connected to magician", "port", conf.Port, "revision", conf.Revision.Name)

	if conf.HomeOnInit {
		if err := d.Home(ctx); err != nil {
			return nil, multierr.Combine(errors.Wrap(err, "homing on init"), d.Close(ctx))
		}
	}
	return d, nil
}

func (d *Device) init(ctx context.Context) error {
	if _, err := d.request(ctx, Packet{ID: CmdSetQueuedCmdClear, Ctrl: CtrlWrite}); err != nil {
		return err
	}
	if _, err := d.request(ctx, Packet{ID: CmdSetQueuedCmdStartExec, Ctrl: CtrlWrite}); err != nil {
		return err
	}
	_, err := d.queue(ctx, Packet{
		ID:     CmdSetPTPCoordinateParams,
		Params: appendFloat32s(nil, coordinateVelocity, coordinateVelocity, coordinateAcceleration, coordinateAcceleration),
	})
	return err
}

// request sends p and returns the arm's answer to it.
func (d *Device) request(ctx context.Context, p Packet) (Packet, error) {
	if d.closed.Load() {
		return Packet{}, arm.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}
	buf, err := p.MarshalBinary()
	if err != nil {
		return Packet{}, err
	}
	if err := d.pace(ctx); err != nil {
		return Packet{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.port.Write(buf); err != nil {
		return Packet{}, errors.Wrapf(err, "writing %v", p.ID)
	}
	for {
		resp, err := d.reader.ReadPacket()
		if err != nil {
			d.reader.Reset(d.port)
			return Packet{}, errors.Wrapf(err, "reading %v response", p.ID)
		}
		if resp.ID == p.ID {
			return resp, nil
		}
		d.logger.Debugw("dropping unexpected packet", "got", resp.ID, "want", p.ID)
	}
}

// pace waits for the limiter to allow the next frame.
func (d *Device) pace(ctx context.Context) error {
	if err := d.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Wait fails early when the next slot lies past the deadline.
		return errors.Wrap(context.DeadlineExceeded, err.Error())
	}
	return nil
}

// queue sends p as a queued write and returns its queue index.
func (d *Device) queue(ctx context.Context, p Packet) (uint64, error) {
	p.Ctrl = CtrlWrite | CtrlQueued
	resp, err := d.request(ctx, p)
	if err != nil {
		return 0, err
	}
	return decodeQueuedIndex(resp.Params)
}

func (d *Device) currentIndex(ctx context.Context) (uint64, error) {
	resp, err := d.request(ctx, Packet{ID: CmdGetQueuedCmdCurrentIndex, Ctrl: CtrlRead})
	if err != nil {
		return 0, err
	}
	return decodeQueuedIndex(resp.Params)
}

// waitForIndex blocks until the firmware has executed the queued command idx.
func (d *Device) waitForIndex(ctx context.Context, idx uint64, what string) error {
	if d.commandTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, d.commandTimeout)
		defer cancel()
	}
	err := d.opMgr.WaitForSuccess(ctx, d.pollInterval, func(ctx context.Context) (bool, error) {
		current, err := d.currentIndex(ctx)
		if err != nil {
			return false, err
		}
		return current >= idx, nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(err, "%s did not complete within %v", what, d.commandTimeout)
	}
	return err
}

// getPose returns x, y, z in mm, r in degrees and the four raw axis angles in degrees.
func (d *Device) getPose(ctx context.Context) ([]float64, error) {
	resp, err := d.request(ctx, Packet{ID: CmdGetPose, Ctrl: CtrlRead})
	if err != nil {
		return nil, err
	}
	return decodeFloat32s(resp.Params, 8)
}

// CurrentPose returns the tool pose in the robot-local frame.
func (d *Device) CurrentPose(ctx context.Context) (spatialmath.Pose, error) {
	vals, err := d.getPose(ctx)
	if err != nil {
		return nil, err
	}
	pt := r3.Vector{X: utils.MMToMeters(vals[0]), Y: utils.MMToMeters(vals[1]), Z: utils.MMToMeters(vals[2])}
	return spatialmath.NewPose(pt, spatialmath.OrientationFromYaw(utils.DegToRad(vals[3]), d.revision.Tilt)), nil
}

// CurrentJoints returns the five joints derived from the raw axis angles.
func (d *Device) CurrentJoints(ctx context.Context) ([]arm.Joint, error) {
	vals, err := d.getPose(ctx)
	if err != nil {
		return nil, err
	}
	return d.revision.Couple(arm.RawJoints{J1: vals[4], J2: vals[5], J3: vals[6], J4: vals[7]}), nil
}

// Faults reads the alarm bitmap.
func (d *Device) Faults(ctx context.Context) (arm.FaultState, error) {
	resp, err := d.request(ctx, Packet{ID: CmdGetAlarmsState, Ctrl: CtrlRead})
	if err != nil {
		return nil, err
	}
	return arm.FaultStateFromBitmap(resp.Params), nil
}

// ClearFaults resets all alarms.
func (d *Device) ClearFaults(ctx context.Context) error {
	_, err := d.request(ctx, Packet{ID: CmdClearAllAlarmsState, Ctrl: CtrlWrite})
	return err
}

// Home queues the homing procedure and waits for it.
func (d *Device) Home(ctx context.Context) error {
	idx, err := d.queue(ctx, Packet{ID: CmdSetHOMECmd, Params: make([]byte, 4)})
	if err != nil {
		return err
	}
	return d.waitForIndex(ctx, idx, "homing")
}

// Move sets the velocity and acceleration ratios and queues a point to point move to the local pose.
func (d *Device) Move(ctx context.Context, local spatialmath.Pose, mode arm.MoveMode, velocity, acceleration float64) error {
	if _, err := d.queue(ctx, Packet{ID: CmdSetPTPCommonParams, Params: appendFloat32s(nil, velocity, acceleration)}); err != nil {
		return err
	}

	pt := local.Point()
	r := utils.RadToDeg(spatialmath.ToolYawOf(local.Orientation(), d.revision.Tilt))
	params := appendFloat32s([]byte{byte(mode)}, utils.MetersToMM(pt.X), utils.MetersToMM(pt.Y), utils.MetersToMM(pt.Z), r)
	idx, err := d.queue(ctx, Packet{ID: CmdSetPTPCmd, Params: params})
	if err != nil {
		return err
	}
	d.logger.Debugw("queued move", "index", idx, "mode", mode, "x", pt.X, "y", pt.Y, "z", pt.Z, "r", r)
	return d.waitForIndex(ctx, idx, "move")
}

// SetEndEffector switches the suction cup.
func (d *Device) SetEndEffector(ctx context.Context, active bool) error {
	idx, err := d.queue(ctx, Packet{ID: CmdSetEndEffectorSuctionCup, Params: []byte{1, boolByte(active)}})
	if err != nil {
		return err
	}
	return d.waitForIndex(ctx, idx, "suction")
}

// Stop abandons the command being waited for, aborts the queue and re-enables execution for later commands.
func (d *Device) Stop(ctx context.Context) error {
	d.opMgr.CancelRunning(ctx)
	for _, id := range []CommandID{CmdSetQueuedCmdForceStopExec, CmdSetQueuedCmdClear, CmdSetQueuedCmdStartExec} {
		if _, err := d.request(ctx, Packet{ID: id, Ctrl: CtrlWrite}); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the serial port. Only the first call closes it.
func (d *Device) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closeErr = d.port.Close()
		d.logger.Debugw("closed magician connection", "port", d.portName)
	})
	return d.closeErr
}
