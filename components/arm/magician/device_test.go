package magician

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/logging"
	"github.com/robotcell/dobot/serial"
	"github.com/robotcell/dobot/spatialmath"
)

func newTestDevice(t *testing.T, f *fakeArm, conf Config) *Device {
	t.Helper()
	restore := f.install()
	t.Cleanup(restore)
	if conf.PollInterval == 0 {
		conf.PollInterval = time.Millisecond
	}
	d, err := NewDevice(context.Background(), conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, d.Close(context.Background()), test.ShouldBeNil) })
	f.reset()
	return d
}

func TestNewDevice(t *testing.T) {
	t.Run("port cannot be opened", func(t *testing.T) {
		old := serial.Open
		defer func() { serial.Open = old }()
		portErr := errors.New("no such file or directory")
		serial.Open = func(string, serial.Options) (io.ReadWriteCloser, error) {
			return nil, portErr
		}

		_, err := NewDevice(context.Background(), Config{Port: "/dev/missing"}, logging.NewTestLogger(t))
		var connErr *arm.ConnectionError
		test.That(t, errors.As(err, &connErr), test.ShouldBeTrue)
		test.That(t, connErr.Port, test.ShouldEqual, "/dev/missing")
		test.That(t, errors.Is(err, portErr), test.ShouldBeTrue)
	})

	t.Run("arm does not answer", func(t *testing.T) {
		f := newFakeArm()
		f.silent = true
		defer f.install()()

		_, err := NewDevice(context.Background(), Config{Port: "/dev/dobot"}, logging.NewTestLogger(t))
		var connErr *arm.ConnectionError
		test.That(t, errors.As(err, &connErr), test.ShouldBeTrue)
		test.That(t, errors.Is(err, ErrReadTimeout), test.ShouldBeTrue)
		test.That(t, f.closed, test.ShouldBeTrue)
	})

	t.Run("prepares the queue", func(t *testing.T) {
		f := newFakeArm()
		defer f.install()()

		d, err := NewDevice(context.Background(), Config{Port: "/dev/dobot"}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		defer d.Close(context.Background())

		sent := f.sent()
		test.That(t, f.sentIDs(), test.ShouldResemble, []CommandID{
			CmdSetQueuedCmdClear, CmdSetQueuedCmdStartExec, CmdSetPTPCoordinateParams,
		})
		test.That(t, sent[2].IsQueued(), test.ShouldBeTrue)
	})

	t.Run("homes on init", func(t *testing.T) {
		f := newFakeArm()
		defer f.install()()

		d, err := NewDevice(context.Background(), Config{HomeOnInit: true, PollInterval: time.Millisecond}, logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		defer d.Close(context.Background())
		test.That(t, f.sentIDs(), test.ShouldContain, CmdSetHOMECmd)
	})
}

func TestCurrentPoseAndJoints(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	f.pose = [8]float32{200, -100, 50, 90, 10, 20, 50, -30}

	t.Run("v2", func(t *testing.T) {
		d := newTestDevice(t, f, Config{Revision: arm.RevisionV2})

		pose, err := d.CurrentPose(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 0.2, Y: -0.1, Z: 0.05}, 1e-9), test.ShouldBeTrue)
		test.That(t, spatialmath.ToolYawOf(pose.Orientation(), math.Pi), test.ShouldAlmostEqual, math.Pi/2)

		joints, err := d.CurrentJoints(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, joints, test.ShouldHaveLength, 5)
		want := []float64{10, 20, 30, -30, -30}
		for i, j := range joints {
			test.That(t, j.Value, test.ShouldAlmostEqual, want[i]*math.Pi/180)
		}
	})

	t.Run("v1", func(t *testing.T) {
		d := newTestDevice(t, f, Config{Revision: arm.RevisionV1})

		pose, err := d.CurrentPose(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.YawOf(pose.Orientation()), test.ShouldAlmostEqual, math.Pi/2)

		joints, err := d.CurrentJoints(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, joints[3].Value, test.ShouldEqual, 0.)
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	d := newTestDevice(t, f, Config{Revision: arm.RevisionV2})

	target := spatialmath.NewPose(r3.Vector{X: 0.1, Y: 0.2, Z: -0.05}, spatialmath.OrientationFromYaw(0.5, math.Pi))
	test.That(t, d.Move(ctx, target, arm.MoveModeMovLXYZ, 30, 40), test.ShouldBeNil)

	sent := f.sent()
	test.That(t, sent[0].ID, test.ShouldEqual, CmdSetPTPCommonParams)
	test.That(t, sent[0].IsQueued(), test.ShouldBeTrue)
	ratios, err := decodeFloat32s(sent[0].Params, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ratios, test.ShouldResemble, []float64{30, 40})

	test.That(t, sent[1].ID, test.ShouldEqual, CmdSetPTPCmd)
	test.That(t, sent[1].Params[0], test.ShouldEqual, byte(arm.MoveModeMovLXYZ))
	vals, err := decodeFloat32s(sent[1].Params[1:], 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vals[0], test.ShouldAlmostEqual, 100, 1e-4)
	test.That(t, vals[1], test.ShouldAlmostEqual, 200, 1e-4)
	test.That(t, vals[2], test.ShouldAlmostEqual, -50, 1e-4)
	test.That(t, vals[3], test.ShouldAlmostEqual, 0.5*180/math.Pi, 1e-4)

	test.That(t, sent[len(sent)-1].ID, test.ShouldEqual, CmdGetQueuedCmdCurrentIndex)
}

func TestMoveWaitsForExecution(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	f.stepwise = true
	d := newTestDevice(t, f, Config{})

	test.That(t, d.Move(ctx, spatialmath.NewZeroPose(), arm.MoveModeJumpXYZ, 50, 50), test.ShouldBeNil)

	polls := 0
	for _, id := range f.sentIDs() {
		if id == CmdGetQueuedCmdCurrentIndex {
			polls++
		}
	}
	// the coordinate params from init and the two move commands each take a poll to execute
	test.That(t, polls, test.ShouldBeGreaterThanOrEqualTo, 3)
}

func TestMoveTimeout(t *testing.T) {
	f := newFakeArm()
	f.frozen = true
	d := newTestDevice(t, f, Config{CommandTimeout: 20 * time.Millisecond})

	err := d.Move(context.Background(), spatialmath.NewZeroPose(), arm.MoveModeJumpXYZ, 50, 50)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
}

func TestMoveCancelled(t *testing.T) {
	f := newFakeArm()
	f.frozen = true
	d := newTestDevice(t, f, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Move(ctx, spatialmath.NewZeroPose(), arm.MoveModeJumpXYZ, 50, 50)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
}

func TestFaults(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	d := newTestDevice(t, f, Config{})

	faults, err := d.Faults(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, faults.Empty(), test.ShouldBeTrue)

	f.alarms[0] = 0x01
	f.alarms[4] = 0x01
	faults, err = d.Faults(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, faults, test.ShouldResemble, arm.NewFaultState(arm.AlarmCommonResetted, arm.AlarmMoveInvSingularity))

	test.That(t, d.ClearFaults(ctx), test.ShouldBeNil)
	test.That(t, f.sentIDs(), test.ShouldContain, CmdClearAllAlarmsState)
}

func TestReadTimeout(t *testing.T) {
	f := newFakeArm()
	d := newTestDevice(t, f, Config{})
	f.silent = true

	_, err := d.Faults(context.Background())
	test.That(t, errors.Is(err, ErrReadTimeout), test.ShouldBeTrue)
}

func TestCommandRate(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	d := newTestDevice(t, f, Config{CommandRate: 100})

	start := time.Now()
	for i := 0; i < 12; i++ {
		_, err := d.Faults(ctx)
		test.That(t, err, test.ShouldBeNil)
	}
	// at most the burst goes out unpaced, the rest are 10ms apart
	test.That(t, time.Since(start).Milliseconds(), test.ShouldBeGreaterThanOrEqualTo, int64(70))
	test.That(t, len(f.sentIDs()), test.ShouldEqual, 12)
}

func TestSuctionStopClose(t *testing.T) {
	ctx := context.Background()
	f := newFakeArm()
	restore := f.install()
	defer restore()
	d, err := NewDevice(ctx, Config{PollInterval: time.Millisecond}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	f.reset()

	test.That(t, d.SetEndEffector(ctx, true), test.ShouldBeNil)
	sent := f.sent()
	test.That(t, sent[0].ID, test.ShouldEqual, CmdSetEndEffectorSuctionCup)
	test.That(t, sent[0].Params, test.ShouldResemble, []byte{1, 1})

	f.reset()
	test.That(t, d.Stop(ctx), test.ShouldBeNil)
	test.That(t, f.sentIDs(), test.ShouldResemble, []CommandID{
		CmdSetQueuedCmdForceStopExec, CmdSetQueuedCmdClear, CmdSetQueuedCmdStartExec,
	})

	test.That(t, d.Close(ctx), test.ShouldBeNil)
	test.That(t, d.Close(ctx), test.ShouldBeNil)
	test.That(t, f.closed, test.ShouldBeTrue)
	_, err = d.Faults(ctx)
	test.That(t, err, test.ShouldEqual, arm.ErrClosed)
}
