package arm

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestErrorTaxonomy(t *testing.T) {
	transportErr := errors.New("no such file or directory")

	var err error = &ConnectionError{Port: "/dev/dobot", Err: transportErr}
	test.That(t, errors.Is(err, transportErr), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "/dev/dobot")

	err = &ValidationError{Field: "velocity", Value: 150, Min: 0, Max: 100}
	test.That(t, errors.Is(err, ErrOutOfRange), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "velocity 150 out of range [0, 100]")

	err = &HardwareAlarmError{Alarms: NewFaultState(AlarmLimitAxis1Pos, AlarmOverspeedAxis1)}
	test.That(t, err.Error(), test.ShouldEqual, "alarm(s): OVERSPEED_AXIS1,LIMIT_AXIS1_POS.")
	var alarmErr *HardwareAlarmError
	test.That(t, errors.As(errors.Wrap(err, "move"), &alarmErr), test.ShouldBeTrue)
	test.That(t, alarmErr.Alarms, test.ShouldHaveLength, 2)

	err = NewUnsupportedOperationError("move to joints")
	test.That(t, errors.Is(err, ErrUnsupportedOperation), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrOutOfRange), test.ShouldBeFalse)
}

func TestNewDeviceError(t *testing.T) {
	test.That(t, NewDeviceError("home", nil), test.ShouldBeNil)

	cause := errors.New("timeout")
	err := NewDeviceError("home", cause)
	var devErr *DeviceError
	test.That(t, errors.As(err, &devErr), test.ShouldBeTrue)
	test.That(t, devErr.Op, test.ShouldEqual, "home")
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)

	// not wrapped twice
	test.That(t, NewDeviceError("move", err), test.ShouldEqual, err)
}
