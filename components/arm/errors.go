package arm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is matched by every ValidationError.
	ErrOutOfRange = errors.New("value out of range")
	// ErrUnsupportedOperation is returned for requests the hardware can never serve.
	ErrUnsupportedOperation = errors.New("operation not supported")
	// ErrUnsupportedMoveType is returned when a move type has no native encoding.
	ErrUnsupportedMoveType = errors.New("unsupported move type")
	// ErrUnknownEndEffector is returned for end effector ids the arm does not have.
	ErrUnknownEndEffector = errors.New("unknown end effector")
	// ErrClosed is returned by devices used after Close.
	ErrClosed = errors.New("device is closed")
)

// ConnectionError is returned when the transport to the arm could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to the robot on %q: %v", e.Port, e.Err)
}

// Unwrap returns the transport error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request parameter outside its allowed interval.
type ValidationError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

// Is makes errors.Is(err, ErrOutOfRange) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrOutOfRange
}

// HardwareAlarmError is returned when alarms were active before a command; the command was not sent.
type HardwareAlarmError struct {
	Alarms FaultState
}

func (e *HardwareAlarmError) Error() string {
	return fmt.Sprintf("alarm(s): %s.", strings.Join(e.Alarms.Names(), ","))
}

// DeviceError wraps a failure of the device while executing a command.
type DeviceError struct {
	Op  string
	Err error
}

// NewDeviceError wraps err for op. A nil err stays nil and an existing DeviceError is not wrapped twice.
func NewDeviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying failure.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewUnsupportedOperationError is returned for operations this arm permanently does not support.
func NewUnsupportedOperationError(op string) error {
	return errors.Wrapf(ErrUnsupportedOperation, "%s", op)
}
