// Package arm defines the device-level contract shared by the physical and the simulated SCARA arm backends:
// the Device interface, joints and their per-revision coupling, alarm codes and the error taxonomy surfaced
// to callers.
package arm

import (
	"context"
	"fmt"

	"github.com/robotcell/dobot/spatialmath"
)

// Device is the backend a dispatcher drives. All poses crossing this interface are in the robot-local frame,
// positions in meters. Every method blocks until the backend has finished the request.
// A Device is not safe for concurrent commands; callers serialize them.
type Device interface {
	// CurrentPose returns the tool pose in the robot-local frame.
	CurrentPose(ctx context.Context) (spatialmath.Pose, error)
	// CurrentJoints returns the five joint values produced by the device's coupling table.
	CurrentJoints(ctx context.Context) ([]Joint, error)
	// Faults returns the alarms active right now. It is never cached.
	Faults(ctx context.Context) (FaultState, error)
	// Home runs the homing procedure.
	Home(ctx context.Context) error
	// Move sets the speed and acceleration ratios, then issues a point to point move to the local pose
	// and waits for it to complete.
	Move(ctx context.Context, local spatialmath.Pose, mode MoveMode, velocity, acceleration float64) error
	// SetEndEffector turns the suction cup on or off.
	SetEndEffector(ctx context.Context, active bool) error
	// Close releases the underlying connection. It is safe to call more than once.
	Close(ctx context.Context) error
}

// FaultClearer is implemented by devices whose alarms can be reset by the host.
type FaultClearer interface {
	ClearFaults(ctx context.Context) error
}

// Stopper is implemented by devices that can abort queued motion.
type Stopper interface {
	Stop(ctx context.Context) error
}

// MoveMode is the device-native point to point interpolation mode.
type MoveMode uint8

// The firmware PTP modes used for cartesian targets.
const (
	MoveModeJumpXYZ MoveMode = 0
	MoveModeMovJXYZ MoveMode = 1
	MoveModeMovLXYZ MoveMode = 2
)

func (m MoveMode) String() string {
	switch m {
	case MoveModeJumpXYZ:
		return "JUMP_XYZ"
	case MoveModeMovJXYZ:
		return "MOVJ_XYZ"
	case MoveModeMovLXYZ:
		return "MOVL_XYZ"
	default:
		return fmt.Sprintf("MODE_%d", uint8(m))
	}
}
