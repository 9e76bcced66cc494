// Package inject provides arm devices whose behavior can be swapped out function by function in tests.
package inject

import (
	"context"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/spatialmath"
)

// Device is an injected arm.Device.
type Device struct {
	arm.Device
	CurrentPoseFunc    func(ctx context.Context) (spatialmath.Pose, error)
	CurrentJointsFunc  func(ctx context.Context) ([]arm.Joint, error)
	FaultsFunc         func(ctx context.Context) (arm.FaultState, error)
	HomeFunc           func(ctx context.Context) error
	MoveFunc           func(ctx context.Context, local spatialmath.Pose, mode arm.MoveMode, velocity, acceleration float64) error
	SetEndEffectorFunc func(ctx context.Context, active bool) error
	ClearFaultsFunc    func(ctx context.Context) error
	StopFunc           func(ctx context.Context) error
	CloseFunc          func(ctx context.Context) error
}

// NewDevice returns an injected device wrapping dev, which may be nil when every used function is injected.
func NewDevice(dev arm.Device) *Device {
	return &Device{Device: dev}
}

// CurrentPose calls the injected CurrentPose or the real version.
func (d *Device) CurrentPose(ctx context.Context) (spatialmath.Pose, error) {
	if d.CurrentPoseFunc == nil {
		return d.Device.CurrentPose(ctx)
	}
	return d.CurrentPoseFunc(ctx)
}

// CurrentJoints calls the injected CurrentJoints or the real version.
func (d *Device) CurrentJoints(ctx context.Context) ([]arm.Joint, error) {
	if d.CurrentJointsFunc == nil {
		return d.Device.CurrentJoints(ctx)
	}
	return d.CurrentJointsFunc(ctx)
}

// Faults calls the injected Faults or the real version.
func (d *Device) Faults(ctx context.Context) (arm.FaultState, error) {
	if d.FaultsFunc == nil {
		return d.Device.Faults(ctx)
	}
	return d.FaultsFunc(ctx)
}

// Home calls the injected Home or the real version.
func (d *Device) Home(ctx context.Context) error {
	if d.HomeFunc == nil {
		return d.Device.Home(ctx)
	}
	return d.HomeFunc(ctx)
}

// Move calls the injected Move or the real version.
func (d *Device) Move(ctx context.Context, local spatialmath.Pose, mode arm.MoveMode, velocity, acceleration float64) error {
	if d.MoveFunc == nil {
		return d.Device.Move(ctx, local, mode, velocity, acceleration)
	}
	return d.MoveFunc(ctx, local, mode, velocity, acceleration)
}

// SetEndEffector calls the injected SetEndEffector or the real version.
func (d *Device) SetEndEffector(ctx context.Context, active bool) error {
	if d.SetEndEffectorFunc == nil {
		return d.Device.SetEndEffector(ctx, active)
	}
	return d.SetEndEffectorFunc(ctx, active)
}

// ClearFaults calls the injected ClearFaults or the real version if it has one.
func (d *Device) ClearFaults(ctx context.Context) error {
	if d.ClearFaultsFunc == nil {
		if fc, ok := d.Device.(arm.FaultClearer); ok {
			return fc.ClearFaults(ctx)
		}
		return arm.NewUnsupportedOperationError("ClearFaults")
	}
	return d.ClearFaultsFunc(ctx)
}

// Stop calls the injected Stop or the real version if it has one.
func (d *Device) Stop(ctx context.Context) error {
	if d.StopFunc == nil {
		if s, ok := d.Device.(arm.Stopper); ok {
			return s.Stop(ctx)
		}
		return nil
	}
	return d.StopFunc(ctx)
}

// Close calls the injected Close or the real version.
func (d *Device) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		if d.Device == nil {
			return nil
		}
		return d.Device.Close(ctx)
	}
	return d.CloseFunc(ctx)
}
