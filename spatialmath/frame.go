package spatialmath

import (
	"gonum.org/v1/gonum/num/quat"

	"github.com/robotcell/dobot/utils"
)

// ToLocal expresses a world frame pose relative to the mount pose of a device, i.e. the translation is
// rotated by the inverse mount orientation and the orientation becomes mount⁻¹ * world.
func ToLocal(mount, world Pose) Pose {
	return PoseBetween(mount, world)
}

// ToWorld is the inverse of ToLocal: the local pose is composed onto the mount pose.
func ToWorld(mount, local Pose) Pose {
	return Compose(mount, local)
}

// YawOf returns the rotation about the vertical axis, in (-pi, pi], of the z-y′-x″ decomposition of o.
// Any pitch and roll in o are discarded; that is a loss of precision, never an error.
func YawOf(o Orientation) float64 {
	return QuatToEulerAngles(Normalize(o.Quaternion())).Yaw
}

// OrientationFromYaw builds the orientation of a tool that is tilted by tilt radians about Y and then turned by
// yaw radians about the vertical axis: Rz(yaw) * Ry(tilt).
func OrientationFromYaw(yaw, tilt float64) Orientation {
	q := quaternion(quat.Mul(rotationAboutZ(yaw), rotationAboutY(tilt)))
	return &q
}

// ToolYawOf is the inverse of OrientationFromYaw for a known fixed tilt: the tilt is removed before the yaw is
// extracted, so ToolYawOf(OrientationFromYaw(y, t), t) == y for every y in (-pi, pi].
// Orientations that are not of that form lose their non-yaw components.
func ToolYawOf(o Orientation, tilt float64) float64 {
	untilted := quat.Mul(Normalize(o.Quaternion()), quat.Conj(rotationAboutY(tilt)))
	q := quaternion(untilted)
	return utils.WrapAngle(YawOf(&q))
}
