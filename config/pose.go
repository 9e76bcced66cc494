package config

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robotcell/dobot/spatialmath"
	"github.com/robotcell/dobot/utils"
)

// Translation is a position in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a rotation written as w + xi + yj + zk.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Orientation is either a quaternion or, when that is absent, a rotation about Z in degrees.
type Orientation struct {
	Quaternion *Quaternion `json:"quaternion,omitempty"`
	YawDegrees float64     `json:"yaw_degs,omitempty"`
}

// PoseConfig places a component in the world.
type PoseConfig struct {
	Translation Translation `json:"translation"`
	Orientation Orientation `json:"orientation"`
}

// Pose converts the config to a pose. Quaternions are normalized; a zero quaternion is an error.
func (pc *PoseConfig) Pose() (spatialmath.Pose, error) {
	pt := r3.Vector{X: pc.Translation.X, Y: pc.Translation.Y, Z: pc.Translation.Z}
	if math.IsNaN(pt.Norm()) || math.IsInf(pt.Norm(), 0) {
		return nil, errors.New("translation must be finite")
	}
	if q := pc.Orientation.Quaternion; q != nil {
		n := quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
		if quat.Abs(n) < 1e-9 {
			return nil, errors.New("orientation quaternion must not be zero")
		}
		return spatialmath.NewPose(pt, spatialmath.NewOrientationFromQuaternion(spatialmath.Normalize(n))), nil
	}
	return spatialmath.NewPose(pt, spatialmath.OrientationFromYaw(utils.DegToRad(pc.Orientation.YawDegrees), 0)), nil
}
