// Package spatialmath defines spatial mathematical operations.
// Positions are r3 vectors in meters and orientations are unit quaternions.
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// dualQuaternion defines a rigid transformation in 3D. The real part is the rotation, the dual part is
// half the translation premultiplied onto the rotation.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a dualQuaternion with no rotation and no translation.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// newDualQuaternionFromPose builds the rigid transformation described by p.
func newDualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return &dualQuaternion{q.Number}
	}
	o := p.Orientation()
	if o == nil {
		o = NewZeroOrientation()
	}
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	q.setTranslation(p.Point())
	return q
}

// setTranslation sets the translation against the current rotation.
func (q *dualQuaternion) setTranslation(pt r3.Vector) {
	q.Dual = quat.Mul(quat.Number{Imag: pt.X / 2, Jmag: pt.Y / 2, Kmag: pt.Z / 2}, q.Real)
}

// Point multiplies the dual quaternion by its own conjugate to give the translation in meters.
func (q *dualQuaternion) Point() r3.Vector {
	tQuat := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: tQuat.Imag, Y: tQuat.Jmag, Z: tQuat.Kmag}
}

// Orientation returns a copy of the rotation part.
func (q *dualQuaternion) Orientation() Orientation {
	rot := quaternion(q.Real)
	return &rot
}

// Invert returns a dualQuaternion representing the opposite transformation. So if this one takes a point from frame A
// to frame B, the inverse takes it from B to A.
func (q *dualQuaternion) Invert() *dualQuaternion {
	return &dualQuaternion{dualquat.ConjQuat(q.Number)}
}

// Transformation multiplies the dual quat contained in this dualQuaternion by another dual quat.
func (q *dualQuaternion) Transformation(by dualquat.Number) dualquat.Number {
	// Ensure we are multiplying by a unit dual quaternion
	if vecLen := quat.Abs(by.Real); vecLen != 1 && vecLen != 0 {
		by.Real = quat.Scale(1/vecLen, by.Real)
		by.Dual = quat.Scale(1/vecLen, by.Dual)
	}

	return dualquat.Mul(q.Number, by)
}

// String formats the pose with the position in meters and the orientation as a quaternion.
func (q *dualQuaternion) String() string {
	pt := q.Point()
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f Q:(%.6f %.6f %.6f %.6f)}",
		pt.X, pt.Y, pt.Z, q.Real.Real, q.Real.Imag, q.Real.Jmag, q.Real.Kmag)
}
