package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func randomPose(rnd *rand.Rand) Pose {
	pt := r3.Vector{X: rnd.Float64()*2 - 1, Y: rnd.Float64()*2 - 1, Z: rnd.Float64()*2 - 1}
	q := quat.Number{Real: rnd.NormFloat64(), Imag: rnd.NormFloat64(), Jmag: rnd.NormFloat64(), Kmag: rnd.NormFloat64()}
	return NewPose(pt, NewOrientationFromQuaternion(q))
}

func TestBasicPoseConstruction(t *testing.T) {
	p := NewZeroPose()
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)

	p = NewPoseFromPoint(r3.Vector{X: 0.1, Y: -0.2, Z: 0.3})
	test.That(t, R3VectorAlmostEqual(p.Point(), r3.Vector{X: 0.1, Y: -0.2, Z: 0.3}, 1e-12), test.ShouldBeTrue)

	o := &EulerAngles{Yaw: math.Pi / 2}
	p = NewPose(r3.Vector{X: 1}, o)
	test.That(t, p.Point().X, test.ShouldAlmostEqual, 1.)
	test.That(t, OrientationAlmostEqual(p.Orientation(), o), test.ShouldBeTrue)

	// a non unit quaternion is normalized on the way in
	p = NewPose(r3.Vector{}, NewOrientationFromQuaternion(quat.Number{Real: 2}))
	test.That(t, quat.Abs(p.Orientation().Quaternion()), test.ShouldAlmostEqual, 1.)
}

func TestCompose(t *testing.T) {
	mount := NewPose(r3.Vector{X: 1, Y: 2, Z: 0}, &EulerAngles{Yaw: math.Pi / 2})
	local := NewPoseFromPoint(r3.Vector{X: 0.5})

	world := Compose(mount, local)
	// +X in the mount frame is +Y in the world frame
	test.That(t, R3VectorAlmostEqual(world.Point(), r3.Vector{X: 1, Y: 2.5}, 1e-9), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(world.Orientation(), mount.Orientation()), test.ShouldBeTrue)

	back := PoseBetween(mount, world)
	test.That(t, PoseAlmostEqual(back, local), test.ShouldBeTrue)
}

func TestPoseInverse(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		p := randomPose(rnd)
		test.That(t, PoseAlmostEqual(Compose(p, PoseInverse(p)), NewZeroPose()), test.ShouldBeTrue)
		test.That(t, PoseAlmostEqual(Compose(PoseInverse(p), p), NewZeroPose()), test.ShouldBeTrue)
	}
}

func TestPosesAreValues(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{X: 1})
	o := p.Orientation().(*quaternion)
	o.Real = 0
	o.Kmag = 1
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)
}

func TestPoseAlmostEqualDoubleCover(t *testing.T) {
	q := NewOrientationFromQuaternion(quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5})
	flipped := NewOrientationFromQuaternion(Flip(q.Quaternion()))
	test.That(t, QuaternionAlmostEqual(q.Quaternion(), flipped.Quaternion(), 1e-9), test.ShouldBeFalse)
	test.That(t, PoseAlmostEqual(NewPose(r3.Vector{}, q), NewPose(r3.Vector{}, flipped)), test.ShouldBeTrue)
}
