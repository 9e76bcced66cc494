package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)} // in quaternion representation
	aa45x = &R4AA{th, 1., 0., 0.}                                         // in axis-angle representation
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}                      // in euler angle representation
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.EulerAngles(), test.ShouldResemble, NewEulerAngles())
}

func testEquivalent(t *testing.T, o Orientation) {
	t.Helper()
	test.That(t, o.Quaternion().Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, o.Quaternion().Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, o.Quaternion().Jmag, test.ShouldAlmostEqual, q45x.Jmag)
	test.That(t, o.Quaternion().Kmag, test.ShouldAlmostEqual, q45x.Kmag)
	test.That(t, o.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, o.AxisAngles().RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, o.AxisAngles().RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, o.AxisAngles().RZ, test.ShouldAlmostEqual, aa45x.RZ)
	test.That(t, o.EulerAngles().Roll, test.ShouldAlmostEqual, ea45x.Roll)
	test.That(t, o.EulerAngles().Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
	test.That(t, o.EulerAngles().Yaw, test.ShouldAlmostEqual, ea45x.Yaw)
}

func TestQuaternions(t *testing.T) {
	testEquivalent(t, NewOrientationFromQuaternion(q45x))
}

func TestEulerAngles(t *testing.T) {
	testEquivalent(t, ea45x)
}

func TestAxisAngles(t *testing.T) {
	testEquivalent(t, aa45x)

	unnormalized := &R4AA{th, 3, 0, 0}
	test.That(t, QuaternionAlmostEqual(unnormalized.ToQuat(), q45x, 1e-12), test.ShouldBeTrue)
	test.That(t, unnormalized.RX, test.ShouldEqual, 3.)
	test.That(t, unnormalized.ToR3().X, test.ShouldAlmostEqual, 3*th)
}

func TestEulerRoundTrip(t *testing.T) {
	for _, ea := range []*EulerAngles{
		{Roll: 0.1, Pitch: 0.2, Yaw: 0.3},
		{Roll: -1.2, Pitch: 0.7, Yaw: 2.9},
		{Roll: math.Pi / 2, Pitch: -1.1, Yaw: -3},
	} {
		back := QuatToEulerAngles(ea.Quaternion())
		test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll)
		test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch)
		test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw)
	}

	// gimbal lock keeps the pitch in range
	locked := QuatToEulerAngles((&EulerAngles{Pitch: math.Pi / 2}).Quaternion())
	test.That(t, locked.Pitch, test.ShouldAlmostEqual, math.Pi/2, 1e-6)
}

func TestOrientationBetween(t *testing.T) {
	o1 := &EulerAngles{Yaw: 0.5}
	o2 := &EulerAngles{Yaw: 1.25}
	between := OrientationBetween(o1, o2)
	test.That(t, between.EulerAngles().Yaw, test.ShouldAlmostEqual, 0.75)

	recomposed := NewOrientationFromQuaternion(quat.Mul(between.Quaternion(), o1.Quaternion()))
	test.That(t, OrientationAlmostEqual(recomposed, o2), test.ShouldBeTrue)

	inv := OrientationInverse(o2)
	test.That(t, inv.EulerAngles().Yaw, test.ShouldAlmostEqual, -1.25)
	test.That(t, OrientationAlmostEqual(NewOrientationFromQuaternion(Flip(o2.Quaternion())), o2), test.ShouldBeTrue)
}
