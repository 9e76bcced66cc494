package arm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/robotcell/dobot/utils"
)

// Joint is a named joint value in radians.
type Joint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RawJoints are the four physical axis angles in degrees as reported by the firmware.
type RawJoints struct {
	J1, J2, J3, J4 float64
}

// JointCoupling derives one reported joint as a linear combination of the physical axes.
type JointCoupling struct {
	Name         string
	Coefficients [4]float64
}

func (c JointCoupling) value(raw RawJoints) float64 {
	return c.Coefficients[0]*raw.J1 + c.Coefficients[1]*raw.J2 + c.Coefficients[2]*raw.J3 + c.Coefficients[3]*raw.J4
}

// Revision describes the hardware-revision specific kinematic conventions of the arm: the fixed tilt of the tool
// about Y in the native frame and the coupling table producing the five reported joints. The forearm of the
// arm is a parallel linkage, so the firmware's third axis angle is measured against the second one.
type Revision struct {
	Name   string
	Tilt   float64
	Joints [5]JointCoupling
}

// RevisionV1 is the early integration: no tool tilt and a fixed zero fourth joint.
var RevisionV1 = Revision{
	Name: "v1",
	Tilt: 0,
	Joints: [5]JointCoupling{
		{Name: "magician_joint_1", Coefficients: [4]float64{1, 0, 0, 0}},
		{Name: "magician_joint_2", Coefficients: [4]float64{0, 1, 0, 0}},
		{Name: "magician_joint_3", Coefficients: [4]float64{0, -1, 1, 0}},
		{Name: "magician_joint_4", Coefficients: [4]float64{0, 0, 0, 0}},
		{Name: "magician_joint_5", Coefficients: [4]float64{0, 0, 0, 1}},
	},
}

// RevisionV2 reports the tool pointing down (180 degrees about Y) and a fourth joint that cancels the forearm
// contribution to keep the tool flange horizontal.
var RevisionV2 = Revision{
	Name: "v2",
	Tilt: math.Pi,
	Joints: [5]JointCoupling{
		{Name: "magician_joint_1", Coefficients: [4]float64{1, 0, 0, 0}},
		{Name: "magician_joint_2", Coefficients: [4]float64{0, 1, 0, 0}},
		{Name: "magician_joint_3", Coefficients: [4]float64{0, -1, 1, 0}},
		{Name: "magician_joint_4", Coefficients: [4]float64{0, 1, -1, 0}},
		{Name: "magician_joint_5", Coefficients: [4]float64{0, 0, 0, 1}},
	},
}

// Revisions lists the known revisions by name.
var Revisions = map[string]Revision{
	RevisionV1.Name: RevisionV1,
	RevisionV2.Name: RevisionV2,
}

// RevisionByName looks up a known revision.
func RevisionByName(name string) (Revision, error) {
	rev, ok := Revisions[name]
	if !ok {
		return Revision{}, errors.Errorf("unknown hardware revision %q", name)
	}
	return rev, nil
}

// Couple converts raw firmware axis angles into the five reported joints, in radians.
func (r Revision) Couple(raw RawJoints) []Joint {
	joints := make([]Joint, 0, len(r.Joints))
	for _, c := range r.Joints {
		joints = append(joints, Joint{Name: c.Name, Value: utils.DegToRad(c.value(raw))})
	}
	return joints
}

// ZeroJoints returns the five joints of the revision, all at zero.
func (r Revision) ZeroJoints() []Joint {
	return r.Couple(RawJoints{})
}
