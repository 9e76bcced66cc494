package dobot

import (
	"github.com/golang/geo/r3"
	"github.com/invopop/jsonschema"

	"github.com/robotcell/dobot/spatialmath"
)

// Action describes a command hosts may offer to users of the arm.
type Action struct {
	Name string `json:"name"`
	// Blocking actions return only once the arm has finished.
	Blocking bool `json:"blocking"`
	// Free actions can run without exclusive access to the workcell.
	Free   bool               `json:"free"`
	Params *jsonschema.Schema `json:"params,omitempty"`
}

// PoseParams is a world frame pose in meters with a yaw in radians.
type PoseParams struct {
	X   float64 `json:"x" jsonschema:"required"`
	Y   float64 `json:"y" jsonschema:"required"`
	Z   float64 `json:"z" jsonschema:"required"`
	Yaw float64 `json:"yaw,omitempty"`
}

// MoveParams are the parameters of the move action.
type MoveParams struct {
	Pose         PoseParams `json:"pose" jsonschema:"required"`
	MoveType     string     `json:"move_type" jsonschema:"enum=JUMP,enum=JOINTS,enum=LINEAR,default=JUMP"`
	Velocity     float64    `json:"velocity" jsonschema:"minimum=0,maximum=100,default=50"`
	Acceleration float64    `json:"acceleration" jsonschema:"minimum=0,maximum=100,default=50"`
}

// MoveToPoseParams are the parameters of the move_to_pose action.
type MoveToPoseParams struct {
	EndEffectorID string     `json:"end_effector_id" jsonschema:"required"`
	Pose          PoseParams `json:"pose" jsonschema:"required"`
	Speed         float64    `json:"speed" jsonschema:"minimum=0,maximum=1"`
}

type noParams struct{}

// Actions lists the arm's actions with the JSON schemas of their parameters.
func Actions() []Action {
	return []Action{
		{Name: "home", Blocking: true, Params: jsonschema.Reflect(&noParams{})},
		{Name: "move", Blocking: true, Params: jsonschema.Reflect(&MoveParams{})},
		{Name: "move_to_pose", Blocking: true, Params: jsonschema.Reflect(&MoveToPoseParams{})},
		{Name: "suck", Blocking: true, Params: jsonschema.Reflect(&noParams{})},
		{Name: "release", Blocking: true, Params: jsonschema.Reflect(&noParams{})},
	}
}

// Pose returns the world frame pose of a tool with the given fixed tilt.
func (p PoseParams) Pose(tilt float64) spatialmath.Pose {
	return spatialmath.NewPose(r3.Vector{X: p.X, Y: p.Y, Z: p.Z}, spatialmath.OrientationFromYaw(p.Yaw, tilt))
}

// Request converts the parameters to a move request for a tool with the given fixed tilt.
func (p MoveParams) Request(tilt float64) (MoveRequest, error) {
	mt := MoveTypeJump
	if p.MoveType != "" {
		var err error
		if mt, err = ParseMoveType(p.MoveType); err != nil {
			return MoveRequest{}, err
		}
	}
	return MoveRequest{Pose: p.Pose.Pose(tilt), Type: mt, Velocity: p.Velocity, Acceleration: p.Acceleration}, nil
}
