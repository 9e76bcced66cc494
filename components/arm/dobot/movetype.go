package dobot

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/spatialmath"
	"github.com/robotcell/dobot/utils"
)

// MoveType selects how the tool travels to its target.
type MoveType int

const (
	// MoveTypeJump lifts, travels and lowers.
	MoveTypeJump MoveType = iota
	// MoveTypeJoints interpolates in joint space.
	MoveTypeJoints
	// MoveTypeLinear travels on a straight cartesian line.
	MoveTypeLinear
)

// MoveTypes lists every move type.
var MoveTypes = []MoveType{MoveTypeJump, MoveTypeJoints, MoveTypeLinear}

func (mt MoveType) String() string {
	switch mt {
	case MoveTypeJump:
		return "JUMP"
	case MoveTypeJoints:
		return "JOINTS"
	case MoveTypeLinear:
		return "LINEAR"
	default:
		return "UNKNOWN"
	}
}

// ParseMoveType parses the case-insensitive name of a move type.
func ParseMoveType(s string) (MoveType, error) {
	for _, mt := range MoveTypes {
		if strings.EqualFold(s, mt.String()) {
			return mt, nil
		}
	}
	return 0, errors.Wrapf(arm.ErrUnsupportedMoveType, "%q", s)
}

// MarshalText encodes the move type as its name.
func (mt MoveType) MarshalText() ([]byte, error) {
	if _, err := Encode(mt); err != nil {
		return nil, err
	}
	return []byte(mt.String()), nil
}

// UnmarshalText decodes a move type name.
func (mt *MoveType) UnmarshalText(text []byte) error {
	parsed, err := ParseMoveType(string(text))
	if err != nil {
		return err
	}
	*mt = parsed
	return nil
}

// Encode maps a move type to the firmware point to point mode.
func Encode(mt MoveType) (arm.MoveMode, error) {
	switch mt {
	case MoveTypeJump:
		return arm.MoveModeJumpXYZ, nil
	case MoveTypeJoints:
		return arm.MoveModeMovJXYZ, nil
	case MoveTypeLinear:
		return arm.MoveModeMovLXYZ, nil
	default:
		return 0, errors.Wrapf(arm.ErrUnsupportedMoveType, "%d", int(mt))
	}
}

const (
	// DefaultVelocity is the velocity percentage used when none is given.
	DefaultVelocity = 50.0
	// DefaultAcceleration is the acceleration percentage used when none is given.
	DefaultAcceleration = 50.0

	minQuaternionNorm = 1e-9
)

// ValidateMove checks that velocity and acceleration are percentages.
func ValidateMove(velocity, acceleration float64) error {
	if !utils.InRange(velocity, 0, 100) {
		return &arm.ValidationError{Field: "velocity", Value: velocity, Min: 0, Max: 100}
	}
	if !utils.InRange(acceleration, 0, 100) {
		return &arm.ValidationError{Field: "acceleration", Value: acceleration, Min: 0, Max: 100}
	}
	return nil
}

// MoveRequest is a world frame motion request.
type MoveRequest struct {
	Pose         spatialmath.Pose
	Type         MoveType
	Velocity     float64
	Acceleration float64
}

// NewMoveRequest returns a request with the default velocity and acceleration.
func NewMoveRequest(pose spatialmath.Pose, mt MoveType) MoveRequest {
	return MoveRequest{Pose: pose, Type: mt, Velocity: DefaultVelocity, Acceleration: DefaultAcceleration}
}

// Validate checks the request parameters.
func (r MoveRequest) Validate() error {
	if r.Pose == nil {
		return errors.New("move request has no pose")
	}
	if math.IsNaN(r.Pose.Point().Norm()) {
		return &arm.ValidationError{Field: "pose", Value: math.NaN(), Min: math.Inf(-1), Max: math.Inf(1)}
	}
	if r.Pose.Orientation() == nil {
		return errors.New("move request pose has no orientation")
	}
	// a zero or non-finite quaternion has no rotation to normalize
	norm := quat.Abs(r.Pose.Orientation().Quaternion())
	if math.IsNaN(norm) || math.IsInf(norm, 0) || norm < minQuaternionNorm {
		return &arm.ValidationError{Field: "orientation", Value: norm, Min: minQuaternionNorm, Max: math.Inf(1)}
	}
	return ValidateMove(r.Velocity, r.Acceleration)
}
