package arm

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Alarm is a firmware alarm code. The firmware reports alarms as a bitmap where bit n of the state is alarm n.
type Alarm uint8

// Known alarm codes.
const (
	AlarmCommonResetted           Alarm = 0x00
	AlarmCommonUndefinedInstr     Alarm = 0x01
	AlarmCommonFileSystem         Alarm = 0x02
	AlarmCommonMCUFRAM            Alarm = 0x03
	AlarmCommonAngleSensor        Alarm = 0x04
	AlarmPlanInvSingularity       Alarm = 0x10
	AlarmPlanInvCalc              Alarm = 0x11
	AlarmPlanInvLimit             Alarm = 0x12
	AlarmPlanPushDataRepeat       Alarm = 0x13
	AlarmPlanArcInputParam        Alarm = 0x14
	AlarmPlanJumpParam            Alarm = 0x15
	AlarmMoveInvSingularity       Alarm = 0x20
	AlarmMoveInvCalc              Alarm = 0x21
	AlarmMoveInvLimit             Alarm = 0x22
	AlarmOverspeedAxis1           Alarm = 0x30
	AlarmOverspeedAxis2           Alarm = 0x31
	AlarmOverspeedAxis3           Alarm = 0x32
	AlarmOverspeedAxis4           Alarm = 0x33
	AlarmLimitAxis1Pos            Alarm = 0x40
	AlarmLimitAxis1Neg            Alarm = 0x41
	AlarmLimitAxis2Pos            Alarm = 0x42
	AlarmLimitAxis2Neg            Alarm = 0x43
	AlarmLimitAxis3Pos            Alarm = 0x44
	AlarmLimitAxis3Neg            Alarm = 0x45
	AlarmLimitAxis4Pos            Alarm = 0x46
	AlarmLimitAxis4Neg            Alarm = 0x47
	AlarmLimitAxis23Pos           Alarm = 0x48
	AlarmLimitAxis23Neg           Alarm = 0x49
	AlarmLoseStepAxis1            Alarm = 0x50
	AlarmLoseStepAxis2            Alarm = 0x51
	AlarmLoseStepAxis3            Alarm = 0x52
	AlarmLoseStepAxis4            Alarm = 0x53
	AlarmOtherAxis1DriverAlarm    Alarm = 0x60
	AlarmOtherAxis2DriverAlarm    Alarm = 0x61
	AlarmOtherAxis3DriverAlarm    Alarm = 0x62
	AlarmOtherAxis4DriverAlarm    Alarm = 0x63
	AlarmOtherAxis1Overflow       Alarm = 0x64
	AlarmOtherAxis2Overflow       Alarm = 0x65
	AlarmOtherAxis3Overflow       Alarm = 0x66
	AlarmOtherAxis4Overflow       Alarm = 0x67
	AlarmOtherAxis1FollowingError Alarm = 0x68
	AlarmOtherAxis2FollowingError Alarm = 0x69
	AlarmOtherAxis3FollowingError Alarm = 0x6A
	AlarmOtherAxis4FollowingError Alarm = 0x6B
)

var alarmNames = map[Alarm]string{
	AlarmCommonResetted:           "COMMON_RESETTED",
	AlarmCommonUndefinedInstr:     "COMMON_UNDEFINED_INSTRUCTION",
	AlarmCommonFileSystem:         "COMMON_FILE_SYSTEM",
	AlarmCommonMCUFRAM:            "COMMON_MCU_FRAM",
	AlarmCommonAngleSensor:        "COMMON_ANGLE_SENSOR",
	AlarmPlanInvSingularity:       "PLAN_INV_SINGULARITY",
	AlarmPlanInvCalc:              "PLAN_INV_CALC",
	AlarmPlanInvLimit:             "PLAN_INV_LIMIT",
	AlarmPlanPushDataRepeat:       "PLAN_PUSH_DATA_REPEAT",
	AlarmPlanArcInputParam:        "PLAN_ARC_INPUT_PARAM",
	AlarmPlanJumpParam:            "PLAN_JUMP_PARAM",
	AlarmMoveInvSingularity:       "MOVE_INV_SINGULARITY",
	AlarmMoveInvCalc:              "MOVE_INV_CALC",
	AlarmMoveInvLimit:             "MOVE_INV_LIMIT",
	AlarmOverspeedAxis1:           "OVERSPEED_AXIS1",
	AlarmOverspeedAxis2:           "OVERSPEED_AXIS2",
	AlarmOverspeedAxis3:           "OVERSPEED_AXIS3",
	AlarmOverspeedAxis4:           "OVERSPEED_AXIS4",
	AlarmLimitAxis1Pos:            "LIMIT_AXIS1_POS",
	AlarmLimitAxis1Neg:            "LIMIT_AXIS1_NEG",
	AlarmLimitAxis2Pos:            "LIMIT_AXIS2_POS",
	AlarmLimitAxis2Neg:            "LIMIT_AXIS2_NEG",
	AlarmLimitAxis3Pos:            "LIMIT_AXIS3_POS",
	AlarmLimitAxis3Neg:            "LIMIT_AXIS3_NEG",
	AlarmLimitAxis4Pos:            "LIMIT_AXIS4_POS",
	AlarmLimitAxis4Neg:            "LIMIT_AXIS4_NEG",
	AlarmLimitAxis23Pos:           "LIMIT_AXIS23_POS",
	AlarmLimitAxis23Neg:           "LIMIT_AXIS23_NEG",
	AlarmLoseStepAxis1:            "LOSE_STEP_AXIS1",
	AlarmLoseStepAxis2:            "LOSE_STEP_AXIS2",
	AlarmLoseStepAxis3:            "LOSE_STEP_AXIS3",
	AlarmLoseStepAxis4:            "LOSE_STEP_AXIS4",
	AlarmOtherAxis1DriverAlarm:    "OTHER_AXIS1_DRV_ALARM",
	AlarmOtherAxis2DriverAlarm:    "OTHER_AXIS2_DRV_ALARM",
	AlarmOtherAxis3DriverAlarm:    "OTHER_AXIS3_DRV_ALARM",
	AlarmOtherAxis4DriverAlarm:    "OTHER_AXIS4_DRV_ALARM",
	AlarmOtherAxis1Overflow:       "OTHER_AXIS1_OVERFLOW",
	AlarmOtherAxis2Overflow:       "OTHER_AXIS2_OVERFLOW",
	AlarmOtherAxis3Overflow:       "OTHER_AXIS3_OVERFLOW",
	AlarmOtherAxis4Overflow:       "OTHER_AXIS4_OVERFLOW",
	AlarmOtherAxis1FollowingError: "OTHER_AXIS1_FOLLOW",
	AlarmOtherAxis2FollowingError: "OTHER_AXIS2_FOLLOW",
	AlarmOtherAxis3FollowingError: "OTHER_AXIS3_FOLLOW",
	AlarmOtherAxis4FollowingError: "OTHER_AXIS4_FOLLOW",
}

// String returns the firmware name of the alarm, or its hex code when unknown.
func (a Alarm) String() string {
	if name, ok := alarmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ALARM_0x%02X", uint8(a))
}

// FaultState is the set of active alarms, ordered by code.
type FaultState []Alarm

// NewFaultState returns the sorted, de-duplicated set of the given alarms.
func NewFaultState(alarms ...Alarm) FaultState {
	fs := FaultState(lo.Uniq(alarms))
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
	return fs
}

// FaultStateFromBitmap decodes the firmware alarm bitmap; bit j of byte i is alarm 8*i+j.
func FaultStateFromBitmap(bitmap []byte) FaultState {
	var alarms []Alarm
	for i, b := range bitmap {
		for j := 0; j < 8; j++ {
			if b&(1<<j) != 0 && 8*i+j <= 0xFF {
				alarms = append(alarms, Alarm(8*i+j))
			}
		}
	}
	return NewFaultState(alarms...)
}

// Empty is true when no alarm is active.
func (fs FaultState) Empty() bool {
	return len(fs) == 0
}

// Contains reports whether the alarm is active.
func (fs FaultState) Contains(a Alarm) bool {
	return lo.Contains(fs, a)
}

// Names returns the alarm names in code order.
func (fs FaultState) Names() []string {
	return lo.Map(fs, func(a Alarm, _ int) string { return a.String() })
}
