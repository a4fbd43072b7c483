package main

import "fmt"

// ChangeGroup selects which parameter space a change message addresses.
type ChangeGroup byte

const (
	GroupVoice    ChangeGroup = 0
	GroupFunction ChangeGroup = 2
)

func (g ChangeGroup) String() string {
	switch g {
	case GroupVoice:
		return "voice"
	case GroupFunction:
		return "function"
	default:
		return fmt.Sprintf("group(%d)", byte(g))
	}
}

// UnrecognizedMessageError reports bytes that match no known parameter
// change shape.
type UnrecognizedMessageError struct {
	Reason string
}

func (e *UnrecognizedMessageError) Error() string {
	return "unrecognized message: " + e.Reason
}

// ParameterChange is a single-parameter edit: no full voice round trip, no
// checksum.
type ParameterChange struct {
	Group ChangeGroup `json:"group"`
	Param int         `json:"param"`
	Value int         `json:"value"`
}

// Function parameters live in their own small space (64–77). Whether real
// hardware acts on every one of these over SysEx is undocumented; the codec
// follows the published format either way.
var functionSpecs = []ParameterSpec{
	{ID: 64, Name: "MonoMode", Max: 1},
	{ID: 65, Name: "PitchBendRange", Max: 12},
	{ID: 66, Name: "PitchBendStep", Max: 12},
	{ID: 67, Name: "PortamentoMode", Max: 1},
	{ID: 68, Name: "PortamentoGliss", Max: 1},
	{ID: 69, Name: "PortamentoTime", Max: 99},
	{ID: 70, Name: "ModWheelRange", Max: 99},
	{ID: 71, Name: "ModWheelAssign", Max: 7},
	{ID: 72, Name: "FootControlRange", Max: 99},
	{ID: 73, Name: "FootControlAssign", Max: 7},
	{ID: 74, Name: "BreathControlRange", Max: 99},
	{ID: 75, Name: "BreathControlAssign", Max: 7},
	{ID: 76, Name: "AftertouchRange", Max: 99},
	{ID: 77, Name: "AftertouchAssign", Max: 7},
}

// FunctionSpecFor returns the spec for a function parameter number.
func FunctionSpecFor(id int) (ParameterSpec, error) {
	for _, s := range functionSpecs {
		if s.ID == id {
			return s, nil
		}
	}
	return ParameterSpec{}, &UnknownParameterError{ID: id}
}

// FunctionSpecByName returns the spec for a function parameter name.
func FunctionSpecByName(name string) (ParameterSpec, error) {
	for _, s := range functionSpecs {
		if s.Name == name {
			return s, nil
		}
	}
	return ParameterSpec{}, &UnknownParameterError{Name: name}
}

func (pc ParameterChange) spec() (ParameterSpec, error) {
	switch pc.Group {
	case GroupVoice:
		return SpecFor(pc.Param)
	case GroupFunction:
		return FunctionSpecFor(pc.Param)
	default:
		return ParameterSpec{}, &UnrecognizedMessageError{
			Reason: fmt.Sprintf("parameter group %d", byte(pc.Group))}
	}
}

// ToSysEx builds the short-form parameter change frame. The group byte
// carries the group in its upper bits and the parameter number's high bit
// below the seven in the next byte.
func (pc ParameterChange) ToSysEx(channel byte) ([]byte, error) {
	spec, err := pc.spec()
	if err != nil {
		return nil, err
	}
	if pc.Value < spec.Min || pc.Value > spec.Max {
		return nil, &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: pc.Value, Min: spec.Min, Max: spec.Max}
	}
	return []byte{
		SysExStart,
		ManufacturerYamaha,
		subStatusParamChange | channel&0x0F,
		byte(pc.Group)<<2 | byte(pc.Param>>7)&0x03,
		byte(pc.Param) & 0x7F,
		byte(pc.Value),
		SysExEnd,
	}, nil
}

// ParseParameterChange parses a short-form parameter change frame.
func ParseParameterChange(msg []byte) (ParameterChange, error) {
	var pc ParameterChange
	if len(msg) != 7 {
		return pc, &UnrecognizedMessageError{
			Reason: fmt.Sprintf("%d bytes, parameter changes are 7", len(msg))}
	}
	if msg[0] != SysExStart || msg[6] != SysExEnd {
		return pc, &UnrecognizedMessageError{Reason: "not a SysEx frame"}
	}
	if msg[1] != ManufacturerYamaha {
		return pc, &UnrecognizedMessageError{
			Reason: fmt.Sprintf("manufacturer 0x%02X is not Yamaha", msg[1])}
	}
	if msg[2]&0xF0 != subStatusParamChange {
		return pc, &UnrecognizedMessageError{
			Reason: fmt.Sprintf("sub-status 0x%02X is not a parameter change", msg[2])}
	}

	pc.Group = ChangeGroup(msg[3] >> 2)
	pc.Param = int(msg[3]&0x03)<<7 | int(msg[4]&0x7F)
	pc.Value = int(msg[5] & 0x7F)

	spec, err := pc.spec()
	if err != nil {
		return ParameterChange{}, err
	}
	if pc.Value < spec.Min || pc.Value > spec.Max {
		return ParameterChange{}, &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: pc.Value, Min: spec.Min, Max: spec.Max}
	}
	return pc, nil
}
