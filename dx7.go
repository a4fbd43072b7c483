package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

const (
	NumOperators = 6

	// Sizes of the two voice images. VCED is the one-byte-per-parameter
	// edit buffer format, VMEM the bit-packed form used in cartridge dumps.
	VCEDSize = 155
	VMEMSize = 128

	opParamCount   = 21 // VCED parameters per operator
	opPackedStride = 17 // VMEM bytes per operator

	VoiceParamCount = 155

	voiceNameOffset = 145
	VoiceNameLen    = 10
)

// ParameterSpec describes one voice parameter: where it lives in the
// unpacked (VCED) image, which bits it occupies in the packed (VMEM)
// image, and its legal value range.
type ParameterSpec struct {
	ID   int
	Name string
	Min  int
	Max  int

	Unpacked    int // byte offset in the VCED image; equals ID for the DX7
	PackedBit   int // bit offset from the start of the VMEM image, LSB first
	PackedWidth int
}

type ParameterRangeError struct {
	Param string
	ID    int
	Value int
	Min   int
	Max   int
}

func (e *ParameterRangeError) Error() string {
	return fmt.Sprintf("parameter %s (#%d): value %d outside range %d–%d",
		e.Param, e.ID, e.Value, e.Min, e.Max)
}

type UnknownParameterError struct {
	Name string
	ID   int
}

func (e *UnknownParameterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown parameter %q", e.Name)
	}
	return fmt.Sprintf("unknown parameter #%d", e.ID)
}

// TableIntegrityError means the built-in parameter table is corrupt. It is
// only ever raised from init, before any codec call can run.
type TableIntegrityError struct {
	Reason string
}

func (e *TableIntegrityError) Error() string {
	return "parameter table integrity: " + e.Reason
}

// Per-operator VMEM layout (see DX7 packed-format table). byteOff and shift
// are relative to the operator's 17-byte block; the slice index is the
// parameter's offset within the operator's 21-byte VCED block.
var opParamTemplate = []struct {
	name    string
	byteOff int
	shift   int
	width   int
	max     int
}{
	{"EGRate1", 0, 0, 7, 99},
	{"EGRate2", 1, 0, 7, 99},
	{"EGRate3", 2, 0, 7, 99},
	{"EGRate4", 3, 0, 7, 99},
	{"EGLevel1", 4, 0, 7, 99},
	{"EGLevel2", 5, 0, 7, 99},
	{"EGLevel3", 6, 0, 7, 99},
	{"EGLevel4", 7, 0, 7, 99},
	{"LevelScaleBreakPoint", 8, 0, 7, 99},
	{"LevelScaleLeftDepth", 9, 0, 7, 99},
	{"LevelScaleRightDepth", 10, 0, 7, 99},
	{"LevelScaleLeftCurve", 11, 0, 2, 3},
	{"LevelScaleRightCurve", 11, 2, 2, 3},
	{"RateScaling", 12, 0, 3, 7},
	{"AmpModSens", 13, 0, 2, 3},
	{"KeyVelSens", 13, 2, 3, 7},
	{"OutputLevel", 14, 0, 7, 99},
	{"OscMode", 15, 0, 1, 1},
	{"FreqCoarse", 15, 1, 5, 31},
	{"FreqFine", 16, 0, 7, 99},
	{"Detune", 12, 3, 4, 14},
}

// Global (non-operator) parameters, VCED offsets 126–154. byteOff/shift are
// absolute VMEM positions.
var globalParams = []struct {
	name    string
	byteOff int
	shift   int
	width   int
	max     int
}{
	{"PitchEGRate1", 102, 0, 7, 99},
	{"PitchEGRate2", 103, 0, 7, 99},
	{"PitchEGRate3", 104, 0, 7, 99},
	{"PitchEGRate4", 105, 0, 7, 99},
	{"PitchEGLevel1", 106, 0, 7, 99},
	{"PitchEGLevel2", 107, 0, 7, 99},
	{"PitchEGLevel3", 108, 0, 7, 99},
	{"PitchEGLevel4", 109, 0, 7, 99},
	{"Algorithm", 110, 0, 5, 31},
	{"Feedback", 111, 0, 3, 7},
	{"OscKeySync", 111, 3, 1, 1},
	{"LFOSpeed", 112, 0, 7, 99},
	{"LFODelay", 113, 0, 7, 99},
	{"LFOPitchModDepth", 114, 0, 7, 99},
	{"LFOAmpModDepth", 115, 0, 7, 99},
	{"LFOKeySync", 116, 0, 1, 1},
	{"LFOWave", 116, 1, 3, 5},
	{"PitchModSens", 116, 4, 3, 7},
	{"Transpose", 117, 0, 6, 48},
	{"Name1", 118, 0, 7, 127},
	{"Name2", 119, 0, 7, 127},
	{"Name3", 120, 0, 7, 127},
	{"Name4", 121, 0, 7, 127},
	{"Name5", 122, 0, 7, 127},
	{"Name6", 123, 0, 7, 127},
	{"Name7", 124, 0, 7, 127},
	{"Name8", 125, 0, 7, 127},
	{"Name9", 126, 0, 7, 127},
	{"Name10", 127, 0, 7, 127},
}

var (
	voiceSpecs  []ParameterSpec
	specsByName map[string]*ParameterSpec
)

func init() {
	voiceSpecs = make([]ParameterSpec, 0, VoiceParamCount)

	// Operators are transmitted OP6 first.
	for op := 0; op < NumOperators; op++ {
		opNum := NumOperators - op
		for i, t := range opParamTemplate {
			id := op*opParamCount + i
			voiceSpecs = append(voiceSpecs, ParameterSpec{
				ID:          id,
				Name:        fmt.Sprintf("Op%d.%s", opNum, t.name),
				Max:         t.max,
				Unpacked:    id,
				PackedBit:   (op*opPackedStride+t.byteOff)*8 + t.shift,
				PackedWidth: t.width,
			})
		}
	}

	for i, t := range globalParams {
		id := NumOperators*opParamCount + i
		voiceSpecs = append(voiceSpecs, ParameterSpec{
			ID:          id,
			Name:        t.name,
			Max:         t.max,
			Unpacked:    id,
			PackedBit:   t.byteOff*8 + t.shift,
			PackedWidth: t.width,
		})
	}

	specsByName = make(map[string]*ParameterSpec, len(voiceSpecs))
	for i := range voiceSpecs {
		specsByName[voiceSpecs[i].Name] = &voiceSpecs[i]
	}

	if err := validateTable(); err != nil {
		panic(err)
	}
}

// validateTable guards against a corrupt table silently scrambling patches:
// the VCED offsets must tile 0..154 exactly, the VMEM bit ranges must be
// pairwise disjoint and inside the 128-byte image, and every declared
// range must fit its field width.
func validateTable() error {
	if len(voiceSpecs) != VoiceParamCount {
		return &TableIntegrityError{
			Reason: fmt.Sprintf("%d specs, want %d", len(voiceSpecs), VoiceParamCount),
		}
	}

	var unpacked [VCEDSize]bool
	var packed [VMEMSize * 8]bool

	for _, s := range voiceSpecs {
		if s.Unpacked < 0 || s.Unpacked >= VCEDSize {
			return &TableIntegrityError{
				Reason: fmt.Sprintf("%s: VCED offset %d out of bounds", s.Name, s.Unpacked),
			}
		}
		if unpacked[s.Unpacked] {
			return &TableIntegrityError{
				Reason: fmt.Sprintf("%s: VCED offset %d claimed twice", s.Name, s.Unpacked),
			}
		}
		unpacked[s.Unpacked] = true

		if s.PackedWidth < 1 || s.PackedBit < 0 || s.PackedBit+s.PackedWidth > len(packed) {
			return &TableIntegrityError{
				Reason: fmt.Sprintf("%s: VMEM bits [%d,%d) out of bounds", s.Name, s.PackedBit, s.PackedBit+s.PackedWidth),
			}
		}
		for b := s.PackedBit; b < s.PackedBit+s.PackedWidth; b++ {
			if packed[b] {
				return &TableIntegrityError{
					Reason: fmt.Sprintf("%s: VMEM bit %d claimed twice", s.Name, b),
				}
			}
			packed[b] = true
		}

		if s.Min < 0 || s.Min > s.Max || s.Max >= 1<<s.PackedWidth {
			return &TableIntegrityError{
				Reason: fmt.Sprintf("%s: range %d–%d does not fit %d bits", s.Name, s.Min, s.Max, s.PackedWidth),
			}
		}
	}
	return nil
}

// SpecFor returns the spec for a voice parameter number.
func SpecFor(id int) (ParameterSpec, error) {
	if id < 0 || id >= len(voiceSpecs) {
		return ParameterSpec{}, &UnknownParameterError{ID: id}
	}
	return voiceSpecs[id], nil
}

// SpecByName returns the spec for a parameter name, e.g. "Op1.OutputLevel".
func SpecByName(name string) (ParameterSpec, error) {
	s, ok := specsByName[name]
	if !ok {
		return ParameterSpec{}, &UnknownParameterError{Name: name}
	}
	return *s, nil
}

// AllSpecs returns the voice parameter specs in transmission order.
func AllSpecs() []ParameterSpec {
	out := make([]ParameterSpec, len(voiceSpecs))
	copy(out, voiceSpecs)
	return out
}

// Voice is one DX7 patch: a value for every parameter in the table,
// including the ten name characters. The zero value is all-zero, which is a
// valid (if silent) patch; InitVoice gives the panel INIT VOICE instead.
type Voice struct {
	values [VoiceParamCount]byte
}

var random = rand.New(rand.NewSource(time.Now().UnixNano()))

// InitVoice returns the standard DX7 init patch.
func InitVoice() *Voice {
	v := &Voice{}
	for op := 0; op < NumOperators; op++ {
		base := op * opParamCount
		for i := 0; i < 4; i++ {
			v.values[base+i] = 99 // EG rates
		}
		v.values[base+4] = 99 // EG levels 1–3
		v.values[base+5] = 99
		v.values[base+6] = 99
		v.values[base+8] = 39 // breakpoint C3
		v.values[base+18] = 1 // frequency coarse 1.00
		v.values[base+20] = 7 // detune centered
	}
	// Carrier on OP1 only (last transmitted block).
	v.values[(NumOperators-1)*opParamCount+16] = 99

	set := func(name string, val byte) {
		v.values[specsByName[name].ID] = val
	}
	set("PitchEGRate1", 99)
	set("PitchEGRate2", 99)
	set("PitchEGRate3", 99)
	set("PitchEGRate4", 99)
	set("PitchEGLevel1", 50)
	set("PitchEGLevel2", 50)
	set("PitchEGLevel3", 50)
	set("PitchEGLevel4", 50)
	set("OscKeySync", 1)
	set("LFOSpeed", 35)
	set("LFOKeySync", 1)
	set("PitchModSens", 3)
	set("Transpose", 24) // C3

	if err := v.SetName("INIT VOICE"); err != nil {
		panic(err) // literal name, cannot fail
	}
	return v
}

// Get returns the value of a voice parameter.
func (v *Voice) Get(id int) (int, error) {
	if _, err := SpecFor(id); err != nil {
		return 0, err
	}
	return int(v.values[id]), nil
}

// Set stores a voice parameter value, rejecting out-of-range values rather
// than clamping them.
func (v *Voice) Set(id, value int) error {
	spec, err := SpecFor(id)
	if err != nil {
		return err
	}
	if value < spec.Min || value > spec.Max {
		return &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: value, Min: spec.Min, Max: spec.Max}
	}
	v.values[id] = byte(value)
	return nil
}

// SetByName is Set keyed by parameter name.
func (v *Voice) SetByName(name string, value int) error {
	spec, err := SpecByName(name)
	if err != nil {
		return err
	}
	return v.Set(spec.ID, value)
}

// Name returns the patch name with trailing padding removed.
func (v *Voice) Name() string {
	name := make([]byte, VoiceNameLen)
	for i := 0; i < VoiceNameLen; i++ {
		name[i] = v.values[voiceNameOffset+i]
	}
	return strings.TrimRight(string(bytes.TrimRight(name, "\x00")), " ")
}

// SetName stores a patch name of up to ten ASCII characters, space padded.
func (v *Voice) SetName(name string) error {
	if len(name) > VoiceNameLen {
		return fmt.Errorf("voice name %q longer than %d characters", name, VoiceNameLen)
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7E {
			return fmt.Errorf("voice name %q contains non-ASCII character", name)
		}
	}
	for i := 0; i < VoiceNameLen; i++ {
		c := byte(' ')
		if i < len(name) {
			c = name[i]
		}
		v.values[voiceNameOffset+i] = c
	}
	return nil
}

// Randomize overwrites every parameter with a random in-range value. Name
// characters are constrained to printable ASCII so the result stays legible
// on a panel display.
func (v *Voice) Randomize(rng *rand.Rand) {
	if rng == nil {
		rng = random
	}
	for _, spec := range voiceSpecs {
		if spec.ID >= voiceNameOffset {
			v.values[spec.ID] = byte(0x20 + rng.Intn(0x7E-0x20+1))
			continue
		}
		v.values[spec.ID] = byte(spec.Min + rng.Intn(spec.Max-spec.Min+1))
	}
}

// validate checks every stored value against the table. Encode paths call
// this before emitting any bytes.
func (v *Voice) validate() error {
	for _, spec := range voiceSpecs {
		val := int(v.values[spec.ID])
		if val < spec.Min || val > spec.Max {
			return &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: val, Min: spec.Min, Max: spec.Max}
		}
	}
	return nil
}

// readBits extracts width bits starting at bit offset off (LSB first),
// combining partial bytes when the field straddles a byte boundary.
func readBits(buf []byte, off, width int) int {
	v, got := 0, 0
	for got < width {
		byteIdx := (off + got) / 8
		bitIdx := (off + got) % 8
		n := 8 - bitIdx
		if n > width-got {
			n = width - got
		}
		chunk := int(buf[byteIdx]>>bitIdx) & (1<<n - 1)
		v |= chunk << got
		got += n
	}
	return v
}

// writeBits is the inverse of readBits; bits outside the field are left
// untouched.
func writeBits(buf []byte, off, width, val int) {
	written := 0
	for written < width {
		byteIdx := (off + written) / 8
		bitIdx := (off + written) % 8
		n := 8 - bitIdx
		if n > width-written {
			n = width - written
		}
		mask := byte((1<<n - 1) << bitIdx)
		buf[byteIdx] = buf[byteIdx]&^mask | byte(val>>written)<<bitIdx&mask
		written += n
	}
}

// ToVMEM packs the voice into its 128-byte cartridge image.
func (v *Voice) ToVMEM() ([]byte, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	data := make([]byte, VMEMSize)
	for _, spec := range voiceSpecs {
		writeBits(data, spec.PackedBit, spec.PackedWidth, int(v.values[spec.ID]))
	}
	return data, nil
}

// ParseVMEM unpacks a 128-byte cartridge image into a Voice, rejecting any
// field whose value falls outside its declared range.
func ParseVMEM(data []byte) (*Voice, error) {
	if len(data) != VMEMSize {
		return nil, fmt.Errorf("invalid VMEM length %d (want %d)", len(data), VMEMSize)
	}
	v := &Voice{}
	for _, spec := range voiceSpecs {
		val := readBits(data, spec.PackedBit, spec.PackedWidth)
		if val < spec.Min || val > spec.Max {
			return nil, &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: val, Min: spec.Min, Max: spec.Max}
		}
		v.values[spec.ID] = byte(val)
	}
	return v, nil
}

// ToVCED serializes the voice into the 155-byte edit buffer image used by
// single-voice dumps.
func (v *Voice) ToVCED() ([]byte, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	data := make([]byte, VCEDSize)
	for _, spec := range voiceSpecs {
		data[spec.Unpacked] = v.values[spec.ID]
	}
	return data, nil
}

// ParseVCED parses a 155-byte edit buffer image.
func ParseVCED(data []byte) (*Voice, error) {
	if len(data) != VCEDSize {
		return nil, fmt.Errorf("invalid VCED length %d (want %d)", len(data), VCEDSize)
	}
	v := &Voice{}
	for _, spec := range voiceSpecs {
		val := int(data[spec.Unpacked])
		if val < spec.Min || val > spec.Max {
			return nil, &ParameterRangeError{Param: spec.Name, ID: spec.ID, Value: val, Min: spec.Min, Max: spec.Max}
		}
		v.values[spec.ID] = byte(val)
	}
	return v, nil
}

// ToSysEx builds a complete single-voice bulk dump frame.
func (v *Voice) ToSysEx(channel byte) ([]byte, error) {
	vced, err := v.ToVCED()
	if err != nil {
		return nil, err
	}
	return wrapFrame(channel, FormatVoice, vced), nil
}

// ParseVoiceDump parses a single-voice bulk dump. It accepts both the
// 155-byte VCED payload a DX7 transmits and a bare 128-byte VMEM payload.
func ParseVoiceDump(msg []byte) (*Voice, error) {
	format, payload, err := unwrapFrame(msg)
	if err != nil {
		return nil, err
	}
	if format != FormatVoice {
		return nil, &FrameError{Field: "format", Offset: 3,
			Reason: fmt.Sprintf("format 0x%02X is not a voice dump (want 0x%02X)", format, FormatVoice)}
	}
	switch len(payload) {
	case VCEDSize:
		return ParseVCED(payload)
	case VMEMSize:
		return ParseVMEM(payload)
	default:
		return nil, &FrameError{Field: "byte count", Offset: 4,
			Reason: fmt.Sprintf("voice payload of %d bytes (want %d or %d)", len(payload), VCEDSize, VMEMSize)}
	}
}

// LoadVoice reads a single voice from a .syx file: either a full dump
// frame or a bare VCED/VMEM payload.
func LoadVoice(path string) (*Voice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 && data[0] == SysExStart {
		return ParseVoiceDump(data)
	}
	switch len(data) {
	case VCEDSize:
		return ParseVCED(data)
	case VMEMSize:
		return ParseVMEM(data)
	default:
		return nil, fmt.Errorf("voice file is %d bytes, want %d or %d (optionally enveloped)",
			len(data), VCEDSize, VMEMSize)
	}
}

// Save writes the voice as an enveloped single-voice dump file.
func (v *Voice) Save(path string) error {
	msg, err := v.ToSysEx(0)
	if err != nil {
		return err
	}
	return os.WriteFile(path, msg, 0o644)
}

// MarshalJSON writes the voice as its name plus a parameter map in
// transmission order. Name characters are folded into the "name" field.
func (v *Voice) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	name, err := json.Marshal(v.Name())
	if err != nil {
		return nil, err
	}
	buf.WriteString(`{"name":`)
	buf.Write(name)
	buf.WriteString(`,"parameters":{`)
	first := true
	for _, spec := range voiceSpecs {
		if spec.ID >= voiceNameOffset {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&buf, "%q:%d", spec.Name, v.values[spec.ID])
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func (v *Voice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string         `json:"name"`
		Parameters map[string]int `json:"parameters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Voice{}
	if err := out.SetName(raw.Name); err != nil {
		return err
	}
	for name, val := range raw.Parameters {
		if err := out.SetByName(name, val); err != nil {
			return err
		}
	}
	*v = out
	return nil
}
