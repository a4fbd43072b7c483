package main

import "fmt"

const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7

	ManufacturerYamaha = 0x43

	// Sub-status values carried in the upper nibble of the third frame
	// byte; the lower nibble is the MIDI channel.
	subStatusDump        = 0x00
	subStatusParamChange = 0x10
	subStatusDumpRequest = 0x20

	FormatVoice = 0x00 // single-voice bulk dump
	FormatCart  = 0x09 // 32-voice cartridge bulk dump
)

// FrameError reports a malformed SysEx envelope and names the offending
// field so a caller can tell "not SysEx at all" from "SysEx but not ours".
type FrameError struct {
	Field  string
	Offset int
	Reason string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("sysex frame: bad %s at byte %d: %s", e.Field, e.Offset, e.Reason)
}

// ChecksumError reports a well-framed bulk dump whose checksum does not
// cover its payload.
type ChecksumError struct {
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sysex checksum mismatch: expected 0x%02X got 0x%02X", e.Want, e.Got)
}

// Checksum returns the two's-complement checksum the DX7 appends to bulk
// dumps: the byte that makes the payload sum to zero mod 0x80.
func Checksum(payload []byte) byte {
	var sum int
	for _, b := range payload {
		sum += int(b)
	}
	return byte((0x100-sum%0x100)%0x100) & 0x7F
}

// VerifyChecksum reports whether claimed is the checksum of payload.
func VerifyChecksum(payload []byte, claimed byte) bool {
	return Checksum(payload) == claimed
}

// wrapFrame builds a bulk dump frame: start, manufacturer, sub-status with
// channel, format, 14-bit big-endian byte count, payload, checksum,
// terminator.
func wrapFrame(channel byte, format byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+8)
	out = append(out,
		SysExStart,
		ManufacturerYamaha,
		subStatusDump|channel&0x0F,
		format,
		byte(len(payload)>>7)&0x7F,
		byte(len(payload))&0x7F,
	)
	out = append(out, payload...)
	out = append(out, Checksum(payload), SysExEnd)
	return out
}

// unwrapFrame validates a bulk dump envelope and returns the format id and
// payload. Field order matters: framing is checked before the checksum so
// callers can distinguish a non-frame from a corrupt one.
func unwrapFrame(msg []byte) (format byte, payload []byte, err error) {
	if len(msg) < 8 {
		return 0, nil, &FrameError{Field: "length", Offset: len(msg),
			Reason: fmt.Sprintf("%d bytes is too short for a bulk dump frame", len(msg))}
	}
	if msg[0] != SysExStart {
		return 0, nil, &FrameError{Field: "start marker", Offset: 0,
			Reason: fmt.Sprintf("0x%02X is not 0x%02X", msg[0], SysExStart)}
	}
	if last := msg[len(msg)-1]; last != SysExEnd {
		return 0, nil, &FrameError{Field: "terminator", Offset: len(msg) - 1,
			Reason: fmt.Sprintf("0x%02X is not 0x%02X", last, SysExEnd)}
	}
	if msg[1] != ManufacturerYamaha {
		return 0, nil, &FrameError{Field: "manufacturer", Offset: 1,
			Reason: fmt.Sprintf("0x%02X is not Yamaha (0x%02X)", msg[1], ManufacturerYamaha)}
	}
	if msg[2]&0xF0 != subStatusDump {
		return 0, nil, &FrameError{Field: "sub-status", Offset: 2,
			Reason: fmt.Sprintf("0x%02X is not a bulk dump", msg[2])}
	}

	format = msg[3]
	declared := int(msg[4])<<7 | int(msg[5])
	payload = msg[6 : len(msg)-2]
	if declared != len(payload) {
		return 0, nil, &FrameError{Field: "byte count", Offset: 4,
			Reason: fmt.Sprintf("header declares %d payload bytes, frame holds %d", declared, len(payload))}
	}

	if claimed := msg[len(msg)-2]; !VerifyChecksum(payload, claimed) {
		return 0, nil, &ChecksumError{Want: Checksum(payload), Got: claimed}
	}
	return format, payload, nil
}
