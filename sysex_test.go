package main

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksumVectors(t *testing.T) {
	if got := Checksum(nil); got != 0 {
		t.Errorf("checksum of empty payload: got 0x%02X, want 0x00", got)
	}
	if got := Checksum([]byte{0x7F}); got != 0x01 {
		t.Errorf("checksum of [0x7F]: got 0x%02X, want 0x01", got)
	}
	// 0x63 + 0x1D = 0x80, so the payload already sums to zero mod 0x80.
	if got := Checksum([]byte{0x63, 0x1D}); got != 0 {
		t.Errorf("checksum of [0x63 0x1D]: got 0x%02X, want 0x00", got)
	}
}

func TestChecksumVerify(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0x7F, 0x7F, 0x7F},
		{0x01, 0x02, 0x03, 0x04, 0x05},
	}
	for _, p := range payloads {
		if !VerifyChecksum(p, Checksum(p)) {
			t.Errorf("verify failed for payload % X", p)
		}
	}
}

func TestChecksumDetectsBitFlips(t *testing.T) {
	payload := []byte{0x12, 0x34, 0x56, 0x07}
	sum := Checksum(payload)

	for i := range payload {
		for bit := 0; bit < 7; bit++ {
			flipped := make([]byte, len(payload))
			copy(flipped, payload)
			flipped[i] ^= 1 << bit
			if VerifyChecksum(flipped, sum) {
				t.Errorf("flipping bit %d of byte %d went undetected", bit, i)
			}
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	msg := wrapFrame(2, FormatVoice, payload)

	want := []byte{SysExStart, ManufacturerYamaha, 0x02, FormatVoice, 0x00, 0x05}
	if !bytes.Equal(msg[:6], want) {
		t.Fatalf("frame header % X, want % X", msg[:6], want)
	}
	if msg[len(msg)-1] != SysExEnd {
		t.Fatalf("frame does not end in F7: % X", msg)
	}

	format, got, err := unwrapFrame(msg)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if format != FormatVoice {
		t.Errorf("format: got 0x%02X, want 0x%02X", format, FormatVoice)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload: got % X, want % X", got, payload)
	}
}

func TestUnwrapFrameErrors(t *testing.T) {
	valid := wrapFrame(0, FormatVoice, []byte{10, 20, 30})

	corrupt := func(mutate func(msg []byte) []byte) []byte {
		msg := make([]byte, len(valid))
		copy(msg, valid)
		return mutate(msg)
	}

	cases := []struct {
		name  string
		msg   []byte
		field string
	}{
		{
			name:  "truncated before byte count",
			msg:   valid[:5],
			field: "length",
		},
		{
			name: "not a sysex message",
			msg: corrupt(func(m []byte) []byte {
				m[0] = 0x90
				return m
			}),
			field: "start marker",
		},
		{
			name: "missing terminator",
			msg: corrupt(func(m []byte) []byte {
				return m[:len(m)-1]
			}),
			field: "terminator",
		},
		{
			name: "wrong manufacturer",
			msg: corrupt(func(m []byte) []byte {
				m[1] = 0x42
				return m
			}),
			field: "manufacturer",
		},
		{
			name: "not a bulk dump",
			msg: corrupt(func(m []byte) []byte {
				m[2] = subStatusParamChange
				return m
			}),
			field: "sub-status",
		},
		{
			name: "byte count mismatch",
			msg: corrupt(func(m []byte) []byte {
				m[5] = 0x04
				return m
			}),
			field: "byte count",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := unwrapFrame(tc.msg)
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("got %v, want a FrameError", err)
			}
			if fe.Field != tc.field {
				t.Errorf("failed field %q, want %q", fe.Field, tc.field)
			}
		})
	}
}

func TestUnwrapChecksumMismatch(t *testing.T) {
	msg := wrapFrame(0, FormatVoice, []byte{10, 20, 30})
	msg[7] ^= 0x01 // corrupt a payload byte, framing stays intact

	_, _, err := unwrapFrame(msg)
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want a ChecksumError", err)
	}
	if ce.Want == ce.Got {
		t.Errorf("checksum error with matching bytes: %+v", ce)
	}
}
