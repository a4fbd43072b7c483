package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func randomCart(t *testing.T, seed int64) *Cart {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	c := InitCart()
	for i := 0; i < CartVoices; i++ {
		v, err := c.VoiceAt(i)
		if err != nil {
			t.Fatal(err)
		}
		v.Randomize(rng)
	}
	return c
}

func TestNewCartLength(t *testing.T) {
	if _, err := NewCart(make([]Voice, CartVoices)); err != nil {
		t.Errorf("32 voices rejected: %v", err)
	}
	if _, err := NewCart(make([]Voice, CartVoices-1)); err == nil {
		t.Error("31 voices accepted")
	}
	if _, err := NewCart(make([]Voice, CartVoices+1)); err == nil {
		t.Error("33 voices accepted")
	}
}

func TestCartVMEMRoundTrip(t *testing.T) {
	c := randomCart(t, 2)

	payload, err := c.ToVMEM()
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if len(payload) != CartPayloadSize {
		t.Fatalf("payload is %d bytes, want %d", len(payload), CartPayloadSize)
	}

	c2, err := ParseCartVMEM(payload)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if *c != *c2 {
		t.Fatal("cart round trip changed a voice")
	}
}

func TestCartPayloadLength(t *testing.T) {
	for _, n := range []int{0, VMEMSize, CartPayloadSize - 1, CartPayloadSize + 1} {
		_, err := ParseCartVMEM(make([]byte, n))
		var mce *MalformedCartError
		if !errors.As(err, &mce) {
			t.Errorf("length %d: got %v, want MalformedCartError", n, err)
			continue
		}
		if mce.Length != n {
			t.Errorf("error reports length %d, want %d", mce.Length, n)
		}
	}

	if _, err := ParseCartVMEM(make([]byte, CartPayloadSize)); err != nil {
		t.Errorf("exactly %d bytes rejected: %v", CartPayloadSize, err)
	}
}

func TestCartUnpackNamesOffendingVoice(t *testing.T) {
	c := InitCart()
	payload, err := c.ToVMEM()
	if err != nil {
		t.Fatal(err)
	}
	payload[3*VMEMSize] = 0x7F // voice 3, Op6.EGRate1 = 127

	_, err = ParseCartVMEM(payload)
	var re *ParameterRangeError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want ParameterRangeError", err)
	}
	if !strings.Contains(err.Error(), "voice 3") {
		t.Errorf("error %q does not name the offending voice", err)
	}
}

func TestCartDumpRoundTrip(t *testing.T) {
	c := randomCart(t, 3)

	msg, err := c.ToSysEx(1)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}

	wantHeader := []byte{0xF0, 0x43, 0x01, 0x09, 0x20, 0x00}
	for i, b := range wantHeader {
		if msg[i] != b {
			t.Fatalf("header byte %d is 0x%02X, want 0x%02X", i, msg[i], b)
		}
	}
	if len(msg) != CartPayloadSize+8 {
		t.Fatalf("dump is %d bytes, want %d", len(msg), CartPayloadSize+8)
	}

	c2, err := ParseCartDump(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if *c != *c2 {
		t.Fatal("cart dump round trip changed a voice")
	}
}

func TestCartFileRoundTrip(t *testing.T) {
	c := randomCart(t, 4)
	for i := 0; i < CartVoices; i++ {
		v, err := c.VoiceAt(i)
		if err != nil {
			t.Fatal(err)
		}
		if err := v.SetName(fmt.Sprintf("SLOT%c", 'A'+i%26)); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "test_cart.syx")
	if err := c.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	c2, err := LoadCart(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *c != *c2 {
		t.Fatal("cart file round trip changed a voice")
	}
	if names := c2.VoiceNames(); names[0] != "SLOTA" {
		t.Errorf("voice 0 name came back as %q", names[0])
	}
}

func TestLoadCartBarePayload(t *testing.T) {
	c := randomCart(t, 5)
	payload, err := c.ToVMEM()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bare_cart.syx")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	c2, err := LoadCart(path)
	if err != nil {
		t.Fatalf("load of bare payload failed: %v", err)
	}
	if *c != *c2 {
		t.Fatal("bare payload round trip changed a voice")
	}
}

func TestCartVoiceAccess(t *testing.T) {
	c := InitCart()

	if _, err := c.VoiceAt(-1); err == nil {
		t.Error("negative index accepted")
	}
	if _, err := c.VoiceAt(CartVoices); err == nil {
		t.Error("index 32 accepted")
	}

	v := InitVoice()
	if err := v.SetName("SAVED"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetVoice(7, v); err != nil {
		t.Fatal(err)
	}
	got, err := c.VoiceAt(7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "SAVED" {
		t.Errorf("slot 7 name is %q", got.Name())
	}
}
