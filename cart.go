package main

import (
	"fmt"
	"os"
)

const (
	CartVoices      = 32
	CartPayloadSize = CartVoices * VMEMSize // 4096
)

// MalformedCartError reports a payload whose length cannot be a 32-voice
// cartridge; the usual cause is a single-voice dump routed to the cart
// parser.
type MalformedCartError struct {
	Length int
}

func (e *MalformedCartError) Error() string {
	return fmt.Sprintf("cart payload is %d bytes, want exactly %d (32 × %d)",
		e.Length, CartPayloadSize, VMEMSize)
}

// Cart is a cartridge of exactly 32 voices. The zero value holds 32
// all-zero voices; InitCart fills every slot with the init patch.
type Cart struct {
	voices [CartVoices]Voice
}

// NewCart builds a cart from exactly 32 voices.
func NewCart(voices []Voice) (*Cart, error) {
	if len(voices) != CartVoices {
		return nil, fmt.Errorf("cart needs exactly %d voices, got %d", CartVoices, len(voices))
	}
	c := &Cart{}
	copy(c.voices[:], voices)
	return c, nil
}

// InitCart returns a cart of 32 init voices.
func InitCart() *Cart {
	c := &Cart{}
	init := InitVoice()
	for i := range c.voices {
		c.voices[i] = *init
	}
	return c
}

// VoiceAt returns a pointer to the voice in slot i (0–31) for in-place
// editing.
func (c *Cart) VoiceAt(i int) (*Voice, error) {
	if i < 0 || i >= CartVoices {
		return nil, fmt.Errorf("voice index %d out of range 0–%d", i, CartVoices-1)
	}
	return &c.voices[i], nil
}

// SetVoice stores a copy of v in slot i.
func (c *Cart) SetVoice(i int, v *Voice) error {
	if i < 0 || i >= CartVoices {
		return fmt.Errorf("voice index %d out of range 0–%d", i, CartVoices-1)
	}
	c.voices[i] = *v
	return nil
}

// VoiceNames returns the 32 patch names in slot order.
func (c *Cart) VoiceNames() []string {
	names := make([]string, CartVoices)
	for i := range c.voices {
		names[i] = c.voices[i].Name()
	}
	return names
}

// ToVMEM packs all 32 voices into the 4096-byte cartridge payload.
func (c *Cart) ToVMEM() ([]byte, error) {
	data := make([]byte, 0, CartPayloadSize)
	for i := range c.voices {
		vmem, err := c.voices[i].ToVMEM()
		if err != nil {
			return nil, fmt.Errorf("voice %d: %w", i, err)
		}
		data = append(data, vmem...)
	}
	return data, nil
}

// ParseCartVMEM unpacks a 4096-byte cartridge payload.
func ParseCartVMEM(data []byte) (*Cart, error) {
	if len(data) != CartPayloadSize {
		return nil, &MalformedCartError{Length: len(data)}
	}
	c := &Cart{}
	for i := 0; i < CartVoices; i++ {
		v, err := ParseVMEM(data[i*VMEMSize : (i+1)*VMEMSize])
		if err != nil {
			return nil, fmt.Errorf("voice %d: %w", i, err)
		}
		c.voices[i] = *v
	}
	return c, nil
}

// ToSysEx builds a complete cartridge bulk dump frame. The checksum covers
// the whole 4096-byte payload, not each voice.
func (c *Cart) ToSysEx(channel byte) ([]byte, error) {
	payload, err := c.ToVMEM()
	if err != nil {
		return nil, err
	}
	return wrapFrame(channel, FormatCart, payload), nil
}

// ParseCartDump parses a cartridge bulk dump frame.
func ParseCartDump(msg []byte) (*Cart, error) {
	format, payload, err := unwrapFrame(msg)
	if err != nil {
		return nil, err
	}
	if format != FormatCart {
		return nil, &FrameError{Field: "format", Offset: 3,
			Reason: fmt.Sprintf("format 0x%02X is not a cartridge dump (want 0x%02X)", format, FormatCart)}
	}
	return ParseCartVMEM(payload)
}

// LoadCart reads a cartridge from a .syx file. Files written by Dexed carry
// the full SysEx envelope; some tools store the bare 4096-byte payload, so
// both are accepted.
func LoadCart(path string) (*Cart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 && data[0] == SysExStart {
		return ParseCartDump(data)
	}
	return ParseCartVMEM(data)
}

// Save writes the cartridge as an enveloped .syx file, the layout Dexed
// itself ships cartridges in.
func (c *Cart) Save(path string) error {
	msg, err := c.ToSysEx(0)
	if err != nil {
		return err
	}
	return os.WriteFile(path, msg, 0o644)
}
