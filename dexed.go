package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Dexed is a handle on the MIDI output port a Dexed instance (or a real
// DX7) listens on. It only moves complete frames; all message building and
// parsing lives in the codec.
type Dexed struct {
	channel byte
	out     drivers.Out
}

func OpenDexed(channel byte, portIndex int) (*Dexed, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Println("Opened Dexed MIDI output port", out.String())
	return &Dexed{
		channel: channel & 0x0F,
		out:     out,
	}, closer, nil
}

// Send transmits a MIDI message to the Dexed output port.
func (d *Dexed) Send(msg midi.Message) error {
	if !d.out.IsOpen() {
		if err := d.out.Open(); err != nil {
			return err
		}
	}
	return d.out.Send(msg.Bytes())
}

// SendSysEx transmits a raw SysEx frame.
func (d *Dexed) SendSysEx(data []byte) error {
	return d.Send(midi.Message(data))
}

// SendVoice transmits v as a single-voice bulk dump into the edit buffer.
func (d *Dexed) SendVoice(v *Voice) error {
	msg, err := v.ToSysEx(d.channel)
	if err != nil {
		return fmt.Errorf("failed to build voice dump: %w", err)
	}
	if err := d.SendSysEx(msg); err != nil {
		return fmt.Errorf("failed to send voice %q: %w", v.Name(), err)
	}
	return nil
}

// SendCart transmits c as a 32-voice cartridge bulk dump.
func (d *Dexed) SendCart(c *Cart) error {
	msg, err := c.ToSysEx(d.channel)
	if err != nil {
		return fmt.Errorf("failed to build cart dump: %w", err)
	}
	if err := d.SendSysEx(msg); err != nil {
		return fmt.Errorf("failed to send cart: %w", err)
	}
	return nil
}

// SendChange transmits a single-parameter change.
func (d *Dexed) SendChange(pc ParameterChange) error {
	msg, err := pc.ToSysEx(d.channel)
	if err != nil {
		return fmt.Errorf("failed to build parameter change: %w", err)
	}
	if err := d.SendSysEx(msg); err != nil {
		return fmt.Errorf("failed to send %s parameter %d: %w", pc.Group, pc.Param, err)
	}
	return nil
}

// RequestVoiceDump asks the device for its edit buffer and waits for the
// voice dump reply.
func (d *Dexed) RequestVoiceDump(inPort drivers.In) (*Voice, error) {
	msgCh := make(chan midi.Message, 1)

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		if len(msg) > 0 && msg[0] == SysExStart {
			select {
			case msgCh <- msg:
			default:
			}
		}
	}, midi.UseSysEx(), midi.SysExBufferSize(8192))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for voice dump: %w", err)
	}
	defer stop()

	log.Printf("Requesting voice dump on channel %d", d.channel+1)
	req := []byte{SysExStart, ManufacturerYamaha, subStatusDumpRequest | d.channel, FormatVoice, SysExEnd}
	if err := d.SendSysEx(req); err != nil {
		return nil, fmt.Errorf("failed to request voice dump: %w", err)
	}

	select {
	case msg := <-msgCh:
		log.Println("Received SysEx message")
		return ParseVoiceDump(msg)
	case <-time.After(5 * time.Second):
	}

	return nil, errors.New("timed out waiting for voice dump")
}
