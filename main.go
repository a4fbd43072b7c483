package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	const (
		// Dexed listens on channel 1 (0-based value 0) by default.
		dexedChannel byte = 0
		nameHint          = "dexed"
	)

	log.Println("Available MIDI outputs:")
	log.Print(midi.GetOutPorts().String())

	portIdx, err := findOutPort(nameHint)
	if err != nil {
		log.Fatalf("could not find Dexed MIDI out port: %v", err)
	}

	inPortIdx, err := findInPort(nameHint)
	if err != nil {
		log.Fatalf("could not find Dexed MIDI in port: %v", err)
	}

	dx, closer, err := OpenDexed(dexedChannel, portIdx)
	if err != nil {
		log.Fatalf("failed to open Dexed output: %v", err)
	}
	defer closer()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "get":
			getVoice(inPortIdx, dx)
			return
		case "set":
			setVoice(dx)
			return
		case "tweak":
			if len(os.Args) < 4 {
				log.Fatal("usage: tweak <parameter> <value>")
			}
			tweakParam(dx, os.Args[2], os.Args[3])
			return
		case "sendvoice":
			if len(os.Args) < 3 {
				log.Fatal("usage: sendvoice <file.syx>")
			}
			sendVoiceFile(dx, os.Args[2])
			return
		case "sendcart":
			if len(os.Args) < 3 {
				log.Fatal("usage: sendcart <file.syx>")
			}
			sendCartFile(dx, os.Args[2])
			return
		case "listcart":
			if len(os.Args) < 3 {
				log.Fatal("usage: listcart <file.syx>")
			}
			listCartFile(os.Args[2])
			return

		case "mcp":
			runMCP(inPortIdx, dx)
			return

		default:
			log.Fatalf("unknown command %q", os.Args[1])
		}
	}
	log.Println("exiting: no command specified")
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (int, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return -1, fmt.Errorf("no MIDI inputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI input contains %q", nameFragment)
}
