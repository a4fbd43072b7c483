package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"gitlab.com/gomidi/midi/v2"
)

func getVoice(inPortIdx int, dx *Dexed) {
	v, err := dx.RequestVoiceDump(midi.GetInPorts()[inPortIdx])
	if err != nil {
		log.Fatalf("failed to read voice: %v", err)
	}
	log.Println("Voice name", v.Name())

	asJson, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal voice to JSON: %v", err)
	}

	fmt.Println(string(asJson))
}

func setVoice(dx *Dexed) {
	voice := &Voice{}

	asJson, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read voice JSON from stdin: %v", err)
	}

	if err := json.Unmarshal(asJson, voice); err != nil {
		log.Fatalf("failed to unmarshal voice JSON: %v", err)
	}

	if err := dx.SendVoice(voice); err != nil {
		log.Fatalf("failed to send voice: %v", err)
	}
}

// tweakParam sends a single parameter change. The name is looked up in the
// voice table first, then the function table.
func tweakParam(dx *Dexed, name, valueStr string) {
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("invalid value %q: %v", valueStr, err)
	}

	pc := ParameterChange{Group: GroupVoice, Value: value}
	if spec, lookupErr := SpecByName(name); lookupErr == nil {
		pc.Param = spec.ID
	} else if spec, lookupErr := FunctionSpecByName(name); lookupErr == nil {
		pc.Group = GroupFunction
		pc.Param = spec.ID
	} else {
		log.Fatalf("no voice or function parameter named %q", name)
	}

	if err := dx.SendChange(pc); err != nil {
		log.Fatalf("failed to send parameter change: %v", err)
	}
	log.Printf("Sent %s parameter %d = %d", pc.Group, pc.Param, pc.Value)
}

func sendVoiceFile(dx *Dexed, path string) {
	voice, err := LoadVoice(path)
	if err != nil {
		log.Fatalf("failed to load voice %s: %v", path, err)
	}
	if err := dx.SendVoice(voice); err != nil {
		log.Fatalf("failed to send voice: %v", err)
	}
	log.Printf("Sent voice %q", voice.Name())
}

func sendCartFile(dx *Dexed, path string) {
	cart, err := LoadCart(path)
	if err != nil {
		log.Fatalf("failed to load cart %s: %v", path, err)
	}
	if err := dx.SendCart(cart); err != nil {
		log.Fatalf("failed to send cart: %v", err)
	}
	log.Printf("Sent cart %s (%d voices)", path, CartVoices)
}

func listCartFile(path string) {
	cart, err := LoadCart(path)
	if err != nil {
		log.Fatalf("failed to load cart %s: %v", path, err)
	}
	for i, name := range cart.VoiceNames() {
		fmt.Printf("%2d  %s\n", i+1, name)
	}
}
