package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	_ "embed"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gitlab.com/gomidi/midi/v2"
)

func runMCP(inPortIdx int, dx *Dexed) {

	s := server.NewMCPServer(
		"Dexed MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("dexed_describe-sysex",
		mcp.WithDescription("Returns the DX7 SysEx implementation description used by Dexed."),
	)

	s.AddTool(docTool, docToolHandler)

	getVoiceTool := mcp.NewTool("dexed_get-voice",
		mcp.WithDescription("Retrieves the edit buffer voice from Dexed."),
	)
	s.AddTool(getVoiceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get voice request.")

		voice, err := dx.RequestVoiceDump(midi.GetInPorts()[inPortIdx])
		if err != nil {
			return nil, fmt.Errorf("failed to read voice: %v", err)
		}

		asJson, err := json.MarshalIndent(voice, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal voice to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	sendVoiceTool := mcp.NewTool("dexed_send-voice",
		mcp.WithDescription("Sends a voice to the Dexed edit buffer."),
		mcp.WithString("voice-json", mcp.Required(), mcp.Description("The voice data in JSON format. The JSON must conform to the Voice structure: a name plus a parameters map.")),
	)
	s.AddTool(sendVoiceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling send voice request.")

		voiceJson, err := request.RequireString("voice-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var voice Voice
		if err := json.Unmarshal([]byte(voiceJson), &voice); err != nil {
			return nil, fmt.Errorf("failed to unmarshal voice JSON: %v", err)
		}

		if err := dx.SendVoice(&voice); err != nil {
			return nil, fmt.Errorf("failed to send voice: %v", err)
		}

		return mcp.NewToolResultText("Voice sent successfully."), nil
	})

	setParameterTool := mcp.NewTool("dexed_set-parameter",
		mcp.WithDescription("Changes a single voice or function parameter on Dexed without resending the whole voice."),
		mcp.WithString("parameter", mcp.Required(), mcp.Description("Parameter name, e.g. Op1.OutputLevel, Algorithm, or a function parameter like PitchBendRange.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("The new parameter value, within the parameter's declared range.")),
	)
	s.AddTool(setParameterTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling set parameter request.")

		name, err := request.RequireString("parameter")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := request.RequireInt("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		pc := ParameterChange{Group: GroupVoice, Value: value}
		if spec, lookupErr := SpecByName(name); lookupErr == nil {
			pc.Param = spec.ID
		} else if spec, lookupErr := FunctionSpecByName(name); lookupErr == nil {
			pc.Group = GroupFunction
			pc.Param = spec.ID
		} else {
			return mcp.NewToolResultError(fmt.Sprintf("no voice or function parameter named %q", name)), nil
		}

		if err := dx.SendChange(pc); err != nil {
			return nil, fmt.Errorf("failed to send parameter change: %v", err)
		}

		return mcp.NewToolResultText("Parameter change sent successfully."), nil
	})

	loadCartTool := mcp.NewTool("dexed_load-cart",
		mcp.WithDescription("Loads a .syx cartridge file and returns its 32 voice names."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .syx cartridge file.")),
	)
	s.AddTool(loadCartTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling load cart request.")

		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		cart, err := LoadCart(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %v", err)
		}

		var sb strings.Builder
		for i, name := range cart.VoiceNames() {
			fmt.Fprintf(&sb, "%2d  %s\n", i+1, name)
		}
		return mcp.NewToolResultText(sb.String()), nil
	})

	sendCartTool := mcp.NewTool("dexed_send-cart",
		mcp.WithDescription("Loads a .syx cartridge file and transmits it to Dexed as a bulk dump."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the .syx cartridge file.")),
	)
	s.AddTool(sendCartTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling send cart request.")

		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		cart, err := LoadCart(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %v", err)
		}

		if err := dx.SendCart(cart); err != nil {
			return nil, fmt.Errorf("failed to send cart: %v", err)
		}

		return mcp.NewToolResultText("Cart sent successfully."), nil
	})

	log.Println("Starting Dexed MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}

}

//go:embed dx7_sysex_format.txt
var sysexDoc string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling SysEx documentation request.")

	return mcp.NewToolResultText(sysexDoc), nil
}
