package rigcloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/alexandrut83/rigdash/telemetry"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// FrameKind identifies which of the server message shapes a frame matched
type FrameKind int

// Frame kinds, in the order they are checked
const (
	FrameUnknown FrameKind = iota
	FrameCommandResponse
	FrameSnapshot
	FrameDelta
	FrameLegacy
)

func (k FrameKind) String() string {
	switch k {
	case FrameCommandResponse:
		return "cmd_response"
	case FrameSnapshot:
		return "snapshot"
	case FrameDelta:
		return "delta"
	case FrameLegacy:
		return "legacy"
	}
	return "unknown"
}

// RigEntry is the last telemetry received for one rig
type RigEntry struct {
	Timestamp float64            `json:"timestamp"`
	Data      telemetry.Snapshot `json:"data"`
}

// CommandResponse is a rig's answer to a dispatched command
type CommandResponse struct {
	Rig        string `json:"rig"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// Format renders the response the way it is appended to the command log
func (r CommandResponse) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] returncode=%d\n", r.Rig, r.ReturnCode)
	if r.Stdout != "" {
		b.WriteString(r.Stdout + "\n")
	}
	if r.Stderr != "" {
		b.WriteString(r.Stderr + "\n")
	}
	return b.String()
}

// Frame is a decoded server message
type Frame struct {
	Kind     FrameKind
	Response CommandResponse
	Rigs     map[string]RigEntry
	Rig      string
	Entry    RigEntry
}

// envelope holds every top-level key a server message may carry
type envelope struct {
	CmdResponse json.RawMessage `json:"cmd_response"`
	Rigs        json.RawMessage `json:"rigs"`
	Rig         json.RawMessage `json:"rig"`
	Data        json.RawMessage `json:"data"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

// DecodeFrame classifies a text frame. Shapes are tried in a fixed order:
// command response, full snapshot, single-rig delta, legacy payload. The
// first match wins; a frame matching none decodes as FrameUnknown.
func DecodeFrame(data []byte, now time.Time) (Frame, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	switch {
	case truthy(env.CmdResponse):
		var resp CommandResponse
		if err := codec.Unmarshal(env.CmdResponse, &resp); err != nil {
			return Frame{}, fmt.Errorf("decode cmd_response: %w", err)
		}
		return Frame{Kind: FrameCommandResponse, Response: resp}, nil

	case truthy(env.Rigs):
		rigs := make(map[string]RigEntry)
		if err := codec.Unmarshal(env.Rigs, &rigs); err != nil {
			return Frame{}, fmt.Errorf("decode rigs: %w", err)
		}
		return Frame{Kind: FrameSnapshot, Rigs: rigs}, nil

	case truthy(env.Rig) && truthy(env.Data):
		name, err := rigName(env.Rig)
		if err != nil {
			return Frame{}, err
		}
		snap, err := telemetry.DecodeSnapshot(env.Data)
		if err != nil {
			return Frame{}, err
		}
		return Frame{
			Kind:  FrameDelta,
			Rig:   name,
			Entry: RigEntry{Timestamp: timestampOr(env.Timestamp, now), Data: snap},
		}, nil

	case truthy(env.Payload):
		var payload struct {
			Rig       json.RawMessage `json:"rig"`
			Timestamp json.RawMessage `json:"timestamp"`
		}
		if err := codec.Unmarshal(env.Payload, &payload); err != nil {
			return Frame{}, fmt.Errorf("decode payload: %w", err)
		}
		if !truthy(payload.Rig) {
			return Frame{Kind: FrameUnknown}, nil
		}
		name, err := rigName(payload.Rig)
		if err != nil {
			return Frame{}, err
		}
		snap, err := telemetry.DecodeSnapshot(env.Payload)
		if err != nil {
			return Frame{}, err
		}
		return Frame{
			Kind:  FrameLegacy,
			Rig:   name,
			Entry: RigEntry{Timestamp: timestampOr(payload.Timestamp, now), Data: snap},
		}, nil
	}

	return Frame{Kind: FrameUnknown}, nil
}

// truthy mirrors how the server's JavaScript clients test for a key
func truthy(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	switch v {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func rigName(raw json.RawMessage) (string, error) {
	var v interface{}
	if err := codec.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("decode rig name: %w", err)
	}
	switch n := v.(type) {
	case string:
		return n, nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("rig name has unexpected type %T", v)
}

func timestampOr(raw json.RawMessage, now time.Time) float64 {
	if truthy(raw) {
		var ts float64
		if err := codec.Unmarshal(raw, &ts); err == nil {
			return ts
		}
	}
	return float64(now.Unix())
}
