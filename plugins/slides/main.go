// Command slides is an irplan plugin that drives a presentation: it sends a
// navigation key to the focused application when a gesture fires.
//
// Build it into the plugin directory next to plugin.json:
//
//	go build -o ~/.irplan/plugins/slides/slides ./plugins/slides
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

type request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
}

type response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// config overrides the key sent for an action.
type config struct {
	Key string `json:"key"`
}

// defaultKeys maps each action to the key it sends.
var defaultKeys = map[string]string{
	"next":     "right",
	"previous": "left",
	"first":    "home",
	"last":     "end",
	"blank":    "b",
}

// macKeyCodes holds System Events key codes for non-character keys.
var macKeyCodes = map[string]int{
	"right": 124,
	"left":  123,
	"home":  115,
	"end":   119,
	"space": 49,
}

// xdotoolNames maps key names to X keysyms.
var xdotoolNames = map[string]string{
	"right": "Right",
	"left":  "Left",
	"home":  "Home",
	"end":   "End",
	"space": "space",
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fail("decode request: %v", err)
		return
	}

	key, err := resolveKey(req)
	if err != nil {
		fail("%v", err)
		return
	}

	if err := sendKey(key); err != nil {
		fail("%s: %v", req.Action, err)
		return
	}

	data, _ := json.Marshal(map[string]string{"key": key})
	json.NewEncoder(os.Stdout).Encode(response{Success: true, Data: data})
}

func resolveKey(req request) (string, error) {
	key, ok := defaultKeys[req.Action]
	if !ok {
		return "", fmt.Errorf("unknown action: %s", req.Action)
	}

	if len(req.Config) > 0 {
		var c config
		if err := json.Unmarshal(req.Config, &c); err != nil {
			return "", fmt.Errorf("parse config: %w", err)
		}
		if c.Key != "" {
			key = strings.ToLower(c.Key)
		}
	}
	return key, nil
}

func sendKey(key string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
		if code, ok := macKeyCodes[key]; ok {
			script = fmt.Sprintf(`tell application "System Events" to key code %d`, code)
		}
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		name := key
		if n, ok := xdotoolNames[key]; ok {
			name = n
		}
		cmd = exec.Command("xdotool", "key", name)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func fail(format string, args ...any) {
	json.NewEncoder(os.Stdout).Encode(response{Error: fmt.Sprintf(format, args...)})
}
