package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInit_JSONCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", JSON: true, Output: &buf})

	productLogger := WithProductID("array_1")
	productLogger.Info().Msg("new subarray built")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not one JSON line: %v (%q)", err, buf.String())
	}
	if line["product_id"] != "array_1" {
		t.Errorf("product_id = %v, want array_1", line["product_id"])
	}
	if line["message"] != "new subarray built" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", JSON: true, Output: &buf})

	componentLogger := WithComponent("coordinator")
	componentLogger.Debug().Msg("dropped")
	componentLogger.Warn().Msg("kept")

	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("level filtering wrong, output: %q", out)
	}
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", JSON: true, Output: &buf})

	hostLogger := WithHost("blpn0")
	hostLogger.Info().Msg("still visible")

	if !strings.Contains(buf.String(), "still visible") {
		t.Errorf("info line suppressed under fallback level, output: %q", buf.String())
	}
}
