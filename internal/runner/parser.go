// -----------------------------------------------------------------------
// Progress Parser - Structured JSON and log-tail telemetry extraction
// -----------------------------------------------------------------------

package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Defaults applied when the structured payload omits optional fields
const (
	defaultTemperature = 25.0
	defaultPH          = 12.0
)

// tailChunkSize bounds how much of the stdout log is read when extracting
// the tail. Progress lines are short; 64KB comfortably covers the window.
const tailChunkSize = 64 * 1024

// telemetry is a raw reading from either protocol, before percent/ETA
// derivation.
type telemetry struct {
	Cycle     int
	MaxCycles int
	TimeHours float64
	DOH       float64
	TempC     float64
	PH        float64
}

// progressPayload mirrors the JSON snapshot the solver writes. Pointer
// fields distinguish absent from zero so defaults can be applied.
type progressPayload struct {
	Cycle       int      `json:"cycle"`
	TimeHours   float64  `json:"time_hours"`
	DOH         float64  `json:"degree_of_hydration"`
	Temperature *float64 `json:"temperature_celsius"`
	PH          *float64 `json:"ph"`
	Timestamp   string   `json:"timestamp"`
}

// ParseProgressFile reads and decodes the solver's progress.json. Some
// solver builds write a literal "json " prefix before the object; it is
// stripped before decoding.
func ParseProgressFile(path string) (telemetry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return telemetry{}, fmt.Errorf("read progress file: %w", err)
	}

	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte("json "))

	var payload progressPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return telemetry{}, fmt.Errorf("decode progress file: %w", err)
	}

	t := telemetry{
		Cycle:     payload.Cycle,
		TimeHours: payload.TimeHours,
		DOH:       payload.DOH,
		TempC:     defaultTemperature,
		PH:        defaultPH,
	}
	if payload.Temperature != nil {
		t.TempC = *payload.Temperature
	}
	if payload.PH != nil {
		t.PH = *payload.PH
	}
	return t, nil
}

// Legacy stdout format:
//
//	PROGRESS: Cycle=1224/2444 Time=673.078125 DOH=0.710882 Temp=25.000000 pH=13.351768
var (
	reCycle = regexp.MustCompile(`Cycle=(\d+)/(\d+)`)
	reTime  = regexp.MustCompile(`Time=([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
	reDOH   = regexp.MustCompile(`DOH=([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
	reTemp  = regexp.MustCompile(`Temp=([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
	rePH    = regexp.MustCompile(`pH=([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)`)
)

const progressLinePrefix = "PROGRESS:"

// ParseLogTail scans the supplied lines in reverse for the most recent
// PROGRESS: line and extracts its fields. Returns false when no progress
// line is present yet.
func ParseLogTail(lines []string) (telemetry, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, progressLinePrefix) {
			continue
		}

		t := telemetry{TempC: defaultTemperature, PH: defaultPH}
		if m := reCycle.FindStringSubmatch(line); m != nil {
			t.Cycle, _ = strconv.Atoi(m[1])
			t.MaxCycles, _ = strconv.Atoi(m[2])
		}
		if m := reTime.FindStringSubmatch(line); m != nil {
			t.TimeHours, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := reDOH.FindStringSubmatch(line); m != nil {
			t.DOH, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := reTemp.FindStringSubmatch(line); m != nil {
			t.TempC, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := rePH.FindStringSubmatch(line); m != nil {
			t.PH, _ = strconv.ParseFloat(m[1], 64)
		}
		return t, true
	}
	return telemetry{}, false
}

// ReadTailLines returns up to maxLines lines from the end of the file,
// reading at most tailChunkSize bytes from the tail so large logs stay
// cheap to poll.
func ReadTailLines(path string, maxLines int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}

	offset := int64(0)
	if info.Size() > tailChunkSize {
		offset = info.Size() - tailChunkSize
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read log tail: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	// Drop a trailing empty element from a final newline
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}
