package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseProgressFile_ValidPayload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.json",
		`{"cycle": 1220, "time_hours": 668.68, "degree_of_hydration": 0.71, "temperature_celsius": 26.5, "ph": 13.1, "timestamp": "2025-08-14T14:25:03.434Z"}`)

	tel, err := ParseProgressFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tel.Cycle != 1220 {
		t.Errorf("expected cycle 1220, got %d", tel.Cycle)
	}
	if tel.TimeHours != 668.68 {
		t.Errorf("expected time_hours 668.68, got %f", tel.TimeHours)
	}
	if tel.DOH != 0.71 {
		t.Errorf("expected DOH 0.71, got %f", tel.DOH)
	}
	if tel.TempC != 26.5 {
		t.Errorf("expected temperature 26.5, got %f", tel.TempC)
	}
	if tel.PH != 13.1 {
		t.Errorf("expected pH 13.1, got %f", tel.PH)
	}
}

func TestParseProgressFile_StripsJsonPrefix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.json",
		`json {"cycle": 5, "time_hours": 2.5, "degree_of_hydration": 0.01}`)

	tel, err := ParseProgressFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tel.Cycle != 5 {
		t.Errorf("expected cycle 5, got %d", tel.Cycle)
	}
}

func TestParseProgressFile_MissingFieldDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.json", `{"time_hours": 10.0}`)

	tel, err := ParseProgressFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tel.Cycle != 0 {
		t.Errorf("expected default cycle 0, got %d", tel.Cycle)
	}
	if tel.TempC != 25.0 {
		t.Errorf("expected default temperature 25.0, got %f", tel.TempC)
	}
	if tel.PH != 12.0 {
		t.Errorf("expected default pH 12.0, got %f", tel.PH)
	}
}

func TestParseProgressFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "progress.json", `{"cycle": `)

	if _, err := ParseProgressFile(path); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestParseLogTail_SelectsLastProgressLine(t *testing.T) {
	lines := []string{
		"Initializing microstructure",
		"PROGRESS: Cycle=100/2444 Time=50.0 DOH=0.05 Temp=25.000000 pH=12.500000",
		"some solver chatter",
		"PROGRESS: Cycle=1224/2444 Time=673.078125 DOH=0.710882 Temp=25.000000 pH=13.351768",
		"more chatter",
	}

	tel, ok := ParseLogTail(lines)
	if !ok {
		t.Fatal("expected a progress line to be found")
	}
	if tel.Cycle != 1224 || tel.MaxCycles != 2444 {
		t.Errorf("expected cycle 1224/2444, got %d/%d", tel.Cycle, tel.MaxCycles)
	}
	if tel.TimeHours != 673.078125 {
		t.Errorf("expected time 673.078125, got %f", tel.TimeHours)
	}
	if tel.DOH != 0.710882 {
		t.Errorf("expected DOH 0.710882, got %f", tel.DOH)
	}
	if tel.PH != 13.351768 {
		t.Errorf("expected pH 13.351768, got %f", tel.PH)
	}
}

func TestParseLogTail_NoProgressLine(t *testing.T) {
	lines := []string{"starting up", "reading parameters", "cycle prep done"}

	if _, ok := ParseLogTail(lines); ok {
		t.Fatal("expected no progress line")
	}
}

func TestReadTailLines_BoundsWindow(t *testing.T) {
	dir := t.TempDir()

	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("line\n")
	}
	b.WriteString("PROGRESS: Cycle=9/10 Time=1.0 DOH=0.9 Temp=25.0 pH=12.0\n")
	path := writeFile(t, dir, "out.log", b.String())

	lines, err := ReadTailLines(path, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[len(lines)-1], "PROGRESS:") {
		t.Errorf("expected final line to be the progress line, got %q", lines[len(lines)-1])
	}
}
