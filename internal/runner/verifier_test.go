package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/hydrun/internal/models"
)

func testVerifier(t *testing.T) *Verifier {
	t.Helper()
	return NewVerifier(testLogger())
}

func TestResolveArtifactName_FromExistingCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "HydrationOf_Mix42.csv", "header\n")

	v := testVerifier(t)
	job := &models.Job{Name: "something-else", WorkDir: dir}
	if name := v.ResolveArtifactName(job); name != "Mix42" {
		t.Errorf("expected Mix42, got %q", name)
	}
}

func TestResolveArtifactName_FromMicrostructureImage(t *testing.T) {
	v := testVerifier(t)
	job := &models.Job{
		Name:                "job-1",
		WorkDir:             t.TempDir(),
		MicrostructureImage: "/data/mixes/Portland_w040.img",
	}
	if name := v.ResolveArtifactName(job); name != "Portland_w040" {
		t.Errorf("expected Portland_w040, got %q", name)
	}
}

func TestResolveArtifactName_FromImageInWorkDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Slag30.pimg", "binary")

	v := testVerifier(t)
	job := &models.Job{Name: "job-2", WorkDir: dir}
	if name := v.ResolveArtifactName(job); name != "Slag30" {
		t.Errorf("expected Slag30, got %q", name)
	}
}

func TestResolveArtifactName_StripsDecorations(t *testing.T) {
	v := testVerifier(t)
	job := &models.Job{Name: "HydrationOf_Mix7_20250814142503", WorkDir: t.TempDir()}
	if name := v.ResolveArtifactName(job); name != "Mix7" {
		t.Errorf("expected Mix7, got %q", name)
	}
}

func TestResolveArtifactName_FallsBackToJobName(t *testing.T) {
	v := testVerifier(t)
	job := &models.Job{Name: "plainjob", WorkDir: t.TempDir()}
	if name := v.ResolveArtifactName(job); name != "plainjob" {
		t.Errorf("expected plainjob, got %q", name)
	}
}

func TestVerifyCompletion_TwoOfThree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "HydrationOf_mix.csv", "data")
	writeFile(t, dir, "progress.json", `{"cycle": 1}`)

	v := testVerifier(t)
	job := &models.Job{Name: "mix", WorkDir: dir}
	if !v.VerifyCompletion(job) {
		t.Fatal("expected success with 2 of 3 artifacts present")
	}
}

func TestVerifyCompletion_AllThree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "HydrationOf_mix.csv", "data")
	writeFile(t, dir, "HydrationOf_mix.mov", "frames")
	writeFile(t, dir, "progress.json", `{"cycle": 1}`)

	v := testVerifier(t)
	job := &models.Job{Name: "mix", WorkDir: dir}
	if !v.VerifyCompletion(job) {
		t.Fatal("expected success with all artifacts present")
	}
}

func TestVerifyCompletion_OneArtifact(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "progress.json", `{"cycle": 1}`)

	v := testVerifier(t)
	job := &models.Job{Name: "mix", WorkDir: dir}
	if v.VerifyCompletion(job) {
		t.Fatal("expected failure with a single artifact")
	}
}

func TestVerifyCompletion_EmptyFilesDoNotCount(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"HydrationOf_mix.csv", "HydrationOf_mix.mov"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeFile(t, dir, "progress.json", `{"cycle": 1}`)

	v := testVerifier(t)
	job := &models.Job{Name: "mix", WorkDir: dir}
	if v.VerifyCompletion(job) {
		t.Fatal("zero-size artifacts must not count toward completion")
	}
}
