// -----------------------------------------------------------------------
// Completion Verifier - Artifact-based success detection
// -----------------------------------------------------------------------

package runner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/models"
)

const (
	artifactPrefix   = "HydrationOf_"
	progressFileName = "progress.json"
)

// Verifier decides whether a run actually produced its outputs. The solver
// is known to exit non-zero on an internal cleanup fault even after
// writing correct results, so artifact presence overrides the exit code.
type Verifier struct {
	logger arbor.ILogger
}

func NewVerifier(logger arbor.ILogger) *Verifier {
	return &Verifier{logger: logger}
}

// trailing timestamp suffix appended to operation names, e.g. _20250814142503
var reTimestampSuffix = regexp.MustCompile(`[-_]\d{8,14}$`)

// microstructure image extensions the generator produces
var microstructureExts = map[string]bool{
	".img":  true,
	".pimg": true,
}

// ResolveArtifactName determines the base name the solver used for its
// output files. Priority chain: an existing HydrationOf_*.csv in the work
// directory, then the microstructure image base name, then the job name
// with operation prefix and timestamp suffix stripped, then the job name
// itself.
func (v *Verifier) ResolveArtifactName(job *models.Job) string {
	if name, ok := v.nameFromExistingCSV(job.WorkDir); ok {
		return name
	}
	if job.MicrostructureImage != "" {
		base := filepath.Base(job.MicrostructureImage)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name, ok := v.nameFromImageInWorkDir(job.WorkDir); ok {
		return name
	}
	if stripped := stripOperationDecorations(job.Name); stripped != "" {
		return stripped
	}
	return job.Name
}

func (v *Verifier) nameFromExistingCSV(workDir string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(workDir, artifactPrefix+"*.csv"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	base := filepath.Base(matches[0])
	name := strings.TrimSuffix(strings.TrimPrefix(base, artifactPrefix), ".csv")
	return name, name != ""
}

func (v *Verifier) nameFromImageInWorkDir(workDir string) (string, bool) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if microstructureExts[ext] {
			return strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())), true
		}
	}
	return "", false
}

func stripOperationDecorations(name string) string {
	stripped := strings.TrimPrefix(name, artifactPrefix)
	stripped = reTimestampSuffix.ReplaceAllString(stripped, "")
	if stripped == name {
		return ""
	}
	return stripped
}

// ExpectedArtifacts lists the files a successful run leaves in the work
// directory for the resolved base name.
func (v *Verifier) ExpectedArtifacts(job *models.Job) []string {
	name := v.ResolveArtifactName(job)
	return []string{
		filepath.Join(job.WorkDir, artifactPrefix+name+".csv"),
		filepath.Join(job.WorkDir, artifactPrefix+name+".mov"),
		filepath.Join(job.WorkDir, progressFileName),
	}
}

// VerifyCompletion reports success when at least 2 of the 3 expected
// artifacts exist with non-zero size. The process exit code is deliberately
// ignored; delete this override if the solver's cleanup fault is ever
// fixed upstream.
func (v *Verifier) VerifyCompletion(job *models.Job) bool {
	expected := v.ExpectedArtifacts(job)

	present := 0
	for _, path := range expected {
		info, err := os.Stat(path)
		if err == nil && info.Size() > 0 {
			present++
		}
	}

	v.logger.Debug().
		Str("job", job.Name).
		Int("artifacts_present", present).
		Int("artifacts_expected", len(expected)).
		Msg("Completion verification")

	return present >= 2
}
