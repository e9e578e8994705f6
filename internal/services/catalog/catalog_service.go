// -----------------------------------------------------------------------
// Solver Catalog - TOML-defined solver binaries available for launch
// -----------------------------------------------------------------------

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/models"
)

// Service loads solver definitions from TOML files in the catalog
// directory, one solver per file:
//
//	name = "vcctl-hydration"
//	binary_path = "/opt/vcctl/bin/disrealnew"
//	protocol = "structured"
//	default_max_duration_hint_hours = 168.0
type Service struct {
	dir      string
	logger   arbor.ILogger
	validate *validator.Validate

	mu      sync.RWMutex
	solvers map[string]*models.SolverDefinition
}

// NewService creates the catalog and performs the initial load. A missing
// catalog directory is not fatal; the catalog starts empty.
func NewService(dir string, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		dir:      dir,
		logger:   logger,
		validate: validator.New(),
		solvers:  make(map[string]*models.SolverDefinition),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rescans the catalog directory. Invalid files are logged and
// skipped so one bad entry does not take down the rest of the catalog.
func (s *Service) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("dir", s.dir).Msg("Solver catalog directory missing, catalog is empty")
			return nil
		}
		return fmt.Errorf("read catalog directory: %w", err)
	}

	solvers := make(map[string]*models.SolverDefinition)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		def, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping invalid solver definition")
			continue
		}
		if _, dup := solvers[def.Name]; dup {
			s.logger.Warn().Str("solver", def.Name).Str("file", entry.Name()).Msg("Duplicate solver name, keeping first definition")
			continue
		}
		solvers[def.Name] = def
	}

	s.mu.Lock()
	s.solvers = solvers
	s.mu.Unlock()

	s.logger.Info().Int("solvers", len(solvers)).Str("dir", s.dir).Msg("Solver catalog loaded")
	return nil
}

func (s *Service) loadFile(path string) (*models.SolverDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var def models.SolverDefinition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := s.validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &def, nil
}

// Get returns a solver definition by name
func (s *Service) Get(name string) (*models.SolverDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.solvers[name]
	if !ok {
		return nil, fmt.Errorf("solver not registered: %s", name)
	}
	return def, nil
}

// List returns all registered solvers sorted by name
func (s *Service) List() []*models.SolverDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*models.SolverDefinition, 0, len(s.solvers))
	for _, def := range s.solvers {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ValidateParamFile checks that a parameter file exists and is non-empty
// before launch. Content is opaque to the executor.
func ValidateParamFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("parameter file unavailable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("parameter file is a directory: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("parameter file is empty: %s", path)
	}
	return nil
}
