package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/maestro/pkg/models"
)

// HandlerFile is the top-level structure of the handler definitions file.
type HandlerFile struct {
	Version  string                     `yaml:"version"`
	Handlers []models.HandlerDefinition `yaml:"handlers"`
}

// HandlerStore reads and writes user-defined handler definitions.
type HandlerStore interface {
	Load() ([]models.HandlerDefinition, error)
	Save(defs []models.HandlerDefinition) error
	Path() string
}

type fileHandlerStore struct {
	path string
}

// NewHandlerStore creates a HandlerStore for the YAML file at path.
func NewHandlerStore(path string) HandlerStore {
	return &fileHandlerStore{path: path}
}

func (s *fileHandlerStore) Path() string { return s.path }

// Load returns the definitions in file order. A missing file yields no
// definitions and no error.
func (s *fileHandlerStore) Load() ([]models.HandlerDefinition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading handlers: %w", err)
	}

	var hf HandlerFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("loading handlers: parsing YAML: %w", err)
	}
	if err := validateDefinitions(hf.Handlers); err != nil {
		return nil, fmt.Errorf("loading handlers from %s: %w", s.path, err)
	}
	return hf.Handlers, nil
}

func (s *fileHandlerStore) Save(defs []models.HandlerDefinition) error {
	if err := validateDefinitions(defs); err != nil {
		return fmt.Errorf("saving handlers: %w", err)
	}
	data, err := yaml.Marshal(&HandlerFile{Version: "1.0", Handlers: defs})
	if err != nil {
		return fmt.Errorf("saving handlers: marshalling YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("saving handlers: creating directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving handlers: writing file: %w", err)
	}
	return nil
}

func validateDefinitions(defs []models.HandlerDefinition) error {
	seen := make(map[string]bool, len(defs))
	var errs []string
	for i, d := range defs {
		role := strings.TrimSpace(d.Role)
		if role == "" {
			errs = append(errs, fmt.Sprintf("handler %d: role must not be empty", i+1))
			continue
		}
		key := strings.ToLower(role)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("handler %q: duplicate role", role))
		}
		seen[key] = true
		if len(d.Skills) == 0 {
			errs = append(errs, fmt.Sprintf("handler %q: at least one skill is required", role))
		}
		for level := range d.QualityStandards {
			if _, ok := models.ParseQualityLevel(string(level)); !ok {
				errs = append(errs, fmt.Sprintf("handler %q: unknown quality level %q", role, level))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid handler definitions:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
