package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	// File permissions
	DirPermission  = 0755 // Directory permission (rwxr-xr-x)
	FilePermission = 0644 // File permission (rw-r--r--)
)

// rosterFile is the on-disk shape of a roster
type rosterFile struct {
	Personas []Persona `json:"personas"`
}

// LoadRoster reads a roster from a JSON file
func LoadRoster(path string) (Roster, error) {
	log.Debug().Str("path", path).Msg("Loading roster")

	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("failed to read roster file: %w", err)
	}

	var file rosterFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Roster{}, fmt.Errorf("failed to parse roster file: %w", err)
	}

	roster := NewRoster(file.Personas...)
	if err := ValidateRoster(roster); err != nil {
		return Roster{}, fmt.Errorf("invalid roster file %s: %w", path, err)
	}

	log.Debug().Int("personas", roster.Len()).Msg("Loaded roster")
	return roster, nil
}

// SaveRoster writes a roster to a JSON file, creating parent directories
func SaveRoster(path string, roster Roster) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, DirPermission); err != nil {
			return fmt.Errorf("failed to create roster directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(rosterFile{Personas: roster.List()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	if err := os.WriteFile(path, data, FilePermission); err != nil {
		return fmt.Errorf("failed to write roster file: %w", err)
	}

	log.Debug().Str("path", path).Msg("Saved roster")
	return nil
}

// ValidateRoster checks that a roster is usable by the council
func ValidateRoster(roster Roster) error {
	if roster.Len() == 0 {
		return fmt.Errorf("roster cannot be empty")
	}

	seen := make(map[string]bool, roster.Len())
	for _, p := range roster.members {
		if p.ID == "" {
			return fmt.Errorf("persona %q has no id", p.Name)
		}
		if p.Name == "" {
			return fmt.Errorf("persona %q has no name", p.ID)
		}
		switch p.ID {
		case UserID, SystemID, UnknownID:
			return fmt.Errorf("persona id %q is reserved", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
	}

	return nil
}
