package build

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// StateFile records the inputs of the last generation, under the
// workspace's .ghost directory.
const StateFile = "generate-state.json"

// GenerationState tracks input hashes of the last successful generation so
// watch mode can ignore filesystem events that changed nothing.
type GenerationState struct {
	// Inputs maps absolute input paths to their SHA-256 hashes
	Inputs map[string]string `json:"inputs"`
	// Sources lists every compiled source per package; a changed list
	// means discovery picked up an added or removed file
	Sources map[string][]string `json:"sources"`

	Profile     string    `json:"profile"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}

func statePath(root string) string {
	return filepath.Join(root, ".ghost", StateFile)
}

// LoadState loads the generation state of the workspace at root. A missing
// file yields an empty state.
func LoadState(root string) (*GenerationState, error) {
	file, err := os.Open(statePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &GenerationState{Inputs: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("failed to open generation state: %w", err)
	}
	defer file.Close()

	var state GenerationState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode generation state: %w", err)
	}
	if state.Inputs == nil {
		state.Inputs = make(map[string]string)
	}
	return &state, nil
}

// SaveState persists the state with an atomic rename.
func (s *GenerationState) SaveState(root string) error {
	path := statePath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode generation state: %w", err)
	}
	file.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save generation state: %w", err)
	}
	return nil
}

// NeedsRegenerate compares the recorded state with the current inputs.
// Returns: (needsRegenerate bool, changedInputs []string, reason string)
func (s *GenerationState) NeedsRegenerate(inputs []string, profile string) (bool, []string, string) {
	if len(s.Inputs) == 0 {
		return true, inputs, "no previous generation"
	}
	if s.Profile != profile {
		return true, inputs, "profile changed"
	}

	changed := make([]string, 0)
	for _, file := range inputs {
		hash, err := computeHash(file)
		if err != nil {
			changed = append(changed, file)
			continue
		}
		if cached, ok := s.Inputs[file]; !ok || cached != hash {
			changed = append(changed, file)
		}
	}

	current := make(map[string]bool, len(inputs))
	for _, file := range inputs {
		current[file] = true
	}
	for cached := range s.Inputs {
		if !current[cached] {
			return true, inputs, fmt.Sprintf("input removed: %s", cached)
		}
	}

	if len(changed) > 0 {
		return true, changed, fmt.Sprintf("%d input(s) changed", len(changed))
	}
	return false, nil, ""
}

// SourcesChanged reports whether any package's compiled source list differs
// from the recorded one.
func (s *GenerationState) SourcesChanged(sources map[string][]string) bool {
	if len(s.Sources) != len(sources) {
		return true
	}
	for pkg, files := range sources {
		prev, ok := s.Sources[pkg]
		if !ok || len(prev) != len(files) {
			return true
		}
		for i := range files {
			if prev[i] != files[i] {
				return true
			}
		}
	}
	return false
}

// Record replaces the state with the inputs of a completed generation.
func (s *GenerationState) Record(inputs []string, sources map[string][]string, profile, runID, version string) error {
	s.Inputs = make(map[string]string, len(inputs))
	for _, file := range inputs {
		hash, err := computeHash(file)
		if err != nil {
			return fmt.Errorf("failed to compute hash for %s: %w", file, err)
		}
		s.Inputs[file] = hash
	}
	s.Sources = sources
	s.Profile = profile
	s.RunID = runID
	s.GeneratedAt = time.Now()
	s.Version = version
	return nil
}

// Inputs lists the files whose content determines the generated output,
// excluding the sources themselves: manifests, the profile file and the
// hook script. Missing optional files are skipped.
func (r *BuildResult) Inputs() []string {
	var out []string
	for _, p := range append([]string{r.ManifestPath, r.ProfilePath, r.HookScript}, r.MemberManifests...) {
		if p == "" || !exists(p) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// computeHash computes SHA-256 hash of a file
func computeHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
