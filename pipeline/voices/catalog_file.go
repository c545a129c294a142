package voices

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/storyvox/storyvox/pipeline"
)

// catalogFile is the on-disk shape of a custom voice catalog.
type catalogFile struct {
	Voices []struct {
		ID       string  `yaml:"id"`
		Name     string  `yaml:"name"`
		Gender   string  `yaml:"gender"`
		BaseHz   float64 `yaml:"base_hz"`
		WordsMin int     `yaml:"words_min"`
	} `yaml:"voices"`
}

// LoadCatalog reads a custom voice catalog from a YAML file. The built-in
// narrator profile is always available on top of the loaded voices, so a
// catalog file only needs to define character voices.
func LoadCatalog(path string) ([]pipeline.VoiceProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read voice catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse voice catalog %s: %w", path, err)
	}
	if len(file.Voices) == 0 {
		return nil, fmt.Errorf("voice catalog %s defines no voices", path)
	}

	catalog := []pipeline.VoiceProfile{pipeline.DefaultNarratorVoice}
	seen := map[string]bool{pipeline.DefaultNarratorVoice.ID: true}
	for i, v := range file.Voices {
		if v.ID == "" {
			return nil, fmt.Errorf("voice %d in %s has no id", i, path)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("duplicate voice id %q in %s", v.ID, path)
		}
		if v.BaseHz <= 0 || v.WordsMin <= 0 {
			return nil, fmt.Errorf("voice %q in %s needs positive base_hz and words_min", v.ID, path)
		}
		seen[v.ID] = true
		name := v.Name
		if name == "" {
			name = v.ID
		}
		catalog = append(catalog, pipeline.VoiceProfile{
			ID:       v.ID,
			Name:     name,
			Gender:   v.Gender,
			BaseHz:   v.BaseHz,
			WordsMin: v.WordsMin,
		})
	}
	return catalog, nil
}

// LookupIn finds a profile by ID in the given catalog.
func LookupIn(catalog []pipeline.VoiceProfile, id string) (pipeline.VoiceProfile, bool) {
	for _, v := range catalog {
		if v.ID == id {
			return v, true
		}
	}
	return pipeline.VoiceProfile{}, false
}

// NewAssignerWithCatalog creates an assigner over a custom catalog, as
// returned by LoadCatalog.
func NewAssignerWithCatalog(catalog []pipeline.VoiceProfile) *Assigner {
	return &Assigner{catalog: catalog}
}
