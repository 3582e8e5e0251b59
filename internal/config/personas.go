package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grumpified/researchwire/internal/domain"
)

// personaFile mirrors the on-disk persona catalog layout.
type personaFile struct {
	Personas       map[string]personaRecord `json:"personas"`
	DefaultPersona string                   `json:"default_persona"`
}

type personaRecord struct {
	SystemPrompt     string   `json:"system_prompt"`
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	RequiredSections []string `json:"required_sections"`
	MinLength        int      `json:"min_length"`
	MaxLength        int      `json:"max_length"`
}

// Catalog is the validated set of persona profiles for one run.
type Catalog struct {
	Profiles map[string]domain.PersonaProfile
	Default  string
}

// Resolve returns the named profile, or the default profile when name is empty
// or unknown.
func (c Catalog) Resolve(name string) domain.PersonaProfile {
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return c.Profiles[c.Default]
}

// LoadPersonas reads the persona catalog from path and validates every profile.
// A malformed profile fails the load; use time never sees an invalid persona.
// An empty path yields the built-in catalog.
func LoadPersonas(path, defaultName string) (Catalog, error) {
	if path == "" {
		return builtinCatalog(defaultName), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read personas %s: %w", path, err)
	}

	var file personaFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse personas %s: %w", path, err)
	}
	if len(file.Personas) == 0 {
		return Catalog{}, fmt.Errorf("personas %s: no profiles defined", path)
	}

	catalog := Catalog{Profiles: make(map[string]domain.PersonaProfile, len(file.Personas))}
	for name, rec := range file.Personas {
		profile := domain.PersonaProfile{
			Name:             name,
			SystemPrompt:     rec.SystemPrompt,
			Temperature:      rec.Temperature,
			MaxTokens:        rec.MaxTokens,
			RequiredSections: rec.RequiredSections,
			MinLength:        rec.MinLength,
			MaxLength:        rec.MaxLength,
		}
		if err := validateProfile(profile); err != nil {
			return Catalog{}, fmt.Errorf("persona %q: %w", name, err)
		}
		catalog.Profiles[name] = profile
	}

	catalog.Default = file.DefaultPersona
	if defaultName != "" {
		catalog.Default = defaultName
	}
	if _, ok := catalog.Profiles[catalog.Default]; !ok {
		return Catalog{}, fmt.Errorf("personas %s: default persona %q is not defined", path, catalog.Default)
	}

	return catalog, nil
}

func validateProfile(p domain.PersonaProfile) error {
	if p.SystemPrompt == "" {
		return fmt.Errorf("system prompt is empty")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0,2]", p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", p.MaxTokens)
	}
	if p.MinLength < 0 || (p.MaxLength > 0 && p.MaxLength < p.MinLength) {
		return fmt.Errorf("length bounds [%d,%d] are inconsistent", p.MinLength, p.MaxLength)
	}
	return nil
}

func builtinCatalog(defaultName string) Catalog {
	name := defaultName
	if name == "" {
		name = "scholar"
	}
	scholar := domain.PersonaProfile{
		Name: name,
		SystemPrompt: "You are a research analyst translating daily AI research " +
			"into rigorous, accessible intelligence. Preserve every factual claim " +
			"and link from the source analysis.",
		Temperature: 0.7,
		MaxTokens:   2000,
		MinLength:   200,
		MaxLength:   20000,
	}
	return Catalog{
		Profiles: map[string]domain.PersonaProfile{name: scholar},
		Default:  name,
	}
}
