package dashboard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// SectionManifestDocument models a YAML/JSON manifest describing sections.
type SectionManifestDocument struct {
	Version  string              `json:"version" yaml:"version"`
	Name     string              `json:"name,omitempty" yaml:"name,omitempty"`
	Sections []SectionDefinition `json:"sections" yaml:"sections"`
	Source   string              `json:"-" yaml:"-"`
}

// LoadManifestFile reads a manifest from disk, registers it against the registry, and returns the document.
func (r *SectionRegistry) LoadManifestFile(path string) (*SectionManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers section definitions from a decoded manifest.
// Entries for existing ids override their title, description and defaults.
func (r *SectionRegistry) LoadManifestDocument(doc *SectionManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("dashboard: manifest document is nil")
	}
	for _, def := range doc.Sections {
		if err := r.RegisterSection(def); err != nil {
			return fmt.Errorf("dashboard: register section %s from %s: %w", def.ID, doc.Source, err)
		}
	}
	return nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*SectionManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("dashboard: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("dashboard: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*SectionManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc SectionManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dashboard: manifest is empty")
		}
		return nil, fmt.Errorf("dashboard: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeManifest writes the document as YAML.
func EncodeManifest(w io.Writer, doc *SectionManifestDocument) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("dashboard: encode manifest: %w", err)
	}
	return encoder.Close()
}

// ScaffoldManifest builds a manifest holding the given registry's sections.
func ScaffoldManifest(name string, reg *SectionRegistry) *SectionManifestDocument {
	doc := &SectionManifestDocument{Version: ManifestVersion, Name: name}
	if reg != nil {
		doc.Sections = reg.Sections()
	}
	return doc
}

// Validate ensures the manifest satisfies required fields.
func (doc *SectionManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("dashboard: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Sections))
	for idx, def := range doc.Sections {
		if def.ID == "" {
			return fmt.Errorf("dashboard: manifest section at index %d is missing id", idx)
		}
		if def.Title == "" {
			return fmt.Errorf("dashboard: manifest section %s missing title", def.ID)
		}
		if _, exists := seen[def.ID]; exists {
			return fmt.Errorf("dashboard: manifest duplicates section id %s", def.ID)
		}
		seen[def.ID] = struct{}{}
	}
	return nil
}

// applyDefaults fills the version and normalizes ids to snake_case so
// "Recent Activity" and "recentActivity" both become "recent_activity".
func (doc *SectionManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	for i := range doc.Sections {
		doc.Sections[i].ID = NormalizeSectionID(doc.Sections[i].ID)
	}
}

// NormalizeSectionID converts an id to snake_case.
func NormalizeSectionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return strcase.ToSnake(id)
}
