package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrPatternFileNotFound is returned when a pattern file does not exist.
var ErrPatternFileNotFound = errors.New("pattern file not found")

// Defaults applied to fields a pattern document leaves out.
const (
	DefaultTempo  = 120
	DefaultVolume = 0.8
)

// Document is a named pattern as stored in a .yml or .json file.
type Document struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Config      `yaml:",inline"`
}

func newDocument() Document {
	return Document{Config: Config{Tempo: DefaultTempo, Volume: DefaultVolume}}
}

// Parse decodes a pattern document as JSON, falling back to YAML, and
// validates it.
func Parse(data []byte) (Document, error) {
	doc := newDocument()
	if errJSON := json.Unmarshal(data, &doc); errJSON != nil {
		doc = newDocument()
		if errYAML := yaml.Unmarshal(data, &doc); errYAML != nil {
			return Document{}, fmt.Errorf("the pattern could not be parsed as .json (%v) or .yml (%v)", errJSON, errYAML)
		}
	}
	if err := Validate(doc.Config); err != nil {
		if doc.Name != "" {
			return Document{}, fmt.Errorf("pattern %q: %w", doc.Name, err)
		}
		return Document{}, err
	}
	return doc, nil
}

// Load reads and parses the pattern document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, fmt.Errorf("%w: %s", ErrPatternFileNotFound, path)
		}
		return Document{}, fmt.Errorf("failed to read pattern file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode renders doc as YAML.
func Encode(doc Document) ([]byte, error) {
	return yaml.Marshal(doc)
}
