package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/loadlab/internal/simulation"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

//go:embed presets.schema.json
var presetsSchema string

// Preset is a named set of simulation parameters.
type Preset struct {
	Name              string `json:"name" yaml:"name"`
	simulation.Params `yaml:",inline"`
}

// presetsFile is the on-disk layout of a presets file.
type presetsFile struct {
	Presets []Preset `json:"presets" yaml:"presets"`
}

// Presets is an ordered, read-only catalog of presets.
type Presets struct {
	list   []Preset
	byName map[string]int
}

// NewPresets builds a catalog. Names are matched case-insensitively with
// spaces, dashes and underscores treated alike; a later duplicate is an
// error.
func NewPresets(list []Preset) (*Presets, error) {
	p := &Presets{
		list:   make([]Preset, 0, len(list)),
		byName: make(map[string]int, len(list)),
	}
	for _, preset := range list {
		key := NormalizePresetName(preset.Name)
		if key == "" {
			return nil, errors.New("preset name is required")
		}
		if _, exists := p.byName[key]; exists {
			return nil, errors.Errorf("duplicate preset %q", preset.Name)
		}
		p.byName[key] = len(p.list)
		p.list = append(p.list, preset)
	}
	return p, nil
}

// DefaultPresets returns the built-in presets.
func DefaultPresets() *Presets {
	presets, err := ParsePresets(defaultPresetsYAML, "presets.yaml")
	if err != nil {
		panic(errors.Wrap(err, "built-in presets are invalid"))
	}
	return presets
}

// Lookup finds a preset by name.
func (p *Presets) Lookup(name string) (Preset, bool) {
	i, ok := p.byName[NormalizePresetName(name)]
	if !ok {
		return Preset{}, false
	}
	return p.list[i], true
}

// All returns the presets in declaration order.
func (p *Presets) All() []Preset {
	result := make([]Preset, len(p.list))
	copy(result, p.list)
	return result
}

// Len returns the number of presets.
func (p *Presets) Len() int {
	return len(p.list)
}

// Names returns the preset names in declaration order.
func (p *Presets) Names() []string {
	names := make([]string, len(p.list))
	for i, preset := range p.list {
		names[i] = preset.Name
	}
	return names
}

// NormalizePresetName folds case and separators: "db-latency",
// "DB_Latency" and "db latency" are the same preset.
func NormalizePresetName(name string) string {
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// LoadPresets loads a presets file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read presets file")
	}
	return ParsePresets(data, path)
}

// ParsePresets validates data against the presets schema and decodes it.
// YAML is assumed unless path ends in .json.
func ParsePresets(data []byte, path string) (*Presets, error) {
	var doc interface{}
	var file presetsFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON presets")
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON presets")
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML presets")
		}
		// Round trip through JSON so the validator sees JSON types only.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert YAML presets")
		}
		doc = nil
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to convert YAML presets")
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML presets")
		}
	}

	if err := validatePresets(doc); err != nil {
		return nil, err
	}
	return NewPresets(file.Presets)
}

func validatePresets(doc interface{}) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("presets.schema.json", strings.NewReader(presetsSchema)); err != nil {
		return errors.Wrap(err, "invalid presets schema")
	}
	schema, err := compiler.Compile("presets.schema.json")
	if err != nil {
		return errors.Wrap(err, "invalid presets schema")
	}

	if err := schema.Validate(doc); err != nil {
		return errors.Wrap(err, "presets do not match schema")
	}
	return nil
}
