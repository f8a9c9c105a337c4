package importer

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping is an optional YAML document that declares alternate CSV header
// names per entity kind, for feeds exported by other systems:
//
//	version: 1
//	entities:
//	  assets:
//	    asset_tag: ["tag", "asset no"]
//	    purchase_date: ["purchased"]
type Mapping struct {
	Version  int                            `yaml:"version"`
	Entities map[string]map[string][]string `yaml:"entities"`
}

// LoadMapping decodes a mapping document.
func LoadMapping(r io.Reader) (*Mapping, error) {
	var m Mapping
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode header mapping: %w", err)
	}
	return &m, nil
}

// Aliases flattens the mapping for one entity kind into the alias table the
// pipeline consumes: lowercased alternate name -> canonical header.
func (m *Mapping) Aliases(kind string) map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for header, alts := range m.Entities[kind] {
		for _, alt := range alts {
			out[strings.ToLower(strings.TrimSpace(alt))] = header
		}
	}
	return out
}
