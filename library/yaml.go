package library

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/restcache/transport"
)

// UnmarshalYAML accepts a plain scalar URI or a {uri, configs} mapping.
func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.URI = value.Value
		return nil
	}
	var full struct {
		URI     string                             `yaml:"uri"`
		Configs map[string]transport.RequestConfig `yaml:"configs"`
	}
	if err := value.Decode(&full); err != nil {
		return err
	}
	d.URI, d.Configs = full.URI, full.Configs
	return nil
}

// ParseYAML decodes a key -> descriptor document.
func ParseYAML(r io.Reader) (map[string]Descriptor, error) {
	var rels map[string]Descriptor
	if err := yaml.NewDecoder(r).Decode(&rels); err != nil {
		if err == io.EOF {
			return map[string]Descriptor{}, nil
		}
		return nil, fmt.Errorf("library: parse yaml: %w", err)
	}
	return rels, nil
}

// LoadYAML parses r and extends the library under base.
func (l *Library) LoadYAML(r io.Reader, base string) error {
	rels, err := ParseYAML(r)
	if err != nil {
		return err
	}
	return l.Extend(rels, base)
}
