package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRegistry reads a Definition from a YAML file and validates it.
//
//	schemas:
//	  accelerometer:
//	    - {name: timeStamp, type: timestamp}
//	    - {name: user, type: string}
//	landing: [accelerometer_landing]
//	trusted:
//	  - {name: accelerometer_trusted, schema: accelerometer}
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog definition: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a YAML Definition and validates it. Unknown fields
// are rejected so typos do not silently drop tables.
func ParseRegistry(data []byte) (*Registry, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode catalog definition: %w", err)
	}
	r, err := NewRegistry(def)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog definition: %w", err)
	}
	return r, nil
}
