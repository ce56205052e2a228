package contacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when a contact file decodes but is unusable.
var ErrInvalidFile = errors.New("contacts: invalid contact file")

// File is the on-disk contact list.
//
//	contacts:
//	  - name: mom
//	    number: "15551234567"
//	    aliases: [mummy, मम्मी]
type File struct {
	Contacts []Entry `yaml:"contacts"`
}

// Entry is one contact and its spoken aliases.
type Entry struct {
	Name    string   `yaml:"name"`
	Number  string   `yaml:"number"`
	Aliases []string `yaml:"aliases,omitempty"`
}

// LoadFile reads a contact file from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("contacts: open %q: %w", path, err)
	}
	defer f.Close()

	cf, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("contacts: parse %q: %w", path, err)
	}
	return cf, nil
}

// LoadFromReader parses a contact file. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("contacts: decode yaml: %w", err)
	}
	for i, e := range cf.Contacts {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Number) == "" {
			return nil, fmt.Errorf("%w: entry %d needs name and number", ErrInvalidFile, i)
		}
	}
	return &cf, nil
}

// Entries flattens names and aliases into a lookup table.
func (f *File) Entries() map[string]string {
	out := make(map[string]string)
	for _, e := range f.Contacts {
		out[e.Name] = e.Number
		for _, alias := range e.Aliases {
			out[alias] = e.Number
		}
	}
	return out
}
