// Package taxonomy maps free-text genre tags onto canonical genres and
// families using a YAML table.
package taxonomy

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/ports"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTable []byte

type document struct {
	Families map[string][]string `yaml:"families"`
	Aliases  map[string]string   `yaml:"aliases"`
}

// Taxonomy is immutable once built and safe for concurrent use.
type Taxonomy struct {
	genres  map[string]domain.GenreClass
	aliases map[string]domain.GenreClass
}

var _ ports.GenreTaxonomy = (*Taxonomy)(nil)

// Default returns the built-in taxonomy.
func Default() (*Taxonomy, error) {
	return Parse(bytes.NewReader(defaultTable))
}

// LoadFile reads a taxonomy from disk. An empty path means Default.
func LoadFile(path string) (*Taxonomy, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a taxonomy document. Every alias must point at
// a canonical genre and must not itself spell a canonical genre.
func Parse(r io.Reader) (*Taxonomy, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("taxonomy: failed to decode: %w", err)
	}

	t := &Taxonomy{
		genres:  make(map[string]domain.GenreClass),
		aliases: make(map[string]domain.GenreClass, len(doc.Aliases)),
	}
	for name, genres := range doc.Families {
		family, err := domain.ParseGenreFamily(name)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: %w", err)
		}
		for _, g := range genres {
			g = strings.TrimSpace(g)
			key := normalize(g)
			if key == "" {
				return nil, fmt.Errorf("taxonomy: blank genre in family %q", name)
			}
			if _, dup := t.genres[key]; dup {
				return nil, fmt.Errorf("taxonomy: genre %q listed twice", g)
			}
			t.genres[key] = domain.GenreClass{Canonical: g, Family: family}
		}
	}

	for alias, target := range doc.Aliases {
		key := normalize(alias)
		if _, shadow := t.genres[key]; shadow {
			return nil, fmt.Errorf("taxonomy: alias %q shadows a canonical genre", alias)
		}
		if _, dup := t.aliases[key]; dup {
			return nil, fmt.Errorf("taxonomy: alias %q listed twice", alias)
		}
		class, ok := t.genres[normalize(target)]
		if !ok {
			return nil, fmt.Errorf("taxonomy: alias %q maps to unknown genre %q", alias, target)
		}
		t.aliases[key] = class
	}
	return t, nil
}

// Classify resolves raw by canonical name first, then by alias. Unknown
// input yields a zero GenreClass.
func (t *Taxonomy) Classify(raw string) domain.GenreClass {
	key := normalize(raw)
	if key == "" {
		return domain.GenreClass{}
	}
	if c, ok := t.genres[key]; ok {
		return c
	}
	return t.aliases[key]
}

// Len reports the number of canonical genres and aliases.
func (t *Taxonomy) Len() (genres, aliases int) {
	return len(t.genres), len(t.aliases)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
