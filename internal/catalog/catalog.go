package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/prompt-architect/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// CustomStructure is the template name reported for structures that match no template
const CustomStructure = "Custom"

var (
	ErrEmptyCatalog   = errors.New("catalog: no genre categories")
	ErrNoStructures   = errors.New("catalog: no song structures")
	ErrEmptyCategory  = errors.New("catalog: category has no subgenres")
	ErrUnnamedEntry   = errors.New("catalog: entry without a name")
	ErrDuplicateEntry = errors.New("catalog: duplicate name")
)

// Category is a top-level genre bucket with its ordered subgenres
type Category struct {
	Name      string   `yaml:"name" json:"name"`
	Subgenres []string `yaml:"subgenres" json:"subgenres"`
}

// Has reports whether subgenre is a member of the category
func (c Category) Has(subgenre string) bool {
	return slices.Contains(c.Subgenres, subgenre)
}

// SongStructure is a named structure template
type SongStructure struct {
	Name      string `yaml:"name" json:"name"`
	Structure string `yaml:"structure" json:"structure"`
}

// Catalog holds the static option lists the wizard draws from
type Catalog struct {
	Categories  []Category      `yaml:"categories" json:"categories"`
	Moods       []string        `yaml:"moods" json:"moods"`
	VocalStyles []string        `yaml:"vocal_styles" json:"vocal_styles"`
	Atmospheres []string        `yaml:"atmospheres" json:"atmospheres"`
	Instruments []string        `yaml:"instruments" json:"instruments"`
	Structures  []SongStructure `yaml:"structures" json:"structures"`

	all []string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary.
// It panics if the embedded document is invalid, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded.CatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes and validates a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	for _, cat := range c.Categories {
		c.all = append(c.all, cat.Subgenres...)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return ErrEmptyCatalog
	}
	if len(c.Structures) == 0 {
		return ErrNoStructures
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return ErrUnnamedEntry
		}
		if seen[cat.Name] {
			return fmt.Errorf("%w: category %q", ErrDuplicateEntry, cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Subgenres) == 0 {
			return fmt.Errorf("%w: %q", ErrEmptyCategory, cat.Name)
		}
	}
	for _, s := range c.Structures {
		if s.Name == "" {
			return ErrUnnamedEntry
		}
	}
	return nil
}

// Category returns the category with the given name
func (c *Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// FindCategory resolves the category a subgenre belongs to.
// Subgenres listed in more than one category resolve to the first one.
func (c *Catalog) FindCategory(subgenre string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Has(subgenre) {
			return cat, true
		}
	}
	return Category{}, false
}

// AllSubgenres returns every subgenre in catalog order
func (c *Catalog) AllSubgenres() []string {
	return slices.Clone(c.all)
}

// InfluenceOptions lists the subgenres that can be blended into primary
func (c *Catalog) InfluenceOptions(primary string) []string {
	out := make([]string, 0, len(c.all))
	for _, s := range c.all {
		if s != primary {
			out = append(out, s)
		}
	}
	return out
}

// DefaultStructure is the literal of the first structure template
func (c *Catalog) DefaultStructure() string {
	return c.Structures[0].Structure
}

// Structure returns the template with the given name
func (c *Catalog) Structure(name string) (SongStructure, bool) {
	for _, s := range c.Structures {
		if s.Name == name {
			return s, true
		}
	}
	return SongStructure{}, false
}

// StructureName maps a structure literal back to its template name
func (c *Catalog) StructureName(structure string) string {
	for _, s := range c.Structures {
		if s.Structure != "" && s.Structure == structure {
			return s.Name
		}
	}
	return CustomStructure
}

// MatchSubgenre resolves a subgenre name ignoring case, returning the
// catalog spelling and its category
func (c *Catalog) MatchSubgenre(name string) (string, Category, bool) {
	if cat, ok := c.FindCategory(name); ok {
		return name, cat, true
	}
	name = strings.TrimSpace(name)
	for _, cat := range c.Categories {
		for _, s := range cat.Subgenres {
			if strings.EqualFold(s, name) {
				return s, cat, true
			}
		}
	}
	return "", Category{}, false
}
