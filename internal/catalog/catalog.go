// Package catalog holds the question bank and the archetype and trait lookup
// tables. A Catalog is loaded once at start-up and never mutated afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/bethelevents/assessor/internal/models"
)

//go:embed catalog.yaml
var embedded []byte

// Archetype is the participant-facing presentation of one archetype.
type Archetype struct {
	Name        string `yaml:"name" json:"name"`
	Emoji       string `yaml:"emoji" json:"emoji"`
	Description string `yaml:"description" json:"description"`
}

// TraitInfo is the reference data for one trait letter.
type TraitInfo struct {
	Name   string   `yaml:"name" json:"name"`
	Tip    string   `yaml:"tip" json:"tip"`
	Alerts []string `yaml:"alerts" json:"alerts"`
}

type document struct {
	Version           int                        `yaml:"version"`
	BlockSize         int                        `yaml:"block_size"`
	DefaultArchetypes []string                   `yaml:"default_archetypes"`
	DefaultArchetype  Archetype                  `yaml:"default_archetype"`
	CombinedDefault   string                     `yaml:"combined_default"`
	Archetypes        []Archetype                `yaml:"archetypes"`
	CombinedInsights  map[string]string          `yaml:"combined_insights"`
	Traits            map[models.Trait]TraitInfo `yaml:"traits"`
	Questions         []models.Question          `yaml:"questions"`
}

// Catalog is the immutable question bank with its lookup tables.
type Catalog struct {
	version         int
	blockSize       int
	questions       []models.Question
	byID            map[int]models.Question
	archetypes      map[string]Archetype
	defaultEntry    Archetype
	defaults        [2]string
	combined        map[string]string
	combinedDefault string
	traits          map[models.Trait]TraitInfo
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile reads a catalog override through fs. An empty path yields the embedded catalog.
func LoadFile(fs afero.Fs, path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(doc)
}

func build(doc document) (*Catalog, error) {
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}
	if len(doc.DefaultArchetypes) != 2 || doc.DefaultArchetypes[0] == doc.DefaultArchetypes[1] {
		return nil, fmt.Errorf("catalog needs two distinct default archetypes")
	}
	if doc.CombinedDefault == "" || strings.Count(doc.CombinedDefault, "%s") != 2 {
		return nil, fmt.Errorf("combined_default must contain two %%s verbs")
	}
	c := &Catalog{
		version:         doc.Version,
		blockSize:       doc.BlockSize,
		byID:            make(map[int]models.Question, len(doc.Questions)),
		archetypes:      make(map[string]Archetype, len(doc.Archetypes)),
		defaultEntry:    doc.DefaultArchetype,
		defaults:        [2]string{doc.DefaultArchetypes[0], doc.DefaultArchetypes[1]},
		combined:        doc.CombinedInsights,
		combinedDefault: doc.CombinedDefault,
		traits:          doc.Traits,
	}
	if c.blockSize <= 0 {
		c.blockSize = 3
	}
	for _, a := range doc.Archetypes {
		if a.Name == "" {
			return nil, fmt.Errorf("archetype without name")
		}
		c.archetypes[a.Name] = a
	}
	for _, name := range c.defaults {
		if _, ok := c.archetypes[name]; !ok {
			return nil, fmt.Errorf("default archetype %q not in table", name)
		}
	}
	for _, t := range models.Traits {
		if _, ok := c.traits[t]; !ok {
			return nil, fmt.Errorf("trait %s missing from table", t)
		}
	}
	for _, q := range doc.Questions {
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %d has no options", q.ID)
		}
		for i, o := range q.Options {
			if !o.Trait.Valid() {
				return nil, fmt.Errorf("question %d option %d: invalid trait %q", q.ID, i, o.Trait)
			}
			if o.Archetype != "" {
				if _, ok := c.archetypes[o.Archetype]; !ok {
					return nil, fmt.Errorf("question %d option %d: unknown archetype %q", q.ID, i, o.Archetype)
				}
			}
		}
		c.byID[q.ID] = q
		c.questions = append(c.questions, q)
	}
	return c, nil
}

// Version identifies the question set revision.
func (c *Catalog) Version() int { return c.version }

// BlockSize is how many questions the client shows per screen.
func (c *Catalog) BlockSize() int { return c.blockSize }

// Questions returns the bank in presentation order. The slice must not be modified.
func (c *Catalog) Questions() []models.Question { return c.questions }

// Question looks up a question by id.
func (c *Catalog) Question(id int) (models.Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// Option returns the option at idx of question qid. It reports false for
// unknown questions and out-of-range indices.
func (c *Catalog) Option(qid, idx int) (models.Option, bool) {
	q, ok := c.byID[qid]
	if !ok || idx < 0 || idx >= len(q.Options) {
		return models.Option{}, false
	}
	return q.Options[idx], true
}

// Archetype returns the table entry for name, or the default entry carrying name.
func (c *Catalog) Archetype(name string) Archetype {
	if a, ok := c.archetypes[name]; ok {
		return a
	}
	d := c.defaultEntry
	d.Name = name
	return d
}

// DefaultArchetypes is the fallback primary/secondary pair.
func (c *Catalog) DefaultArchetypes() (string, string) { return c.defaults[0], c.defaults[1] }

// CombinedInsight returns the phrase for the ordered pair, or the default template.
func (c *Catalog) CombinedInsight(primary, secondary string) string {
	if s, ok := c.combined[primary+"+"+secondary]; ok {
		return s
	}
	return fmt.Sprintf(c.combinedDefault, primary, secondary)
}

// Trait returns the reference entry for t. Unknown letters yield a zero value.
func (c *Catalog) Trait(t models.Trait) TraitInfo { return c.traits[t] }
