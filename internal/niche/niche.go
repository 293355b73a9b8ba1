// Package niche holds the static target-market configuration: keyword
// vocabularies, exclusion terms and the vocabulary builder.
package niche

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Priority is the commercial priority of a niche.
type Priority string

const (
	PriorityHigh   Priority = "ALTA"
	PriorityMedium Priority = "MEDIA"
	PriorityLow    Priority = "BAJA"
)

// Niche is a named target market.
type Niche struct {
	ID               string   `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	Description      string   `yaml:"description" json:"description"`
	Priority         Priority `yaml:"priority" json:"priority"`
	PriorityStates   []string `yaml:"priority_states" json:"priority_states"`
	Keywords         []string `yaml:"keywords" json:"keywords"`
	NegativeKeywords []string `yaml:"negative_keywords" json:"negative_keywords"`
	SCIANCodes       []string `yaml:"scian_codes" json:"scian_codes"`
}

// Vocabulary builds the niche's weighted term dictionary.
func (n *Niche) Vocabulary() Vocabulary {
	return BuildVocabulary(n.Keywords)
}

// Catalog is an immutable set of niches with their vocabularies built once.
type Catalog struct {
	niches []Niche
	byID   map[string]int

	mu    sync.Mutex
	vocab map[string]Vocabulary
}

// NewCatalog validates niches and indexes them by id.
func NewCatalog(niches []Niche) (*Catalog, error) {
	c := &Catalog{
		niches: make([]Niche, 0, len(niches)),
		byID:   make(map[string]int, len(niches)),
		vocab:  make(map[string]Vocabulary, len(niches)),
	}
	for _, n := range niches {
		if n.ID == "" {
			return nil, eris.Errorf("niche: %q has no id", n.Name)
		}
		if _, dup := c.byID[n.ID]; dup {
			return nil, eris.Errorf("niche: duplicate id %q", n.ID)
		}
		if len(n.Keywords) == 0 {
			return nil, eris.Errorf("niche: %q has no keywords", n.ID)
		}
		c.byID[n.ID] = len(c.niches)
		c.niches = append(c.niches, n)
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog with a top-level "niches" list.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "niche: read catalog %s", path)
	}

	var wrapper struct {
		Niches []Niche `yaml:"niches"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "niche: parse catalog")
	}
	return NewCatalog(wrapper.Niches)
}

// All returns the niches in configuration order.
func (c *Catalog) All() []Niche {
	out := make([]Niche, len(c.niches))
	copy(out, c.niches)
	return out
}

// Get returns the niche with the given id.
func (c *Catalog) Get(id string) (*Niche, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	n := c.niches[i]
	return &n, true
}

// Vocabulary returns the cached vocabulary for a niche id.
func (c *Catalog) Vocabulary(id string) (Vocabulary, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.vocab[id]; ok {
		return v, true
	}
	v := BuildVocabulary(c.niches[i].Keywords)
	c.vocab[id] = v
	return v, true
}
