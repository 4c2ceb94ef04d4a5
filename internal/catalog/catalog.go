// Package catalog holds the immutable model and language tables the assistant
// offers to callers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultModelID is used whenever a model label is unknown or not yet wired.
const DefaultModelID = "meta-llama/llama-4-scout-17b-16e:free"

const DefaultModelLabel = "Llama-4 Scout"

const DefaultLanguage = "English"

type Model struct {
	Label string `yaml:"label" json:"label"`
	ID    string `yaml:"id" json:"id"`
}

type Language struct {
	Name string `yaml:"name" json:"name"`
	Code string `yaml:"code" json:"code"`
}

// Catalog maps display labels to backend model identifiers. It is never
// mutated after construction and is safe for concurrent use.
type Catalog struct {
	defaultModelID string
	models         []Model
	byLabel        map[string]string
	languages      []Language
}

type fileFormat struct {
	DefaultModel string     `yaml:"default_model"`
	Models       []Model    `yaml:"models"`
	Languages    []Language `yaml:"languages"`
}

var builtinModels = []Model{
	{Label: "DeepSeek Llama 70B", ID: "deepseek-r1-distill-llama-70b:free"},
	{Label: "Llama-3 70B", ID: "meta-llama/llama-3.3-70b-instruct:free"},
	{Label: "Llama-4 Scout", ID: "meta-llama/llama-4-scout:free"},
	{Label: "Llama-4 Maverick", ID: "meta-llama/llama-4-maverick-17b-128e:free"},
}

var builtinLanguages = []Language{
	{Name: "English", Code: "en"},
	{Name: "Spanish", Code: "es"},
	{Name: "German", Code: "de"},
	{Name: "French", Code: "fr"},
	{Name: "Chinese", Code: "zh"},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultModelID, builtinModels, builtinLanguages)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in catalog: %v", err))
	}
	return c
}

// Load reads a YAML catalog file. A missing default_model falls back to
// DefaultModelID and missing languages fall back to the built-in list.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	defaultID := strings.TrimSpace(raw.DefaultModel)
	if defaultID == "" {
		defaultID = DefaultModelID
	}
	languages := raw.Languages
	if len(languages) == 0 {
		languages = builtinLanguages
	}

	c, err := New(defaultID, raw.Models, languages)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// New validates and copies the given tables. Models may carry an empty ID;
// such entries resolve to the default.
func New(defaultModelID string, models []Model, languages []Language) (*Catalog, error) {
	defaultModelID = strings.TrimSpace(defaultModelID)
	if defaultModelID == "" {
		return nil, errors.New("default model id must not be empty")
	}
	if len(languages) == 0 {
		return nil, errors.New("at least one language is required")
	}

	c := &Catalog{
		defaultModelID: defaultModelID,
		models:         make([]Model, 0, len(models)),
		byLabel:        make(map[string]string, len(models)),
		languages:      make([]Language, 0, len(languages)),
	}
	for _, m := range models {
		label := strings.TrimSpace(m.Label)
		if label == "" {
			return nil, errors.New("model label must not be empty")
		}
		if _, dup := c.byLabel[label]; dup {
			return nil, fmt.Errorf("duplicate model label %q", label)
		}
		id := strings.TrimSpace(m.ID)
		c.byLabel[label] = id
		c.models = append(c.models, Model{Label: label, ID: id})
	}

	seen := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return nil, errors.New("language name must not be empty")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate language %q", name)
		}
		seen[key] = struct{}{}
		c.languages = append(c.languages, Language{Name: name, Code: strings.ToLower(strings.TrimSpace(l.Code))})
	}
	return c, nil
}

// Resolve maps a display label to a backend model id. Unknown labels and
// labels without an id silently resolve to the default.
func (c *Catalog) Resolve(label string) string {
	if id := c.byLabel[strings.TrimSpace(label)]; id != "" {
		return id
	}
	return c.defaultModelID
}

func (c *Catalog) DefaultModelID() string { return c.defaultModelID }

func (c *Catalog) Models() []Model {
	return append([]Model(nil), c.models...)
}

func (c *Catalog) Languages() []Language {
	return append([]Language(nil), c.languages...)
}

// Language looks up a supported language by name, ignoring case.
func (c *Catalog) Language(name string) (Language, bool) {
	name = strings.TrimSpace(name)
	for _, l := range c.languages {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Language{}, false
}
