package assistant

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// DefaultLanguage is used when a request names no language or an unknown one.
const DefaultLanguage = "en"

// Prompts are the system prompts for one language.
type Prompts struct {
	Planning          string `yaml:"planning"`
	Generation        string `yaml:"generation"`
	GenerationRequest string `yaml:"generation_request"`
	Assistant         string `yaml:"assistant"`
}

// merge fills empty fields of p from fallback.
func (p Prompts) merge(fallback Prompts) Prompts {
	if strings.TrimSpace(p.Planning) == "" {
		p.Planning = fallback.Planning
	}
	if strings.TrimSpace(p.Generation) == "" {
		p.Generation = fallback.Generation
	}
	if strings.TrimSpace(p.GenerationRequest) == "" {
		p.GenerationRequest = fallback.GenerationRequest
	}
	if strings.TrimSpace(p.Assistant) == "" {
		p.Assistant = fallback.Assistant
	}
	return p
}

// Catalog holds prompts per language and the daily hints.
type Catalog struct {
	Languages map[string]Prompts `yaml:"languages"`
	Hints     []string           `yaml:"hints"`
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalog returns the embedded catalog, overlaid with the YAML file at
// path when path is not empty.
func LoadCatalog(path string) (*Catalog, error) {
	base, err := parseCatalog(defaultCatalog)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, base.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	override, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}
	for lang, p := range override.Languages {
		base.Languages[lang] = p.merge(base.Languages[lang]).merge(base.Languages[DefaultLanguage])
	}
	if len(override.Hints) > 0 {
		base.Hints = override.Hints
	}
	return base, base.Validate()
}

// MustDefaultCatalog returns the embedded catalog and panics if it is invalid.
func MustDefaultCatalog() *Catalog {
	c, err := LoadCatalog("")
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that the default language is complete and that the
// generation request has a slot for the conversation.
func (c *Catalog) Validate() error {
	p, ok := c.Languages[DefaultLanguage]
	if !ok {
		return fmt.Errorf("prompt catalog has no %q prompts", DefaultLanguage)
	}
	if p.Planning == "" || p.Generation == "" || p.Assistant == "" {
		return fmt.Errorf("prompt catalog %q prompts are incomplete", DefaultLanguage)
	}
	for lang, lp := range c.Languages {
		if !strings.Contains(lp.GenerationRequest, conversationSlot) {
			return fmt.Errorf("prompt catalog %q generation_request lacks %s", lang, conversationSlot)
		}
	}
	return nil
}

// For returns the prompts for lang, falling back to the default language.
func (c *Catalog) For(lang string) Prompts {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if p, ok := c.Languages[lang]; ok {
		return p.merge(c.Languages[DefaultLanguage])
	}
	return c.Languages[DefaultLanguage]
}

// LanguageTags returns the configured language tags, sorted.
func (c *Catalog) LanguageTags() []string {
	tags := make([]string, 0, len(c.Languages))
	for tag := range c.Languages {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

const conversationSlot = "{{conversation}}"

// RenderGenerationRequest renders the plan-generation user prompt.
func (p Prompts) RenderGenerationRequest(conversation string) string {
	return strings.ReplaceAll(p.GenerationRequest, conversationSlot, conversation)
}
