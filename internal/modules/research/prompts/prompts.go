// Package prompts holds the LLM prompt catalog for the research pipeline.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

type PromptName string

const (
	PromptExtract   PromptName = "extract"
	PromptIdeas     PromptName = "ideas"
	PromptNovelty   PromptName = "novelty"
	PromptDoability PromptName = "doability"
	PromptDiversity PromptName = "diversity"
	PromptSynthesis PromptName = "synthesis"
	PromptProfile   PromptName = "profile"
)

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings.
type Input struct {
	// Reader
	PaperText   string
	Summary     string
	Concepts    string
	Findings    string
	Limitations string
	FutureWork  string
	Topics      string
	MinIdeas    int
	MaxIdeas    int
	// Searcher
	IdeaTitle       string
	IdeaDescription string
	Papers          string
	Ideas           string
	MinPapers       int
	MaxPapers       int
	// Personalization
	Profile         string
	Description     string
	ExperienceLevel string
	Scholar         string
}

type Prompt struct {
	Name    string
	Version int
	System  string
	User    string
}

type spec struct {
	Version  int      `yaml:"version"`
	Required []string `yaml:"required"`
	System   string   `yaml:"system"`
	User     string   `yaml:"user"`
}

type compiled struct {
	spec
	system *template.Template
	user   *template.Template
}

//go:embed prompts.yaml
var catalogYAML []byte

var (
	loadOnce sync.Once
	catalog  map[PromptName]compiled
	loadErr  error
)

func load() (map[PromptName]compiled, error) {
	loadOnce.Do(func() {
		catalog, loadErr = parse(catalogYAML)
	})
	return catalog, loadErr
}

func parse(raw []byte) (map[PromptName]compiled, error) {
	var specs map[string]spec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	out := make(map[PromptName]compiled, len(specs))
	for name, s := range specs {
		if s.Version <= 0 {
			return nil, fmt.Errorf("invalid version for %s", name)
		}
		for _, f := range s.Required {
			if _, ok := reflect.TypeOf(Input{}).FieldByName(f); !ok {
				return nil, fmt.Errorf("%s requires unknown input field %q", name, f)
			}
		}
		sysT, err := template.New(name + ".system").Option("missingkey=zero").Parse(s.System)
		if err != nil {
			return nil, fmt.Errorf("%s system template parse: %w", name, err)
		}
		userT, err := template.New(name + ".user").Option("missingkey=zero").Parse(s.User)
		if err != nil {
			return nil, fmt.Errorf("%s user template parse: %w", name, err)
		}
		out[PromptName(name)] = compiled{spec: s, system: sysT, user: userT}
	}
	return out, nil
}

// Build renders the named prompt. Required inputs that are empty are an error.
func Build(name PromptName, in Input) (Prompt, error) {
	cat, err := load()
	if err != nil {
		return Prompt{}, err
	}
	c, ok := cat[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", name)
	}
	v := reflect.ValueOf(in)
	for _, f := range c.Required {
		if v.FieldByName(f).IsZero() {
			return Prompt{}, fmt.Errorf("%s: missing input %s", name, f)
		}
	}
	sys, err := render(c.system, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", name, err)
	}
	user, err := render(c.user, in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", name, err)
	}
	return Prompt{Name: string(name), Version: c.Version, System: sys, User: user}, nil
}

func render(t *template.Template, in Input) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// Names lists every prompt in the catalog.
func Names() []PromptName {
	cat, err := load()
	if err != nil {
		return nil
	}
	out := make([]PromptName, 0, len(cat))
	for n := range cat {
		out = append(out, n)
	}
	return out
}
