package games

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Question is one multiple-choice quiz question. Answer indexes Options.
type Question struct {
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
	Answer  int      `yaml:"answer" json:"-"`
	Fact    string   `yaml:"fact" json:"fact,omitempty"`
}

// Bin is a destination in the trash-sorting game.
type Bin struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// TrashItem is something to be sorted into its Bin.
type TrashItem struct {
	Name string `yaml:"name" json:"name"`
	Bin  string `yaml:"bin" json:"-"`
}

// Content is the static material both games draw from.
type Content struct {
	Questions []Question `yaml:"quiz"`
	Trash     struct {
		Bins  []Bin       `yaml:"bins"`
		Items []TrashItem `yaml:"items"`
	} `yaml:"trash"`
}

// DefaultContent decodes the content compiled into the binary.
func DefaultContent() (Content, error) {
	var c Content
	if err := yaml.Unmarshal(defaultContent, &c); err != nil {
		return Content{}, fmt.Errorf("decode embedded content: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}

// LoadContent decodes and validates content from r.
func LoadContent(r io.Reader) (Content, error) {
	var c Content
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Content{}, fmt.Errorf("decode content: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}

// Validate checks that every question has a valid answer and every item a known bin.
func (c Content) Validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: no quiz questions", ErrInvalidContent)
	}
	for i, q := range c.Questions {
		if q.Prompt == "" || len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs a prompt and at least two options", ErrInvalidContent, i)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer out of range", ErrInvalidContent, i)
		}
	}

	if len(c.Trash.Bins) == 0 || len(c.Trash.Items) == 0 {
		return fmt.Errorf("%w: trash game needs bins and items", ErrInvalidContent)
	}
	bins := make(map[string]struct{}, len(c.Trash.Bins))
	for _, b := range c.Trash.Bins {
		bins[b.ID] = struct{}{}
	}
	for _, item := range c.Trash.Items {
		if _, ok := bins[item.Bin]; !ok {
			return fmt.Errorf("%w: item %q uses unknown bin %q", ErrInvalidContent, item.Name, item.Bin)
		}
	}
	return nil
}
