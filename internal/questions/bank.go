// Package questions provides the default question sets used when the content
// oracle cannot produce questions for an interview.
package questions

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/hiring-pipeline/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed default_bank.yaml
var defaultBank []byte

// GeneralSet is the name of the set appended to every selection.
const GeneralSet = "general"

// Set is a group of questions that applies when a job title keyword or a
// tech stack entry matches.
type Set struct {
	Name      string           `yaml:"name"`
	Keywords  []string         `yaml:"keywords"`
	Tech      []string         `yaml:"tech"`
	Questions []types.Question `yaml:"questions"`
}

// Bank is an immutable lookup from job parameters to fallback questions.
type Bank struct {
	sets []Set
}

type bankFile struct {
	Sets []Set `yaml:"sets"`
}

// Default returns the bank compiled into the binary.
func Default() *Bank {
	b, err := Parse(defaultBank)
	if err != nil {
		panic(fmt.Sprintf("embedded question bank is invalid: %v", err))
	}
	return b
}

// Load reads a bank from a YAML file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML bank.
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	seen := make(map[string]string)
	hasGeneral := false
	for i, s := range f.Sets {
		if s.Name == "" {
			return nil, fmt.Errorf("set %d has no name", i)
		}
		if s.Name == GeneralSet {
			hasGeneral = true
			if len(s.Questions) == 0 {
				return nil, fmt.Errorf("set %q must not be empty", GeneralSet)
			}
		}
		for _, q := range s.Questions {
			if q.ID == "" || strings.TrimSpace(q.Text) == "" {
				return nil, fmt.Errorf("set %q has a question without id or text", s.Name)
			}
			if other, dup := seen[q.ID]; dup {
				return nil, fmt.Errorf("question id %s appears in sets %q and %q", q.ID, other, s.Name)
			}
			seen[q.ID] = s.Name
		}
	}
	if !hasGeneral {
		return nil, fmt.Errorf("question bank needs a %q set", GeneralSet)
	}
	return &Bank{sets: f.Sets}, nil
}

// Select returns up to n questions for the job, drawn round-robin from the
// sets whose keywords match a word of the title or whose tech matches the
// stack, in file order, with the general set last in every round.
// The result is never empty for n > 0.
func (b *Bank) Select(jobTitle string, techStack []string, n int) []types.Question {
	if n <= 0 {
		return nil
	}

	title := titleWords(jobTitle)
	tech := make(map[string]bool, len(techStack))
	for _, t := range techStack {
		tech[strings.ToLower(strings.TrimSpace(t))] = true
	}

	var ordered []Set
	var general Set
	for _, s := range b.sets {
		if s.Name == GeneralSet {
			general = s
			continue
		}
		if matches(s, title, tech) {
			ordered = append(ordered, s)
		}
	}
	ordered = append(ordered, general)

	out := make([]types.Question, 0, n)
	for depth := 0; len(out) < n; depth++ {
		progressed := false
		for _, s := range ordered {
			if depth < len(s.Questions) {
				progressed = true
				out = append(out, s.Questions[depth])
				if len(out) == n {
					break
				}
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// Sets returns the names of every set in the bank.
func (b *Bank) Sets() []string {
	names := make([]string, len(b.sets))
	for i, s := range b.sets {
		names[i] = s.Name
	}
	return names
}

func titleWords(title string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '/' || r == ',' || r == '(' || r == ')' || r == '|'
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func matches(s Set, title, tech map[string]bool) bool {
	for _, k := range s.Keywords {
		if title[strings.ToLower(k)] {
			return true
		}
	}
	for _, t := range s.Tech {
		if tech[strings.ToLower(t)] {
			return true
		}
	}
	return false
}
