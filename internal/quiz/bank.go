package quiz

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed banks/*.yaml
var defaultBanks embed.FS

// bankFile is the on-disk shape of a question bank.
type bankFile struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Order     int        `yaml:"order"`
	Questions []Question `yaml:"questions"`
}

// Bank is an ordered, validated set of questions.
type Bank struct {
	questions []Question
	byID      map[string]int
}

// LoadBank walks dir and loads every YAML bank in it. Invalid files and
// invalid questions are skipped with a warning. An empty dir loads the
// embedded default bank.
func LoadBank(dir string) (*Bank, error) {
	if dir == "" {
		return DefaultBank()
	}
	return loadFS(os.DirFS(dir))
}

// DefaultBank returns the embedded aptitude bank.
func DefaultBank() (*Bank, error) {
	sub, err := fs.Sub(defaultBanks, "banks")
	if err != nil {
		return nil, fmt.Errorf("open embedded banks: %w", err)
	}
	return loadFS(sub)
}

func loadFS(fsys fs.FS) (*Bank, error) {
	var files []bankFile
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		var f bankFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			slog.Warn("skipping invalid question bank YAML", "path", path, "error", err)
			return nil
		}
		if len(f.Questions) == 0 {
			return nil // Not a bank file
		}
		if f.ID == "" {
			f.ID = strings.TrimSuffix(filepath.Base(path), ext)
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading question banks: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].ID < files[j].ID
	})

	b := &Bank{byID: make(map[string]int)}
	for _, f := range files {
		for _, q := range f.Questions {
			if err := validateQuestion(q); err != nil {
				slog.Warn("skipping invalid question", "bank", f.ID, "question", q.ID, "error", err)
				continue
			}
			if _, dup := b.byID[q.ID]; dup {
				slog.Warn("skipping duplicate question id", "bank", f.ID, "question", q.ID)
				continue
			}
			b.byID[q.ID] = len(b.questions)
			b.questions = append(b.questions, q)
		}
	}

	if len(b.questions) == 0 {
		return nil, fmt.Errorf("loading question banks: no valid questions found")
	}

	slog.Info("question bank loaded", "banks", len(files), "questions", len(b.questions))
	return b, nil
}

// NewBank builds a bank from questions already in memory.
func NewBank(questions []Question) (*Bank, error) {
	b := &Bank{byID: make(map[string]int, len(questions))}
	for _, q := range questions {
		if err := validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %q: %w", q.ID, err)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}
	if len(b.questions) == 0 {
		return nil, fmt.Errorf("bank has no questions")
	}
	return b, nil
}

func validateQuestion(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("missing prompt")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("needs at least two options")
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o.Value == "" {
			return fmt.Errorf("option %q has no value", o.ID)
		}
		if seen[o.Value] {
			return fmt.Errorf("duplicate option value %q", o.Value)
		}
		seen[o.Value] = true
	}
	return nil
}

// Questions returns the questions in presentation order.
func (b *Bank) Questions() []Question {
	return append([]Question(nil), b.questions...)
}

// Question returns a question by id.
func (b *Bank) Question(id string) (Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}
