package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed seed/*.yaml
var seedFiles embed.FS

type seedFile struct {
	Kind    Kind     `yaml:"kind"`
	Records []Record `yaml:"records"`
}

// StaticSource serves records loaded from YAML files.
type StaticSource struct {
	records map[Kind][]Record
}

// NewStaticSource loads every YAML file under dir. An empty dir loads the
// embedded seed catalog.
func NewStaticSource(dir string) (*StaticSource, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(seedFiles, "seed")
		if err != nil {
			return nil, fmt.Errorf("open embedded seed: %w", err)
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	s := &StaticSource{records: make(map[Kind][]Record)}
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		var f seedFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			slog.Warn("skipping invalid catalog YAML", "path", path, "error", err)
			return nil
		}
		if _, err := ParseKind(string(f.Kind)); err != nil {
			slog.Warn("skipping catalog YAML with unknown kind", "path", path, "kind", f.Kind)
			return nil
		}
		for _, r := range f.Records {
			r.Kind = f.Kind
			s.records[f.Kind] = append(s.records[f.Kind], r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog seed: %w", err)
	}

	total := 0
	for _, rs := range s.records {
		total += len(rs)
	}
	slog.Info("static catalog loaded", "kinds", len(s.records), "records", total)
	return s, nil
}

// Fetch returns a copy of the records of kind. Params are ignored; the
// filter engine narrows the result.
func (s *StaticSource) Fetch(_ context.Context, kind Kind, _ url.Values) ([]Record, error) {
	return append([]Record(nil), s.records[kind]...), nil
}
