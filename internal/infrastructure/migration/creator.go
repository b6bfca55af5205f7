package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
)

const upTemplate = `-- {{.Name}}
-- Created: {{.Created}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const downTemplate = `-- Rollback: {{.Name}}
-- Created: {{.Created}}

`

// Entry is one migration version found in a migration set.
type Entry struct {
	Version uint   `json:"version"`
	Name    string `json:"name"`
	HasUp   bool   `json:"has_up"`
	HasDown bool   `json:"has_down"`
}

// Complete reports whether the version has both directions.
func (e Entry) Complete() bool {
	return e.HasUp && e.HasDown
}

// NewFile describes a freshly created up/down pair.
type NewFile struct {
	Version     uint   `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created"`
	UpPath      string `json:"up_path"`
	DownPath    string `json:"down_path"`
}

// List parses the migration files in files, sorted by version. Files that do
// not follow the <version>_<name>.<up|down>.sql pattern are ignored.
func List(files fs.FS) ([]Entry, error) {
	dirEntries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".sql") {
			continue
		}
		parsed, err := source.DefaultParse(de.Name())
		if err != nil {
			continue
		}
		e, ok := byVersion[parsed.Version]
		if !ok {
			e = &Entry{Version: parsed.Version, Name: parsed.Identifier}
			byVersion[parsed.Version] = e
		}
		switch parsed.Direction {
		case source.Up:
			e.HasUp = true
		case source.Down:
			e.HasDown = true
		}
	}

	entries := make([]Entry, 0, len(byVersion))
	for _, e := range byVersion {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Create writes an empty up/down pair into dir, numbered one past the
// highest existing version.
func Create(dir, name, description string) (*NewFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	var version uint = 1
	if n := len(existing); n > 0 {
		version = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", version, slug)
	nf := &NewFile{
		Version:     version,
		Name:        slug,
		Description: description,
		Created:     time.Now().UTC().Format(time.RFC3339),
		UpPath:      filepath.Join(dir, base+".up.sql"),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}

	if err := writeTemplate(nf.UpPath, upTemplate, nf); err != nil {
		return nil, err
	}
	if err := writeTemplate(nf.DownPath, downTemplate, nf); err != nil {
		_ = os.Remove(nf.UpPath)
		return nil, err
	}
	return nf, nil
}

func writeTemplate(path, text string, data *NewFile) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowercases name and collapses separators into single
// underscores, dropping everything else.
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
