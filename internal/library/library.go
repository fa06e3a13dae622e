// Package library finds meditation texts on disk and turns them into plain
// narration text.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/narrate/utils"
)

// Extensions lists the file patterns treated as meditation texts.
var Extensions = []string{"*.md", "*.markdown", "*.txt"}

// Entry is one meditation file.
type Entry struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// Entries implements fuzzy.Source over entry names.
type Entries []Entry

func (e Entries) String(i int) string { return e[i].Name }
func (e Entries) Len() int            { return len(e) }

// Find returns every meditation file under dir, sorted by name. Unless all
// is set, files ignored by git and hidden files are skipped.
func Find(dir string, all bool) (Entries, error) {
	dir = utils.ExpandPath(dir)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("library directory: %w", err)
	}

	var ch chan gitcha.SearchResult
	var err error
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, Extensions, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, Extensions, []string{".*"})
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", dir, err)
	}

	var entries Entries
	for res := range ch {
		entries = append(entries, Entry{
			Path:    res.Path,
			Name:    name(dir, res.Path),
			ModTime: res.Info.ModTime(),
			Size:    res.Info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Match returns entries whose names fuzzily match query, best first. An
// exact name match (ignoring case) always comes first.
func Match(entries Entries, query string) Entries {
	var out Entries
	for _, e := range entries {
		if strings.EqualFold(e.Name, query) {
			out = append(out, e)
		}
	}
	for _, m := range fuzzy.FindFrom(query, entries) {
		if !strings.EqualFold(entries[m.Index].Name, query) {
			out = append(out, entries[m.Index])
		}
	}
	return out
}

// name is the path relative to dir without its extension.
func name(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
}
