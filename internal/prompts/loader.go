// Package prompts loads the embedded workflow-generation templates and builds
// token-bounded prompts from them.
package prompts

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var templateFS embed.FS

// ErrUnknownKey is returned when a template file has no entry for a key.
var ErrUnknownKey = errors.New("unknown prompt key")

// templateSet is one parsed template file. It is parsed at most once per
// cache generation.
type templateSet struct {
	once    sync.Once
	entries map[string]string
	err     error
}

func (s *templateSet) load(filename string) {
	raw, err := templateFS.ReadFile(filename)
	if err != nil {
		s.err = fmt.Errorf("read template file %s: %w", filename, err)
		return
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		s.err = fmt.Errorf("parse template file %s: %w", filename, err)
	}
}

var sets sync.Map // filename -> *templateSet

func templates(filename string) (map[string]string, error) {
	v, _ := sets.LoadOrStore(filename, &templateSet{})
	set := v.(*templateSet)
	set.once.Do(func() { set.load(filename) })
	return set.entries, set.err
}

// Get returns the template stored under key in an embedded file such as
// "generation.json".
func Get(filename, key string) (string, error) {
	entries, err := templates(filename)
	if err != nil {
		return "", err
	}
	text, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("%w %q in %s", ErrUnknownKey, key, filename)
	}
	return text, nil
}

// MustGet is Get for templates the process cannot run without.
func MustGet(filename, key string) string {
	text, err := Get(filename, key)
	if err != nil {
		panic("prompts: " + err.Error())
	}
	return text
}

// Format substitutes {{.Name}} placeholders from data in a single pass, so
// substituted values are never expanded again. Unknown placeholders are kept.
func Format(template string, data map[string]string) string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	oldnew := make([]string, 0, 2*len(names))
	for _, name := range names {
		oldnew = append(oldnew, "{{."+name+"}}", data[name])
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}

// ClearCache drops every parsed file.
func ClearCache() {
	sets.Range(func(k, _ any) bool {
		sets.Delete(k)
		return true
	})
}

// List returns the keys of a template file in sorted order.
func List(filename string) ([]string, error) {
	entries, err := templates(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
