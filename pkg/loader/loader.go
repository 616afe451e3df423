// Package loader reads templates, partials and view data from disk.
//
// View data may be YAML or JSON. Mappings decode to *mustache.OrderedMap so
// that sections and the each helper see keys in the order they were
// written.
package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

// ReadTemplate returns the contents of the template file at path.
func ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", readError(path, err)
	}
	return string(data), nil
}

// LoadData reads a YAML or JSON data file. An empty path yields a nil view.
func LoadData(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(path, err)
	}
	v, err := DecodeData(data)
	if err != nil {
		return nil, perrors.New("IO-0002", map[string]any{"Path": path, "GoError": err.Error()})
	}
	return v, nil
}

// DecodeData decodes a YAML or JSON document into plain values: mappings
// become *mustache.OrderedMap, sequences []any and scalars their natural
// Go type. An empty document decodes to nil.
func DecodeData(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return convert(&doc)
}

func convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convert(n.Content[0])
	case yaml.AliasNode:
		return convert(n.Alias)
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.MappingNode:
		m := mustache.NewOrderedMap()
		if err := fill(m, n); err != nil {
			return nil, err
		}
		return m, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// fill copies the pairs of a mapping node into m. Merge keys (<<) are
// expanded in place and never override explicit keys.
func fill(m *mustache.OrderedMap, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.Value == "<<" && k.ShortTag() == "!!merge" {
			if err := merge(m, v); err != nil {
				return err
			}
			continue
		}
		val, err := convert(v)
		if err != nil {
			return err
		}
		m.Set(k.Value, val)
	}
	return nil
}

func merge(m *mustache.OrderedMap, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind == yaml.SequenceNode {
		for _, c := range n.Content {
			if err := merge(m, c); err != nil {
				return err
			}
		}
		return nil
	}
	src := mustache.NewOrderedMap()
	if err := fill(src, n); err != nil {
		return err
	}
	for _, key := range src.Keys() {
		if _, exists := m.Get(key); !exists {
			v, _ := src.Get(key)
			m.Set(key, v)
		}
	}
	return nil
}

// LoadPartials reads every file under dir whose extension is in exts and
// returns them keyed by slash-separated path relative to dir, without the
// extension. A partial "cards/item.mustache" is used as {{> cards/item}}.
// An empty dir yields no partials.
func LoadPartials(dir string, exts []string) (map[string]string, error) {
	partials := map[string]string{}
	if dir == "" {
		return partials, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !HasExtension(path, exts) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		text, err := ReadTemplate(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		partials[name] = text
		return nil
	})
	if err != nil {
		if te, ok := err.(*perrors.TemplateError); ok {
			return nil, te
		}
		return nil, readError(dir, err)
	}
	return partials, nil
}

// HasExtension reports whether path ends in one of exts. Extensions are
// given without the dot and compared case-insensitively.
func HasExtension(path string, exts []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

// Templates lists the template files under dir, sorted.
func Templates(dir string, exts []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if !d.IsDir() && HasExtension(path, exts) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, readError(dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func readError(path string, err error) error {
	return perrors.New("IO-0001", map[string]any{"Path": path, "GoError": err.Error()})
}
