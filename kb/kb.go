// Package kb is the knowledge base of playbook documents an advisory may cite.
//
// A document is a markdown file: its ID is the file name without extension and its title is
// the first level one heading.
package kb

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/etnz/advisory"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed playbooks/*.md
var playbooks embed.FS

// Document is a knowledge base entry.
type Document struct {
	ID    string
	Title string
	Body  string
}

// Library is a set of documents indexed by ID.
type Library struct {
	docs map[string]*Document
	ids  []string // sorted
}

// Default returns the library of embedded playbooks.
func Default() *Library {
	sub, err := fs.Sub(playbooks, "playbooks")
	if err != nil {
		panic(err)
	}
	lib, err := Load(sub)
	if err != nil {
		panic(fmt.Sprintf("embedded playbooks are invalid: %v", err))
	}
	return lib
}

// LoadDir reads the library from the markdown files in dir.
func LoadDir(dir string) (*Library, error) {
	return Load(os.DirFS(dir))
}

// Load reads every .md file at the root of fsys.
func Load(fsys fs.FS) (*Library, error) {
	lib := &Library{docs: make(map[string]*Document)}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) != ".md" {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(path.Base(p), ".md")
		title := Title(content)
		if title == "" {
			return fmt.Errorf("document %q has no title", id)
		}
		lib.docs[id] = &Document{ID: id, Title: title, Body: string(content)}
		lib.ids = append(lib.ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	sort.Strings(lib.ids)
	return lib, nil
}

// Title returns the text of the first level one heading of a markdown document, or "".
func Title(content []byte) string {
	root := goldmark.DefaultParser().Parse(text.NewReader(content))
	var title string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		var b bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(content))
			}
		}
		title = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return title
}

// Get returns the document with that ID.
func (l *Library) Get(id string) (*Document, error) {
	d, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %q not found", id)
	}
	return d, nil
}

// Refs returns the citation references of all documents, sorted by ID.
func (l *Library) Refs() []advisory.KBRef {
	refs := make([]advisory.KBRef, 0, len(l.ids))
	for _, id := range l.ids {
		refs = append(refs, advisory.KBRef{ID: id, Title: l.docs[id].Title})
	}
	return refs
}

// Only returns a library restricted to the given IDs, e.g. the citable documents of a request.
// Unknown IDs are ignored.
func (l *Library) Only(ids ...string) *Library {
	sub := &Library{docs: make(map[string]*Document)}
	for _, id := range ids {
		if d, ok := l.docs[id]; ok {
			if _, dup := sub.docs[id]; !dup {
				sub.ids = append(sub.ids, id)
			}
			sub.docs[id] = d
		}
	}
	sort.Strings(sub.ids)
	return sub
}

// Concat returns the body of the documents, separated by a blank line.
func (l *Library) Concat(ids ...string) (string, error) {
	if len(ids) == 0 {
		ids = l.ids
	}
	var b strings.Builder
	for _, id := range ids {
		d, err := l.Get(id)
		if err != nil {
			return "", err
		}
		b.WriteString(d.Body)
		b.WriteString("\n")
	}
	return b.String(), nil
}
