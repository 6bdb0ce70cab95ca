// Package source provides document sources for the pipeline: a filesystem
// walker for local content trees and a JSON cache for offline runs. Cloud
// backends plug in behind the same DocumentSource contract.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

// IgnoreConfigurable is implemented by sources whose folder pruning rule is
// only known after the config document has been resolved.
type IgnoreConfigurable interface {
	SetIgnorePattern(re *regexp.Regexp)
}

// FSSource walks a filesystem tree of markup documents. Each file becomes
// one SourceDocument; optional YAML front matter lands in Meta.
type FSSource struct {
	fsys   fs.FS
	ignore *regexp.Regexp
	logger interfaces.Logger
}

// NewFSSource returns a source over fsys. logger may be nil.
func NewFSSource(fsys fs.FS, logger interfaces.Logger) *FSSource {
	return &FSSource{fsys: fsys, logger: logger}
}

// SetIgnorePattern installs the folder pruning expression. Directories whose
// name matches are skipped whole.
func (s *FSSource) SetIgnorePattern(re *regexp.Regexp) { s.ignore = re }

// List walks the tree and returns every readable document.
func (s *FSSource) List(ctx context.Context) ([]interfaces.SourceDocument, error) {
	var docs []interfaces.SourceDocument
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != "." && s.ignore != nil && s.ignore.MatchString(d.Name()) {
				s.log("omit: folder matches ignore expression", "folder", p)
				return fs.SkipDir
			}
			return nil
		}
		doc, err := s.load(p, d)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk: %w", err)
	}
	return docs, nil
}

// Get fetches one document by its path id.
func (s *FSSource) Get(_ context.Context, id string) (interfaces.SourceDocument, bool, error) {
	info, err := fs.Stat(s.fsys, id)
	if err != nil {
		return interfaces.SourceDocument{}, false, nil
	}
	doc, err := s.loadInfo(id, info)
	if err != nil {
		return interfaces.SourceDocument{}, false, err
	}
	return doc, true, nil
}

func (s *FSSource) load(p string, d fs.DirEntry) (interfaces.SourceDocument, error) {
	info, err := d.Info()
	if err != nil {
		return interfaces.SourceDocument{}, err
	}
	return s.loadInfo(p, info)
}

func (s *FSSource) loadInfo(p string, info fs.FileInfo) (interfaces.SourceDocument, error) {
	raw, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return interfaces.SourceDocument{}, fmt.Errorf("source: read %s: %w", p, err)
	}

	meta := map[string]any{}
	body, err := frontmatter.Parse(strings.NewReader(string(raw)), &meta)
	if err != nil {
		// Malformed front matter is not fatal; treat the whole file as text.
		body = raw
		meta = nil
	}

	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	return interfaces.SourceDocument{
		ID:       p,
		Title:    name,
		Link:     "file://" + p,
		Modified: info.ModTime(),
		Text:     string(body),
		Meta:     meta,
	}, nil
}

func (s *FSSource) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
