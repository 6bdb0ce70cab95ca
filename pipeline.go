// Package pipeline wires the content stages into a runnable loader: fetch
// raw documents from a source, extract structured records, tag languages,
// fold translations, resolve relationships, patch cross-references, and
// persist everything into a revisioned document store.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-content-pipeline/internal/archieml"
	"github.com/goliatone/go-content-pipeline/internal/extract"
	"github.com/goliatone/go-content-pipeline/internal/filters"
	"github.com/goliatone/go-content-pipeline/internal/fuzzy"
	"github.com/goliatone/go-content-pipeline/internal/language"
	"github.com/goliatone/go-content-pipeline/internal/logging"
	"github.com/goliatone/go-content-pipeline/internal/relate"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/internal/source"
	"github.com/goliatone/go-content-pipeline/internal/store"
	"github.com/goliatone/go-content-pipeline/internal/translate"
	"github.com/goliatone/go-content-pipeline/internal/xref"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
	"github.com/goliatone/go-content-pipeline/pkg/record"
)

// Pipeline runs the full content load against one source and one store.
type Pipeline struct {
	cfg      Config
	source   interfaces.DocumentSource
	store    interfaces.DocumentStore
	provider interfaces.LoggerProvider
	logger   interfaces.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSource sets the document source to load from.
func WithSource(src interfaces.DocumentSource) Option {
	return func(p *Pipeline) { p.source = src }
}

// WithStore sets the document store to persist into.
func WithStore(st interfaces.DocumentStore) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithLoggerProvider wires structured logging through every stage.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(p *Pipeline) {
		p.provider = provider
		p.logger = logging.RootLogger(provider)
	}
}

// New validates the runtime configuration and assembles a Pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.source == nil {
		return nil, wrapValidationError(errors.New("pipeline: document source required"))
	}
	if p.store == nil {
		return nil, wrapValidationError(errors.New("pipeline: document store required"))
	}
	return p, nil
}

// RunOptions selects the scope of one pipeline run.
type RunOptions struct {
	// IDs restricts the run to specific source documents. Everything already
	// stored is merged in unchanged, so relationships and cross-references
	// still resolve against the full corpus.
	IDs []string
	// DryRun executes every transform but writes nothing.
	DryRun bool
}

// RunResult summarizes one run.
type RunResult struct {
	// Fetched counts source documents handed to extraction.
	Fetched int
	// Skipped counts documents extraction rejected (unknown type, bad title).
	Skipped int
	// Records counts content records after translation folding.
	Records int
	// Saved and Conflicts partition the persisted batch.
	Saved     int
	Conflicts int
}

// Run loads content from the source, transforms it, and persists it. With no
// IDs it is a full reload and the store is cleared first. Every run, full or
// incremental, re-persists the resolved config alongside the content.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runLog := logging.WithFields(p.logger, map[string]any{"run": uuid.NewString()})

	cfgDoc, err := p.fetchConfigDocument(ctx)
	if err != nil {
		return nil, err
	}
	scfg, err := p.resolveSchema(cfgDoc)
	if err != nil {
		return nil, err
	}
	p.configureIgnore(scfg)

	incremental := len(opts.IDs) > 0
	docs, err := p.collectDocuments(ctx, opts.IDs, cfgDoc, scfg)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	extractor := extract.New(scfg, logging.ExtractLogger(p.provider))
	fresh := make([]*record.Record, 0, len(docs))
	skipped := 0
	for _, d := range docs {
		rec, ok := extractor.Extract(d)
		if !ok {
			skipped++
			continue
		}
		fresh = append(fresh, rec)
	}

	records, err := p.mergeExisting(ctx, fresh, incremental)
	if err != nil {
		return nil, err
	}

	tagger := language.New(scfg, logging.LanguageLogger(p.provider))
	for _, rec := range records {
		tagger.Tag(rec)
	}

	matcher := fuzzy.New(scfg.RenamedTitles, scfg.RenameThreshold, p.logger)
	flt := filters.New(scfg, matcher, logging.FiltersLogger(p.provider))
	flt.Pre(records)

	records = translate.New(scfg, matcher, logging.MergeLogger(p.provider)).Merge(records)
	relate.New(scfg, matcher, logging.RelateLogger(p.provider)).Resolve(records)
	flt.Post(records)
	xref.New(scfg, matcher, logging.XrefLogger(p.provider)).Patch(records)

	sort.Slice(records, func(i, j int) bool { return records[i].ID() < records[j].ID() })

	res := &RunResult{
		Fetched: len(docs),
		Skipped: skipped,
		Records: len(records),
	}
	if opts.DryRun {
		runLog.Info("dry run complete", "records", res.Records, "skipped", res.Skipped)
		return res, nil
	}

	if !incremental {
		if err := p.store.Reset(ctx); err != nil {
			return res, wrapRunError(err)
		}
	}
	if err := p.persistConfig(ctx, scfg); err != nil {
		return res, err
	}

	saver := store.NewSaver(p.store, logging.StoreLogger(p.provider))
	results, err := saver.SaveRecords(ctx, records)
	if err != nil {
		return res, wrapRunError(err)
	}
	for _, r := range results {
		if r.Err != nil || r.Conflict {
			res.Conflicts++
			continue
		}
		res.Saved++
	}
	runLog.Info("run complete",
		"records", res.Records, "saved", res.Saved,
		"conflicts", res.Conflicts, "skipped", res.Skipped)
	return res, nil
}

// TestMatch probes the fuzzy resolver against every stored slug, reporting
// what a relationship naming query would resolve to.
func (p *Pipeline) TestMatch(ctx context.Context, query string) (string, float64, bool, error) {
	docs, err := p.store.List(ctx)
	if err != nil {
		return "", 0, false, wrapRunError(err)
	}
	slugs := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == interfaces.ConfigDocumentID {
			continue
		}
		if slug, ok := doc.Body[record.KeySlug].(string); ok && slug != "" {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	matcher := fuzzy.New(nil, schema.DefaultRenameThreshold, p.logger)
	slug, score, ok := matcher.BestTitle(query, slugs, schema.DefaultMatchThreshold)
	return slug, score, ok, nil
}

// ResetStore drops every stored document.
func (p *Pipeline) ResetStore(ctx context.Context) error {
	return wrapRunError(p.store.Reset(ctx))
}

// fetchConfigDocument locates the schema document in the source, by id first
// and then by source-side title.
func (p *Pipeline) fetchConfigDocument(ctx context.Context) (interfaces.SourceDocument, error) {
	name := p.cfg.ConfigDocument
	doc, found, err := p.source.Get(ctx, name)
	if err != nil {
		return doc, wrapRunError(err)
	}
	if found {
		return doc, nil
	}
	all, err := p.source.List(ctx)
	if err != nil {
		return doc, wrapRunError(err)
	}
	for _, d := range all {
		if d.Title == name || d.ID == name {
			return d, nil
		}
	}
	return interfaces.SourceDocument{}, ErrConfigDocumentMissing
}

func (p *Pipeline) resolveSchema(doc interfaces.SourceDocument) (*schema.Config, error) {
	raw := archieml.Parse(doc.Text)
	scfg, err := schema.Resolve(raw)
	if err != nil {
		return nil, wrapValidationError(err)
	}
	return scfg, nil
}

// configureIgnore pushes the schema's ignore-folder expression into sources
// that support it.
func (p *Pipeline) configureIgnore(scfg *schema.Config) {
	if src, ok := p.source.(source.IgnoreConfigurable); ok {
		src.SetIgnorePattern(scfg.IgnoreFolder)
	}
}

// collectDocuments gathers the run's input set: either the explicit ids, or
// every published document the source lists.
func (p *Pipeline) collectDocuments(ctx context.Context, ids []string, cfgDoc interfaces.SourceDocument, scfg *schema.Config) ([]interfaces.SourceDocument, error) {
	if len(ids) > 0 {
		docs := make([]interfaces.SourceDocument, 0, len(ids))
		for _, id := range ids {
			doc, found, err := p.source.Get(ctx, id)
			if err != nil {
				return nil, wrapRunError(err)
			}
			if !found {
				p.logger.Warn("requested document not found", "id", id)
				continue
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	all, err := p.source.List(ctx)
	if err != nil {
		return nil, wrapRunError(err)
	}
	docs := make([]interfaces.SourceDocument, 0, len(all))
	for _, d := range all {
		if d.ID == cfgDoc.ID {
			continue
		}
		if !scfg.PublishedFilename.MatchString(d.Title) {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// mergeExisting folds freshly extracted records over what the store already
// holds, keyed by source document id. Carried-over records keep their
// revisions and translations; replaced records inherit both so the next save
// does not conflict and already-folded translations survive a partial run.
func (p *Pipeline) mergeExisting(ctx context.Context, fresh []*record.Record, incremental bool) ([]*record.Record, error) {
	byDoc := map[string]*record.Record{}
	order := []string{}

	if incremental {
		stored, err := p.store.List(ctx)
		if err != nil {
			return nil, wrapRunError(err)
		}
		for _, doc := range stored {
			if doc.ID == interfaces.ConfigDocumentID {
				continue
			}
			rec := record.FromBody(doc.Body)
			rec.Rev = doc.Rev
			if rec.DocumentID == "" {
				continue
			}
			byDoc[rec.DocumentID] = rec
			order = append(order, rec.DocumentID)
		}
	}

	for _, rec := range fresh {
		if prev, ok := byDoc[rec.DocumentID]; ok {
			rec.Rev = prev.Rev
			rec.Translations = prev.Translations
		} else {
			order = append(order, rec.DocumentID)
		}
		byDoc[rec.DocumentID] = rec
	}

	records := make([]*record.Record, 0, len(order))
	for _, id := range order {
		records = append(records, byDoc[id])
	}
	return records, nil
}

// persistConfig stores the raw config document under its well-known id so
// the read facade can serve the schema content was loaded with.
func (p *Pipeline) persistConfig(ctx context.Context, scfg *schema.Config) error {
	body := make(map[string]any, len(scfg.Raw)+2)
	for k, v := range scfg.Raw {
		body[k] = v
	}
	body[record.KeyType] = "config"
	body[record.KeySlug] = strings.TrimPrefix(interfaces.ConfigDocumentID, "config:")

	doc := interfaces.StoredDocument{ID: interfaces.ConfigDocumentID, Body: body}
	if current, found, err := p.store.Get(ctx, interfaces.ConfigDocumentID); err != nil {
		return wrapRunError(err)
	} else if found {
		doc.Rev = current.Rev
	}

	results, err := p.store.BulkUpsert(ctx, []interfaces.StoredDocument{doc})
	if err != nil {
		return wrapRunError(err)
	}
	for _, r := range results {
		if r.Err != nil {
			return wrapRunError(r.Err)
		}
		if r.Conflict {
			p.logger.Warn("config document conflicted", "rev", r.Rev)
		}
	}
	return nil
}
