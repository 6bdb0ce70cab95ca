package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-content-pipeline/internal/logging"
	"github.com/goliatone/go-content-pipeline/internal/source"
	"github.com/goliatone/go-content-pipeline/internal/store"
	"github.com/goliatone/go-content-pipeline/pkg/testsupport"
)

const configText = `language-default: en
[language-all]
* en
* es
[]
ignore-folder-regex: ^Drafts$
[types-tool]
one: tactic
many: tactics
es: táctica
one: story
many: stories
[]
[types-people]
one: person
many: people
[]
{one-way-relationships}
authors: person
{}
{two-way-tools}
tactics: tactic
stories: story
{}
[markdown]
* summary
[]
`

func contentFS() fstest.MapFS {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	file := func(text string) *fstest.MapFile {
		return &fstest.MapFile{Data: []byte(text), ModTime: modified}
	}
	return fstest.MapFS{
		"api.txt": file(configText),
		"tactics/General Strike DONE.txt": file(
			"tactic: General Strike\n" +
				"summary: Everyone in the city stops working at the same time until the demands are met by the employers.\n" +
				"authors: Jane Roe\n"),
		"tactics/Huelga General DONE.txt": file(
			"tactic: Huelga General\n" +
				"lang: es\n" +
				"default-language-content: General Strike\n" +
				"summary: Todos los trabajadores dejan de trabajar al mismo tiempo hasta que se cumplan las demandas.\n"),
		"stories/The Big Walkout DONE.txt": file(
			"story: The Big Walkout\n" +
				"summary: The workers walked out together and the whole town supported them. Read about [](General Strike) before trying this yourself.\n" +
				"tactics: general strike\n"),
		"people/Jane Roe DONE.txt": file(
			"person: Jane Roe\n" +
				"lang: en\n" +
				"emails: jane@example.org\n"),
		"tactics/Unfinished.txt":      file("tactic: Half Done\nsummary: Not ready.\n"),
		"Drafts/Secret Plan DONE.txt": file("tactic: Secret Plan\nsummary: Hidden.\n"),
	}
}

func newTestPipeline(t *testing.T, fsys fstest.MapFS) (*Pipeline, *store.BunStore) {
	t.Helper()
	st := store.NewBunStore(testsupport.NewBunDB(t))
	if err := st.CreateSchema(context.Background()); err != nil {
		t.Fatalf("CreateSchema: %v", err)
	}
	p, err := New(DefaultConfig(),
		WithSource(source.NewFSSource(fsys, logging.NoOp())),
		WithStore(st),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, st
}

func getBody(t *testing.T, st *store.BunStore, id string) map[string]any {
	t.Helper()
	doc, found, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	if !found {
		t.Fatalf("expected %s to be stored", id)
	}
	return doc.Body
}

func TestRunFullReload(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t, contentFS())

	res, err := p.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Fetched != 4 || res.Skipped != 0 {
		t.Fatalf("fetched %d skipped %d", res.Fetched, res.Skipped)
	}
	if res.Records != 3 || res.Saved != 3 || res.Conflicts != 0 {
		t.Fatalf("records %d saved %d conflicts %d", res.Records, res.Saved, res.Conflicts)
	}

	tactic := getBody(t, st, "tactic:general-strike")
	if tactic["byline"] != "Jane Roe" {
		t.Fatalf("byline: %#v", tactic["byline"])
	}
	if tactic["module-type"] != "full" {
		t.Fatalf("module-type: %#v", tactic["module-type"])
	}
	stories, _ := tactic["stories"].([]any)
	if len(stories) != 1 || stories[0] != "the-big-walkout" {
		t.Fatalf("backward stories: %#v", tactic["stories"])
	}
	translations, _ := tactic["translations"].(map[string]any)
	es, _ := translations["es"].(map[string]any)
	if es["title"] != "Huelga General" {
		t.Fatalf("es translation: %#v", translations)
	}

	story := getBody(t, st, "story:the-big-walkout")
	summary, _ := story["summary"].(string)
	if !strings.Contains(summary, "(see: [TACTIC: General Strike](/tool/general-strike)") {
		t.Fatalf("cross reference not patched: %q", summary)
	}
	if story["tactics"] != "general-strike" {
		t.Fatalf("forward tactics: %#v", story["tactics"])
	}

	person := getBody(t, st, "person:jane-roe")
	if person["email-available"] != true {
		t.Fatalf("email-available: %#v", person["email-available"])
	}

	cfgBody := getBody(t, st, "config:api")
	if cfgBody["type"] != "config" || cfgBody["language-default"] != "en" {
		t.Fatalf("config body: %#v", cfgBody)
	}
}

func TestRunFullReloadTwiceDoesNotConflict(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t, contentFS())

	if _, err := p.Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := p.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Conflicts != 0 || res.Saved != 3 {
		t.Fatalf("second run saved %d conflicts %d", res.Saved, res.Conflicts)
	}

	doc, _, err := st.Get(ctx, "tactic:general-strike")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(doc.Rev, "1-") {
		t.Fatalf("full reload should restart revisions, got %q", doc.Rev)
	}
}

func TestRunIncrementalPreservesRevisionsAndTranslations(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t, contentFS())

	if _, err := p.Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("full run: %v", err)
	}

	res, err := p.Run(ctx, RunOptions{IDs: []string{"tactics/General Strike DONE.txt"}})
	if err != nil {
		t.Fatalf("incremental run: %v", err)
	}
	if res.Fetched != 1 || res.Conflicts != 0 {
		t.Fatalf("incremental fetched %d conflicts %d", res.Fetched, res.Conflicts)
	}
	// The rest of the corpus is merged in from the store, so relationships
	// still resolve against everything.
	if res.Records != 3 {
		t.Fatalf("incremental records %d", res.Records)
	}

	doc, _, err := st.Get(ctx, "tactic:general-strike")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(doc.Rev, "2-") {
		t.Fatalf("incremental save should bump revision, got %q", doc.Rev)
	}
	translations, _ := doc.Body["translations"].(map[string]any)
	if _, ok := translations["es"]; !ok {
		t.Fatalf("incremental run dropped translations: %#v", doc.Body)
	}
	stories, _ := doc.Body["stories"].([]any)
	if len(stories) != 1 {
		t.Fatalf("backward links not rebuilt: %#v", doc.Body["stories"])
	}

	// The config document is refreshed on every run, not only full reloads.
	cfgDoc, found, err := st.Get(ctx, "config:api")
	if err != nil || !found {
		t.Fatalf("config document after incremental run: found=%v err=%v", found, err)
	}
	if !strings.HasPrefix(cfgDoc.Rev, "2-") {
		t.Fatalf("incremental run should refresh the config document, got rev %q", cfgDoc.Rev)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t, contentFS())

	res, err := p.Run(ctx, RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Saved != 0 || res.Records != 3 {
		t.Fatalf("dry run saved %d records %d", res.Saved, res.Records)
	}
	docs, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("dry run persisted %d documents", len(docs))
	}
}

func TestRunIgnoresDraftsAndUnpublished(t *testing.T) {
	ctx := context.Background()
	p, st := newTestPipeline(t, contentFS())

	if _, err := p.Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, id := range []string{"tactic:secret-plan", "tactic:half-done"} {
		if _, found, _ := st.Get(ctx, id); found {
			t.Fatalf("unpublished document persisted: %s", id)
		}
	}
}

func TestTestMatchProbesStoredSlugs(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t, contentFS())
	if _, err := p.Run(ctx, RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	slug, score, ok, err := p.TestMatch(ctx, "General Strike!")
	if err != nil {
		t.Fatalf("TestMatch: %v", err)
	}
	if !ok || slug != "general-strike" {
		t.Fatalf("match %q ok=%v score=%v", slug, ok, score)
	}

	if _, _, ok, _ := p.TestMatch(ctx, "completely unrelated query"); ok {
		t.Fatalf("unrelated query should not match")
	}
}

func TestRunFailsWithoutConfigDocument(t *testing.T) {
	fsys := contentFS()
	delete(fsys, "api.txt")
	p, _ := newTestPipeline(t, fsys)

	_, err := p.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrConfigDocumentMissing) {
		t.Fatalf("expected ErrConfigDocumentMissing, got %v", err)
	}
}

func TestRunFailsWithNothingPublished(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"api.txt": &fstest.MapFile{Data: []byte(configText), ModTime: modified},
	}
	p, _ := newTestPipeline(t, fsys)

	_, err := p.Run(context.Background(), RunOptions{})
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}
