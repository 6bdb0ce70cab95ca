// Command loader runs the content pipeline: it reads raw documents from the
// content directory (or a local snapshot), transforms them, and persists the
// result into the document store the API serves from.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	pipeline "github.com/goliatone/go-content-pipeline"
	"github.com/goliatone/go-content-pipeline/internal/logging"
	"github.com/goliatone/go-content-pipeline/internal/logging/gologger"
	"github.com/goliatone/go-content-pipeline/internal/source"
	"github.com/goliatone/go-content-pipeline/internal/store"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*s = append(*s, v)
	}
	return nil
}

type options struct {
	configPath string
	contentDir string
	ids        stringList
	local      bool
	saveLocal  bool
	testMatch  string
	dryRun     bool
	reset      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the YAML runtime config")
	flag.StringVar(&opts.contentDir, "content-dir", "", "override the content directory")
	flag.Var(&opts.ids, "id", "load only this source document id (repeatable)")
	flag.BoolVar(&opts.local, "local", false, "read documents from the local cache snapshot")
	flag.BoolVar(&opts.saveLocal, "save-local", false, "snapshot the source into the local cache and exit")
	flag.StringVar(&opts.testMatch, "test-match", "", "probe fuzzy matching against stored slugs and exit")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "run every transform but write nothing")
	flag.BoolVar(&opts.reset, "reset", false, "drop every stored document and exit")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	cfg, err := pipeline.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.contentDir != "" {
		cfg.ContentDir = opts.contentDir
	}

	provider, err := gologger.NewProvider(gologger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.NewBunStore(db)
	if err := st.CreateSchema(ctx); err != nil {
		return err
	}

	if opts.reset {
		if err := st.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("store cleared")
		return nil
	}

	var src interfaces.DocumentSource
	if opts.local {
		src = source.NewCacheSource(cfg.CacheFile)
	} else {
		src = source.NewFSSource(os.DirFS(cfg.ContentDir), logging.SourceLogger(provider))
	}

	if opts.saveLocal {
		docs, err := src.List(ctx)
		if err != nil {
			return err
		}
		if err := source.SaveCache(cfg.CacheFile, docs); err != nil {
			return err
		}
		fmt.Printf("cached %d documents to %s\n", len(docs), cfg.CacheFile)
		return nil
	}

	p, err := pipeline.New(cfg,
		pipeline.WithSource(src),
		pipeline.WithStore(st),
		pipeline.WithLoggerProvider(provider),
	)
	if err != nil {
		return err
	}

	if opts.testMatch != "" {
		slug, score, ok, err := p.TestMatch(ctx, opts.testMatch)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("no match for %q\n", opts.testMatch)
			return nil
		}
		fmt.Printf("%q -> %s (%.1f)\n", opts.testMatch, slug, score)
		return nil
	}

	res, err := p.Run(ctx, pipeline.RunOptions{IDs: opts.ids, DryRun: opts.dryRun})
	if err != nil {
		return err
	}
	fmt.Printf("fetched %d, records %d, saved %d, conflicts %d, skipped %d\n",
		res.Fetched, res.Records, res.Saved, res.Conflicts, res.Skipped)
	return nil
}

func openDB(cfg pipeline.DatabaseConfig) (*bun.DB, error) {
	if cfg.Driver != "sqlite3" {
		return nil, errors.New("loader: unsupported database driver " + cfg.Driver)
	}
	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
