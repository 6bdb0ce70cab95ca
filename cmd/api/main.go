// Command api serves the read facade over previously loaded content. The
// content schema is read from the stored config document, so the facade
// always reflects the schema the loader last ran with.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	pipeline "github.com/goliatone/go-content-pipeline"
	"github.com/goliatone/go-content-pipeline/internal/httpapi"
	"github.com/goliatone/go-content-pipeline/internal/logging"
	"github.com/goliatone/go-content-pipeline/internal/logging/gologger"
	"github.com/goliatone/go-content-pipeline/internal/schema"
	"github.com/goliatone/go-content-pipeline/internal/store"
	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML runtime config")
	addr := flag.String("addr", "", "override the listen address")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, addr string) error {
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}

	provider, err := gologger.NewProvider(gologger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return err
	}
	logger := logging.HTTPLogger(provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Driver != "sqlite3" {
		return errors.New("api: unsupported database driver " + cfg.Database.Driver)
	}
	sqldb, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	st := store.NewBunStore(db)
	scfg, err := loadSchema(ctx, st)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	httpapi.New(st, scfg,
		httpapi.WithBasePath(cfg.HTTP.BasePath),
		httpapi.WithLoggerProvider(provider),
	).Register(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSchema resolves the content schema from the stored config document.
func loadSchema(ctx context.Context, st *store.BunStore) (*schema.Config, error) {
	doc, found, err := st.Get(ctx, interfaces.ConfigDocumentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("api: config document not stored, run the loader first")
	}
	return schema.Resolve(doc.Body)
}
