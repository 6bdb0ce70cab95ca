// Package logging supplies module-scoped loggers to the pipeline stages.
// Every stage asks for a logger through a LoggerProvider; when none is
// configured the stages fall back to a no-op implementation so library use
// never forces a logging dependency on the host.
package logging

import (
	"context"

	"github.com/goliatone/go-content-pipeline/pkg/interfaces"
)

const (
	rootModule     = "pipeline"
	extractModule  = "pipeline.extract"
	languageModule = "pipeline.language"
	mergeModule    = "pipeline.translate"
	relateModule   = "pipeline.relate"
	xrefModule     = "pipeline.xref"
	filtersModule  = "pipeline.filters"
	sourceModule   = "pipeline.source"
	storeModule    = "pipeline.store"
	httpModule     = "pipeline.http"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered per stage.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// RootLogger returns the namespace for run-level orchestration entries.
func RootLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, rootModule)
}

// ExtractLogger returns the namespace for the markup extractor.
func ExtractLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, extractModule)
}

// LanguageLogger returns the namespace for the language tagger.
func LanguageLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, languageModule)
}

// MergeLogger returns the namespace for the translation merger.
func MergeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mergeModule)
}

// RelateLogger returns the namespace for the relationship resolver.
func RelateLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, relateModule)
}

// XrefLogger returns the namespace for the cross-reference patcher.
func XrefLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, xrefModule)
}

// FiltersLogger returns the namespace for the pre/post filter passes.
func FiltersLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, filtersModule)
}

// SourceLogger returns the namespace for document sources.
func SourceLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sourceModule)
}

// StoreLogger returns the namespace for the persistence adapter.
func StoreLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storeModule)
}

// HTTPLogger returns the namespace for the read facade.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
