package pipeline

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	runValidationCode = "PIPELINE_VALIDATION_FAILED"
	runExecuteCode    = "PIPELINE_EXECUTION_FAILED"
)

// ErrConfigDocumentMissing is fatal: without the config document there is no
// schema, and no content can be interpreted.
var ErrConfigDocumentMissing = errors.New("pipeline: config document not found in source")

// ErrNoDocuments reports a run that found nothing published to load.
var ErrNoDocuments = errors.New("pipeline: no published documents to load")

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "pipeline configuration invalid").
		WithTextCode(runValidationCode)
}

func wrapRunError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "pipeline run failed").
		WithTextCode(runExecuteCode)
}
