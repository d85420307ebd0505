package doc2scorm

import (
	"errors"
	"fmt"

	"github.com/alnah/go-doc2scorm/internal/archive"
	"github.com/alnah/go-doc2scorm/internal/assets"
	"github.com/alnah/go-doc2scorm/internal/pipeline"
	"github.com/alnah/go-doc2scorm/internal/scorm"
)

// Sentinel errors for library operations.
var (
	// ErrInvalidInput is the family of errors reported before any file is
	// written. Every input validation error matches it.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyContent    = fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported document type", ErrInvalidInput)
	ErrInputTooLarge   = fmt.Errorf("%w: content exceeds size limit", ErrInvalidInput)

	// Shared with the internal packages so errors.Is matches at any depth.
	ErrInvalidVersion   = scorm.ErrInvalidVersion
	ErrInvalidEncoding  = pipeline.ErrInvalidEncoding
	ErrNormalization    = pipeline.ErrNormalization
	ErrRasterizer       = pipeline.ErrRasterizer
	ErrInvalidAssetPath = pipeline.ErrInvalidAssetPath

	ErrAssembly = errors.New("package assembly failed")
	ErrArchive  = errors.New("package archive failed")
	ErrInternal = errors.New("internal error")

	// Asset loading errors. ErrAssetNotFound matches the three kinds.
	ErrAssetNotFound    = assets.ErrNotFound
	ErrStyleNotFound    = assets.ErrStyleNotFound
	ErrTemplateNotFound = assets.ErrTemplateNotFound
	ErrScriptNotFound   = assets.ErrScriptNotFound
	ErrInvalidAssetName = assets.ErrInvalidAssetName
)

// StageError reports the assembly stage at which a conversion failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage a conversion error was raised in.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return StageIdle, false
}

// invalidInput marks err as part of the ErrInvalidInput family.
func invalidInput(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// archiveError maps archive failures to ErrArchive, keeping the cause.
func archiveError(err error) error {
	if errors.Is(err, archive.ErrInvalidEntry) {
		return fmt.Errorf("%w: %w", ErrAssembly, err)
	}
	return fmt.Errorf("%w: %w", ErrArchive, err)
}
