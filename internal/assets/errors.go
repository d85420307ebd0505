package assets

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every missing asset. The resolver falls back to the
// embedded copy on it and on nothing else.
var ErrNotFound = errors.New("asset not found")

var (
	ErrStyleNotFound    = fmt.Errorf("style: %w", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("template: %w", ErrNotFound)
	ErrScriptNotFound   = fmt.Errorf("script: %w", ErrNotFound)
)

var (
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid asset directory")
	ErrAssetRead        = errors.New("failed to read asset")
	// ErrInvalidAsset reports an override that does not parse.
	ErrInvalidAsset = errors.New("invalid asset")
)
