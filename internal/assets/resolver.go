package assets

import "errors"

// AssetResolver tries each layer in order and moves to the next only when
// an asset is missing. Invalid names and read errors stop the lookup, so a
// broken override is reported instead of silently replaced.
type AssetResolver struct {
	layers []AssetLoader
}

// NewAssetResolver layers the override directory, when set, over the
// embedded assets.
func NewAssetResolver(overrideDir string) (*AssetResolver, error) {
	r := &AssetResolver{}
	if overrideDir != "" {
		fsLoader, err := NewFilesystemLoader(overrideDir)
		if err != nil {
			return nil, err
		}
		r.layers = append(r.layers, fsLoader)
	}
	r.layers = append(r.layers, NewEmbeddedLoader())
	return r, nil
}

// HasOverrides reports whether a directory sits above the embedded assets.
func (r *AssetResolver) HasOverrides() bool {
	return len(r.layers) > 1
}

func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return r.load(KindStyle, name)
}

func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	return r.load(KindTemplate, name)
}

func (r *AssetResolver) LoadScript(name string) (string, error) {
	return r.load(KindScript, name)
}

func (r *AssetResolver) load(k Kind, name string) (string, error) {
	var err error
	for _, l := range r.layers {
		var src string
		if src, err = Load(l, k, name); err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", err
}

var _ AssetLoader = (*AssetResolver)(nil)
