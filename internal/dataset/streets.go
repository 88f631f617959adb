package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/spf13/afero"
)

// Streets loads the regulation segments GeoJSON. Features without properties
// get an empty property bag so downstream lookups never see nil.
func (l *Loader) Streets(path string) (domain.FeatureCollection, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("read %s: %w", path, err)
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if fc.Type == "" {
		fc.Type = "FeatureCollection"
	}
	for i := range fc.Features {
		if fc.Features[i].Properties == nil {
			fc.Features[i].Properties = domain.Properties{}
		}
	}

	if l.metrics != nil {
		l.metrics.RowsLoaded.WithLabelValues("streets").Add(float64(len(fc.Features)))
	}
	l.logger.Info("dataset loaded", "dataset", "streets", "path", path, "features", len(fc.Features))
	return fc, nil
}

func ensureDir(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
