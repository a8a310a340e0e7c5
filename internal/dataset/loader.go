// Package dataset reads the parcel, community, boundary and owner inputs from
// disk into the in-memory shapes used by classification.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/division"
	"github.com/DennisWilmot/land-mapping-web/internal/fingerprint"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// Dataset is one consistent set of inputs. It is never modified after Load.
type Dataset struct {
	LoadedAt            time.Time
	Boundary            orb.Geometry
	Parcels             *models.ParcelSet
	Owners              *models.OwnerLookup
	Communities         []division.Community
	BoundaryFingerprint uint64
	SkippedParcels      int
}

// Loader produces a Dataset.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Dataset, error)

func (f LoaderFunc) Load(ctx context.Context) (*Dataset, error) { return f(ctx) }

// FileLoader reads the datasets from the paths in config.DataConfig.
type FileLoader struct {
	cfg config.DataConfig
	log *logger.Logger
}

// NewFileLoader creates a loader for the configured paths.
func NewFileLoader(cfg config.DataConfig, log *logger.Logger) *FileLoader {
	if log == nil {
		log = logger.Nop()
	}
	return &FileLoader{cfg: cfg, log: log}
}

// Load reads every file. The owners file is optional: when it does not exist
// the lookup is empty and no parcel has an owner.
func (l *FileLoader) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	parcelData, err := l.read(ctx, l.cfg.ParcelsPath)
	if err != nil {
		return nil, err
	}
	parcels, skipped, err := ParseParcels(parcelData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.cfg.ParcelsPath, err)
	}
	parcels = parcels.WithFingerprint(fingerprint.Bytes(parcelData))
	if skipped > 0 {
		l.log.Warn("Skipped parcels without OBJECTID", map[string]interface{}{
			"path":    l.cfg.ParcelsPath,
			"skipped": skipped,
		})
	}

	communityData, err := l.read(ctx, l.cfg.CommunitiesPath)
	if err != nil {
		return nil, err
	}
	communities, err := ParseCommunities(communityData, l.cfg.CommunityNameProperty)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.cfg.CommunitiesPath, err)
	}

	boundaryData, err := l.read(ctx, l.cfg.BoundaryPath)
	if err != nil {
		return nil, err
	}
	boundary, err := ParseBoundary(boundaryData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.cfg.BoundaryPath, err)
	}

	owners := []models.Owner{}
	if l.cfg.OwnersPath != "" {
		ownerData, err := l.read(ctx, l.cfg.OwnersPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.log.Warn("Owners file not found, continuing without owner data", map[string]interface{}{
				"path": l.cfg.OwnersPath,
			})
		case err != nil:
			return nil, err
		default:
			owners, err = ParseOwners(bytes.NewReader(ownerData))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", l.cfg.OwnersPath, err)
			}
		}
	}

	ds := &Dataset{
		LoadedAt:            time.Now().UTC(),
		Boundary:            boundary,
		Parcels:             parcels,
		Owners:              models.NewOwnerLookup(owners),
		Communities:         communities,
		BoundaryFingerprint: fingerprint.Bytes(boundaryData),
		SkippedParcels:      skipped,
	}

	l.log.Info("Datasets loaded", map[string]interface{}{
		"parcels":     parcels.Len(),
		"communities": len(communities),
		"owners":      ds.Owners.Len(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return ds, nil
}

func (l *FileLoader) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
