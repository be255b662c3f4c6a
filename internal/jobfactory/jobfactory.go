// Package jobfactory turns a discovered candidate file into a durable Job,
// the shared final step both the LOCAL and REMOTE watchers call into. It
// resolves the output directory, verifies it is writable, composes the
// output filename from the Source's bound Profile, and delegates
// deduplication entirely to Store.InsertJobIfAbsent.
package jobfactory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transcoder/internal/model"
	"transcoder/internal/store"
)

type Factory struct {
	store *store.Store
}

func New(s *store.Store) *Factory {
	return &Factory{store: s}
}

// CreateCandidate resolves paths and inserts a Job for filename arriving
// through src, sized sizeBytes and already present on disk at inputPath.
// When InsertJobIfAbsent finds an existing non-terminal Job, that Job is
// returned with inserted=false; errors are returned for anything that
// prevents even attempting the insert.
func (f *Factory) CreateCandidate(ctx context.Context, src *model.Source, filename, inputPath string, sizeBytes int64) (*model.Job, bool, error) {
	outputDir := src.OutputPath
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	if err := checkWritable(outputDir); err != nil {
		return nil, false, fmt.Errorf("output dir %s not writable: %w", outputDir, err)
	}

	profile, err := f.resolveProfile(ctx, src)
	if err != nil {
		return nil, false, fmt.Errorf("resolve profile: %w", err)
	}

	outputPath := filepath.Join(outputDir, outputFilename(filename, profile))

	job, inserted, err := f.store.InsertJobIfAbsent(ctx, src.ID, profile.ID, filename, inputPath, outputPath, sizeBytes)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}
	return job, inserted, nil
}

func (f *Factory) resolveProfile(ctx context.Context, src *model.Source) (*model.Profile, error) {
	if src.ProfileID != "" {
		p, err := f.store.GetProfile(ctx, src.ProfileID)
		if err == nil {
			return p, nil
		}
	}
	return f.store.GetProfileByName(ctx, model.DefaultProfileName)
}

func outputFilename(inputFilename string, p *model.Profile) string {
	ext := filepath.Ext(inputFilename)
	base := strings.TrimSuffix(inputFilename, ext)

	container := p.Container
	if container == "" {
		container = model.DefaultContainer
	}
	name := strings.ToLower(strings.ReplaceAll(p.Name, " ", "_"))
	if name == "" {
		name = model.DefaultProfileName
	}
	return fmt.Sprintf("%s_%s.%s", base, name, container)
}

func checkWritable(dir string) error {
	probe := filepath.Join(dir, ".write_check")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
