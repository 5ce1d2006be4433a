// Package home manages the storypress home directory layout: config,
// overlay assets, and per-story artwork and output files.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the storypress home directory.
	DefaultDirName = ".storypress"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// OverlaysDirName holds the overlay band assets, keyed by reading
	// age and position.
	OverlaysDirName = "overlays"
)

// Dir represents the storypress home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.storypress).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// EnsureExists creates the home directory skeleton if it doesn't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.StoriesDir(), d.OverlaysDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// StoriesDir returns the root directory for per-story data.
func (d *Dir) StoriesDir() string {
	return filepath.Join(d.path, "stories")
}

// StoryDir returns the directory for a single story.
func (d *Dir) StoryDir(storyID string) string {
	return filepath.Join(d.StoriesDir(), storyID)
}

// EnsureStoryDirs creates the working directories for a story.
func (d *Dir) EnsureStoryDirs(storyID string) error {
	for _, dir := range []string{
		d.UploadsDir(storyID),
		d.ArtworkDir(storyID),
		d.PrepressDir(storyID),
		d.ComposedDir(storyID),
		d.OutputDir(storyID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// UploadsDir returns the directory for customer reference photos.
func (d *Dir) UploadsDir(storyID string) string {
	return filepath.Join(d.StoryDir(storyID), "uploads")
}

// ArtworkDir returns the directory for generated page artwork.
func (d *Dir) ArtworkDir(storyID string) string {
	return filepath.Join(d.StoryDir(storyID), "artwork")
}

// ArtworkPath returns the path for a page's generated artwork.
// Page indexes are 0-based.
func (d *Dir) ArtworkPath(storyID string, pageIdx int) string {
	return filepath.Join(d.ArtworkDir(storyID), fmt.Sprintf("page_%03d.png", pageIdx))
}

// CoverArtworkPath returns the path for the front cover artwork.
func (d *Dir) CoverArtworkPath(storyID string) string {
	return filepath.Join(d.ArtworkDir(storyID), "cover_front.png")
}

// PrepressDir returns the directory for press-ready page images.
func (d *Dir) PrepressDir(storyID string) string {
	return filepath.Join(d.StoryDir(storyID), "prepress")
}

// PrepressPath returns the path for a page's press-ready image.
func (d *Dir) PrepressPath(storyID string, pageIdx int) string {
	return filepath.Join(d.PrepressDir(storyID), fmt.Sprintf("page_%03d.png", pageIdx))
}

// PrepressCoverPath returns the path for the press-ready cover.
func (d *Dir) PrepressCoverPath(storyID string) string {
	return filepath.Join(d.PrepressDir(storyID), "cover_front.png")
}

// ComposedDir returns the directory for text-composited pages.
func (d *Dir) ComposedDir(storyID string) string {
	return filepath.Join(d.StoryDir(storyID), "composed")
}

// ComposedPath returns the path for a page after text composition.
func (d *Dir) ComposedPath(storyID string, pageIdx int) string {
	return filepath.Join(d.ComposedDir(storyID), fmt.Sprintf("page_%03d.png", pageIdx))
}

// ComposedCoverPath returns the path for the finished cover.
func (d *Dir) ComposedCoverPath(storyID string) string {
	return filepath.Join(d.ComposedDir(storyID), "cover_front.png")
}

// OutputDir returns the directory for final deliverables.
func (d *Dir) OutputDir(storyID string) string {
	return filepath.Join(d.StoryDir(storyID), "output")
}

// PDFPath returns the path for the assembled print PDF.
func (d *Dir) PDFPath(storyID string) string {
	return filepath.Join(d.OutputDir(storyID), "book.pdf")
}

// OverlaysDir returns the root overlay asset directory.
func (d *Dir) OverlaysDir() string {
	return filepath.Join(d.path, OverlaysDirName)
}

// OverlayAssetPath returns the overlay band asset for a reading age and
// position. Tall variants live in a MAX subdirectory.
func (d *Dir) OverlayAssetPath(readingAge int, position string, isMax bool) string {
	ageDir := filepath.Join(d.OverlaysDir(), fmt.Sprintf("age_%d", readingAge))
	if isMax {
		return filepath.Join(ageDir, "MAX", position+".png")
	}
	return filepath.Join(ageDir, position+".png")
}
