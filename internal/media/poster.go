// Package media generates poster thumbnails for captured photos so the feed
// can render without decoding full-size media.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/keepsakehq/keepsake/core/internal/errors"
	"github.com/keepsakehq/keepsake/core/internal/logging"
	"github.com/keepsakehq/keepsake/core/internal/models"
)

// DefaultMaxEdge is the bounding-box edge for generated posters.
const DefaultMaxEdge = 512

// GeneratePoster writes a JPEG thumbnail of srcPath into dstDir, fitting it
// inside a maxEdge square while preserving aspect ratio. Returns the poster
// path.
func GeneratePoster(srcPath, dstDir string, maxEdge int) (string, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", errors.Wrap(errors.ErrMediaDecode, "failed to open image "+srcPath, err)
	}

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrStorage, "failed to create poster directory", err)
	}

	thumb := imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	posterPath := filepath.Join(dstDir, fmt.Sprintf("%s_poster.jpg", base))

	if err := imaging.Save(thumb, posterPath, imaging.JPEGQuality(85)); err != nil {
		return "", errors.Wrap(errors.ErrStorage, "failed to save poster", err)
	}
	return posterPath, nil
}

// PhotoPosters generates a poster per photo of a capture at enqueue time and
// records the paths on PhotoPosterPaths so the feed can render the capture
// without decoding full-size media. Failures are non-fatal: the capture
// proceeds without that poster, and the sync path uploads originals
// regardless.
func PhotoPosters(m *models.QueuedMemory, dstDir string, maxEdge int) {
	var posters []string
	for _, p := range m.PhotoPaths {
		posterPath, err := GeneratePoster(p, dstDir, maxEdge)
		if err != nil {
			logging.Warn("Poster generation skipped", map[string]interface{}{
				"photo": p,
				"error": err.Error(),
			})
			continue
		}
		posters = append(posters, posterPath)
	}
	m.PhotoPosterPaths = posters
}
