package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"texture-extractor/internal/debug/timing"
	"texture-extractor/internal/models"
)

// ErrUnreadableImage marks files that could not be read or decoded.
var ErrUnreadableImage = errors.New("unreadable image")

type Loader struct {
	decoder       Decoder
	logger        Logger
	timingTracker TimingTracker
}

func NewLoader(decoder Decoder, logger Logger) *Loader {
	return &Loader{
		decoder:       decoder,
		logger:        logger,
		timingTracker: timing.Nop{},
	}
}

func (l *Loader) SetTimingTracker(tracker TimingTracker) {
	if tracker == nil {
		tracker = timing.Nop{}
	}
	l.timingTracker = tracker
}

// Load reads and decodes one file. Read and decode failures wrap
// ErrUnreadableImage; a *models.DepthError is passed through unmarked.
func (l *Loader) Load(path string) (*models.GrayImage, error) {
	ctx := l.timingTracker.StartTiming("load_image")
	defer l.timingTracker.EndTiming(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableImage, err)
	}

	l.logger.Debug("ImageLoader", "image data read", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
		"decoder":    l.decoder.Name(),
	})

	img, err := l.decoder.Decode(data)
	if err != nil {
		var depthErr *models.DepthError
		if errors.As(err, &depthErr) {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrUnreadableImage, path, err)
	}

	img.Format = determineActualFormat(strings.ToLower(filepath.Ext(path)), img.Format)

	l.logger.Debug("ImageLoader", "image loaded successfully", map[string]interface{}{
		"path":   path,
		"width":  img.Cols,
		"height": img.Rows,
		"format": img.Format,
	})

	return img, nil
}

func determineActualFormat(extension, decodedFormat string) string {
	switch extension {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		if decodedFormat != "" {
			return decodedFormat
		}
		return "unknown"
	}
}
