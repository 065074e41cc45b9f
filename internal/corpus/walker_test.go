package corpus

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texture-extractor/internal/classify"
	"texture-extractor/internal/debug/timing"
	"texture-extractor/internal/logger"
	"texture-extractor/internal/models"
	"texture-extractor/internal/pipeline"
	"texture-extractor/internal/texture"
)

func writePNG(t *testing.T, path string, seed int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8((i*seed + seed*7) % 256)
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newWalker(t *testing.T, cfg texture.Config, workers int) *Walker {
	t.Helper()
	return newWalkerWithOptions(t, cfg, Options{Workers: workers})
}

func newWalkerWithOptions(t *testing.T, cfg texture.Config, opts Options) *Walker {
	t.Helper()
	extractor, err := texture.NewExtractor(cfg)
	require.NoError(t, err)

	loader := pipeline.NewLoader(pipeline.NewStdDecoder(), logger.NewNop())
	return NewWalker(classify.DefaultTable(), loader, extractor, logger.NewNop(), opts)
}

func TestWalkSkipsUnclassifiableAndUnreadable(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "Glioma_tumor", "a.png"), 3)
	writePNG(t, filepath.Join(root, "notumor", "b.png"), 5)
	writePNG(t, filepath.Join(root, "other", "c.png"), 7)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "meningioma"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "meningioma", "broken.jpg"), []byte("junk"), 0o644))

	w := newWalker(t, texture.DefaultConfig(), 1)
	dataset, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 2, dataset.Len())
	assert.Equal(t, "a.png", dataset.Rows[0].ImageName)
	assert.Equal(t, models.Glioma, dataset.Rows[0].Class)
	assert.Equal(t, "b.png", dataset.Rows[1].ImageName)
	assert.Equal(t, models.NoTumor, dataset.Rows[1].Class)

	stats := w.Stats()
	assert.Equal(t, Stats{Visited: 4, Processed: 2, Unclassifiable: 1, Unreadable: 1}, stats)
	assert.Equal(t, 2, stats.Skipped())

	rows, cols := dataset.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 13, cols)

	for _, row := range dataset.Rows {
		assert.Len(t, row.Values(), len(models.FeatureNames))
	}
}

func TestWalkParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	classes := []string{"glioma", "meningioma", "pituitary", "notumor"}
	for i := 0; i < 12; i++ {
		dir := classes[i%len(classes)]
		writePNG(t, filepath.Join(root, dir, fmt.Sprintf("%s_%03d.png", dir, i)), i+1)
	}

	sequential, err := newWalker(t, texture.DefaultConfig(), 1).Walk(context.Background(), root)
	require.NoError(t, err)

	tracker := timing.NewTracker()
	w := newWalker(t, texture.DefaultConfig(), 4)
	w.timing = tracker
	parallel, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 12, sequential.Len())
	assert.Equal(t, sequential.Rows, parallel.Rows)
	assert.Len(t, tracker.GetTimings("extract_image"), 12)

	counts := parallel.ClassCounts()
	for _, label := range []models.ClassLabel{models.NoTumor, models.Glioma, models.Meningioma, models.Pituitary} {
		assert.Equal(t, 3, counts[label])
	}
}

func TestWalkLevelMismatchIsFatal(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "glioma", "a.png"), 3)

	cfg := texture.DefaultConfig()
	cfg.Levels = 16

	dataset, err := newWalker(t, cfg, 2).Walk(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, dataset)

	var cfgErr *texture.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestWalkSixteenBitImageIsFatal(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pituitary", "deep.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray16(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	_, err = newWalker(t, texture.DefaultConfig(), 1).Walk(context.Background(), root)
	var cfgErr *texture.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "levels", cfgErr.Field)
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "glioma", "a.png"), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newWalker(t, texture.DefaultConfig(), 1).Walk(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkBadRoot(t *testing.T) {
	w := newWalker(t, texture.DefaultConfig(), 1)

	_, err := w.Walk(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.png")
	writePNG(t, file, 1)
	_, err = w.Walk(context.Background(), file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestWalkEmptyCorpus(t *testing.T) {
	dataset, err := newWalker(t, texture.DefaultConfig(), 3).Walk(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, dataset.Len())
}

func TestWalkClassifiesOnFullPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Glioma_study")
	writePNG(t, filepath.Join(root, "notumor", "a.png"), 3)
	writePNG(t, filepath.Join(root, "scans", "b.png"), 5)

	w := newWalker(t, texture.DefaultConfig(), 1)
	dataset, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 2, dataset.Len())
	for _, row := range dataset.Rows {
		assert.Equal(t, models.Glioma, row.Class, row.Path)
	}
	assert.Equal(t, filepath.Join("notumor", "a.png"), dataset.Rows[0].Path)
	assert.Equal(t, Stats{Visited: 2, Processed: 2}, w.Stats())
}

func TestWalkMatchRelativeIgnoresRootName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Glioma_study")
	writePNG(t, filepath.Join(root, "notumor", "a.png"), 3)
	writePNG(t, filepath.Join(root, "scans", "b.png"), 5)

	w := newWalkerWithOptions(t, texture.DefaultConfig(), Options{Workers: 1, MatchRelative: true})
	dataset, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, 1, dataset.Len())
	assert.Equal(t, models.NoTumor, dataset.Rows[0].Class)
	assert.Equal(t, Stats{Visited: 2, Processed: 1, Unclassifiable: 1}, w.Stats())
}

func TestWalkFollowsSymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	writePNG(t, filepath.Join(target, "glioma", "a.png"), 3)
	writePNG(t, filepath.Join(target, "pituitary", "b.png"), 5)

	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	w := newWalker(t, texture.DefaultConfig(), 2)
	dataset, err := w.Walk(context.Background(), link)
	require.NoError(t, err)

	require.Equal(t, 2, dataset.Len())
	assert.Equal(t, models.Glioma, dataset.Rows[0].Class)
	assert.Equal(t, models.Pituitary, dataset.Rows[1].Class)
	assert.Equal(t, Stats{Visited: 2, Processed: 2}, w.Stats())
}
