package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"texture-extractor/internal/classify"
	"texture-extractor/internal/debug/timing"
	"texture-extractor/internal/logger"
	"texture-extractor/internal/models"
	"texture-extractor/internal/pipeline"
	"texture-extractor/internal/texture"
)

// Per-file failure kinds. Both are logged and the file is skipped.
var (
	ErrUnclassifiable  = classify.ErrUnclassifiable
	ErrUnreadableImage = pipeline.ErrUnreadableImage
)

type Classifier interface {
	Classify(path string) (models.ClassLabel, error)
}

type Extractor interface {
	Extract(img *models.GrayImage) (models.Features, error)
}

type Options struct {
	// Workers is the number of images extracted concurrently; values
	// below one mean one.
	Workers       int
	// MatchRelative classifies on the path below root instead of the
	// full path, so markers in the root's own name are ignored.
	MatchRelative bool
	Timing        pipeline.TimingTracker
}

// Stats accounts for every file seen by the last walk.
type Stats struct {
	Visited        int
	Processed      int
	Unclassifiable int
	Unreadable     int
}

func (s Stats) Skipped() int {
	return s.Unclassifiable + s.Unreadable
}

type job struct {
	index int
	path  string
	rel   string
	label models.ClassLabel
}

type result struct {
	index  int
	job    job
	vector models.FeatureVector
	err    error
}

// Walker turns a labeled directory tree into a Dataset.
type Walker struct {
	classifier Classifier
	loader     pipeline.ImageLoader
	extractor  Extractor
	logger     logger.Logger
	workers    int
	relative   bool
	timing     pipeline.TimingTracker

	mu    sync.Mutex
	stats Stats
}

func NewWalker(classifier Classifier, loader pipeline.ImageLoader, extractor Extractor, log logger.Logger, opts Options) *Walker {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	w := &Walker{
		classifier: classifier,
		loader:     loader,
		extractor:  extractor,
		logger:     log,
		workers:    workers,
		relative:   opts.MatchRelative,
		timing:     opts.Timing,
	}
	if w.timing == nil {
		w.timing = timing.Nop{}
	}
	return w
}

// Walk visits every file under root in lexical order. Rows follow that
// order for any worker count. Per-file failures are logged and skipped; a
// *texture.ConfigError aborts the walk and no dataset is returned.
func (w *Walker) Walk(ctx context.Context, root string) (*models.Dataset, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	// WalkDir does not follow a symlinked root.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}

	var stats Stats
	jobs, err := w.collect(ctx, root, resolved, &stats)
	if err != nil {
		return nil, err
	}

	w.logger.Info("CorpusWalker", "corpus scanned", map[string]interface{}{
		"root":           root,
		"files":          stats.Visited,
		"classified":     len(jobs),
		"unclassifiable": stats.Unclassifiable,
		"workers":        w.workers,
	})

	dataset, err := w.process(ctx, jobs, &stats)
	w.setStats(stats)
	if err != nil {
		return nil, err
	}

	rows, cols := dataset.Shape()
	w.logger.Info("CorpusWalker", "corpus walk completed", map[string]interface{}{
		"rows":           rows,
		"columns":        cols,
		"processed":      stats.Processed,
		"unclassifiable": stats.Unclassifiable,
		"unreadable":     stats.Unreadable,
	})

	return dataset, nil
}

func (w *Walker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Walker) setStats(s Stats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats = s
}

// collect walks resolved and reports paths as if found under root, so
// classification sees the root as the caller named it.
func (w *Walker) collect(ctx context.Context, root, resolved string, stats *Stats) ([]job, error) {
	var jobs []job

	err := filepath.WalkDir(resolved, func(walked string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// Unlistable directories are skipped like unreadable files.
			stats.Unreadable++
			w.logger.Warning("CorpusWalker", "skipping unreadable entry", map[string]interface{}{
				"path":  walked,
				"error": err.Error(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		stats.Visited++

		rel, relErr := filepath.Rel(resolved, walked)
		if relErr != nil {
			return relErr
		}
		path := filepath.Join(root, rel)

		target := path
		if w.relative {
			target = rel
		}

		label, classErr := w.classifier.Classify(target)
		if classErr != nil {
			stats.Unclassifiable++
			w.logger.Warning("CorpusWalker", "unexpected subdirectory, file skipped", map[string]interface{}{
				"path":  path,
				"error": classErr.Error(),
			})
			return nil
		}

		jobs = append(jobs, job{
			index: len(jobs),
			path:  path,
			rel:   rel,
			label: label,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return jobs, nil
}

func (w *Walker) process(parent context.Context, jobs []job, stats *Stats) (*models.Dataset, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobCh := make(chan job)
	resCh := make(chan result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					continue
				}
				resCh <- w.extractOne(j)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resCh)
	}()

	vectors := make([]*models.FeatureVector, len(jobs))
	var fatal error

	for r := range resCh {
		if r.err == nil {
			v := r.vector
			vectors[r.index] = &v
			stats.Processed++
			continue
		}

		if cfgErr := asConfigError(r.err); cfgErr != nil {
			if fatal == nil {
				fatal = fmt.Errorf("processing %s: %w", r.job.path, cfgErr)
				cancel()
			}
			continue
		}

		stats.Unreadable++
		w.logger.Warning("CorpusWalker", "error processing image, file skipped", map[string]interface{}{
			"path":  r.job.path,
			"error": r.err.Error(),
		})
	}

	if fatal != nil {
		return nil, fatal
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}

	dataset := &models.Dataset{Rows: make([]models.FeatureVector, 0, stats.Processed)}
	for _, v := range vectors {
		if v != nil {
			dataset.Append(*v)
		}
	}
	return dataset, nil
}

func (w *Walker) extractOne(j job) result {
	ctx := w.timing.StartTiming("extract_image")
	defer w.timing.EndTiming(ctx)

	res := result{index: j.index, job: j}

	img, err := w.loader.Load(j.path)
	if err != nil {
		res.err = err
		return res
	}

	features, err := w.extractor.Extract(img)
	if err != nil {
		res.err = err
		return res
	}

	res.vector = models.FeatureVector{
		Features:  features,
		ImageName: filepath.Base(j.path),
		Path:      j.rel,
		Class:     j.label,
	}
	return res
}

// asConfigError reports run-fatal errors. A decoded depth that does not fit
// the configured levels is a configuration mistake, not bad data.
func asConfigError(err error) *texture.ConfigError {
	var cfgErr *texture.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}

	var depthErr *models.DepthError
	if errors.As(err, &depthErr) {
		return texture.NewConfigError("levels", depthErr.Levels, depthErr.Error())
	}
	return nil
}
