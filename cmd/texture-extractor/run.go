package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"texture-extractor/internal/config"
	"texture-extractor/internal/corpus"
	"texture-extractor/internal/debug/timing"
	"texture-extractor/internal/export"
	"texture-extractor/internal/logger"
	"texture-extractor/internal/models"
	"texture-extractor/internal/opencv/conversion"
	"texture-extractor/internal/opencv/memory"
	"texture-extractor/internal/pipeline"
	"texture-extractor/internal/shutdown"
	"texture-extractor/internal/texture"
)

func run(ctx context.Context, cfg *config.Config, log *logger.ZerologAdapter) error {
	sm := shutdown.NewManager(ctx, log)
	sm.Listen()
	defer sm.Shutdown()

	tracker := timing.NewTracker()
	sm.Register(func() {
		logTimingSummary(log, tracker)
	})

	textureCfg, err := cfg.TextureConfig()
	if err != nil {
		return err
	}
	extractor, err := texture.NewExtractor(textureCfg)
	if err != nil {
		return err
	}
	extractor.SetTimingTracker(tracker)

	table, err := cfg.ClassTable()
	if err != nil {
		return err
	}

	decoder := newDecoder(cfg.Corpus.Decoder)
	if cv, ok := decoder.(*conversion.Decoder); ok {
		sm.Register(func() {
			logMemoryStats(log, cv.Memory())
		})
	}

	loader := pipeline.NewLoader(decoder, log)
	loader.SetTimingTracker(tracker)

	walker := corpus.NewWalker(table, loader, extractor, log, corpus.Options{
		Workers:       cfg.Corpus.Workers,
		MatchRelative: cfg.Corpus.MatchRelative,
		Timing:        tracker,
	})

	dataset, err := walker.Walk(sm.Context(), cfg.Corpus.Root)
	if err != nil {
		return err
	}

	stats := walker.Stats()
	rows, cols := dataset.Shape()
	log.Info("Main", "dataset assembled", map[string]interface{}{
		"rows":           rows,
		"columns":        cols,
		"visited":        stats.Visited,
		"skipped":        stats.Skipped(),
		"unclassifiable": stats.Unclassifiable,
		"unreadable":     stats.Unreadable,
		"classes":        classCountFields(dataset),
	})

	if err := export.SaveCSV(cfg.Corpus.OutputPath, dataset); err != nil {
		return fmt.Errorf("saving %s: %w", cfg.Corpus.OutputPath, err)
	}

	log.Info("Main", "features written", map[string]interface{}{
		"path": cfg.Corpus.OutputPath,
		"rows": rows,
	})
	return nil
}

func newDecoder(name string) pipeline.Decoder {
	if name == config.DecoderStd {
		return pipeline.NewStdDecoder()
	}
	return conversion.NewDecoder(memory.NewManager(memory.DefaultMaxBytes))
}

func classCountFields(dataset *models.Dataset) map[string]int {
	return lo.MapKeys(dataset.ClassCounts(), func(_ int, label models.ClassLabel) string {
		return label.String()
	})
}

func logTimingSummary(log logger.Logger, tracker *timing.Tracker) {
	for _, stat := range tracker.Summary() {
		log.Debug("Timing", stat.Operation, map[string]interface{}{
			"count":   stat.Count,
			"total":   stat.Total.String(),
			"average": stat.Average.String(),
			"max":     stat.Max.String(),
		})
	}
}

func logMemoryStats(log logger.Logger, mem *memory.Manager) {
	leaked := mem.Cleanup()
	stats := mem.GetStats()
	fields := map[string]interface{}{
		"allocated_bytes": stats.TotalAllocated,
		"peak_active":     stats.PeakActiveMats,
		"leaked_mats":     leaked,
	}
	if leaked > 0 {
		log.Warning("MemoryManager", "closed Mats left open at shutdown", fields)
		return
	}
	log.Debug("MemoryManager", "Mat accounting", fields)
}
