package refresh

import (
	"bytes"
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"go.uber.org/zap"

	"codetracker/internal/config"
	"codetracker/internal/db"
	"codetracker/internal/extract"
)

// Refresher periodically re-scrapes saved problems whose metadata has
// gone stale and writes the fresh fields back, leaving the user-owned
// fields alone.
type Refresher struct {
	store     db.Store
	collector *colly.Collector
	log       *zap.Logger

	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
}

func New(store db.Store, cfg config.RefreshConfig, userAgent string, log *zap.Logger) *Refresher {
	c := colly.NewCollector(
		colly.AllowedDomains(extract.Domains()...),
		colly.UserAgent(userAgent),
		colly.Async(true),
	)
	c.IgnoreRobotsTxt = false
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.MaxParallelFetches,
		Delay:       time.Duration(cfg.DelayMS) * time.Millisecond,
	})

	r := &Refresher{
		store:      store,
		collector:  c,
		log:        log,
		interval:   time.Duration(cfg.IntervalMin) * time.Minute,
		staleAfter: time.Duration(cfg.StaleAfterHours) * time.Hour,
		batchSize:  cfg.BatchSize,
	}
	r.setupCollector()
	return r
}

func (r *Refresher) setupCollector() {
	r.collector.OnResponse(func(resp *colly.Response) {
		id := resp.Ctx.Get("problem_id")

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			r.log.Warn("parse refreshed page",
				zap.String("url", resp.Request.URL.String()),
				zap.Error(err),
			)
			return
		}

		pageURL := resp.Request.URL.String()
		platform := extract.DetectPlatform(pageURL)
		draft := extract.ExtractFields(platform, doc, pageURL)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.UpdateProblemMetadata(ctx, id, draft, time.Now()); err != nil {
			r.log.Warn("write refreshed metadata", zap.String("id", id), zap.Error(err))
			return
		}
		r.log.Info("metadata refreshed",
			zap.String("id", id),
			zap.String("platform", platform),
			zap.String("title", draft.Title),
		)
	})

	r.collector.OnError(func(resp *colly.Response, err error) {
		r.log.Warn("refresh fetch failed",
			zap.String("url", resp.Request.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
	})
}

// Run blocks until ctx is cancelled, sweeping once per interval. The
// first sweep runs immediately.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Refresher) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.store.ListStaleProblems(ctx, cutoff, r.batchSize)
	if err != nil {
		r.log.Error("list stale problems", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		r.log.Debug("no stale problems")
		return
	}
	r.log.Info("refresh sweep started", zap.Int("count", len(stale)))

	for _, p := range stale {
		if ctx.Err() != nil {
			return
		}
		reqCtx := colly.NewContext()
		reqCtx.Put("problem_id", p.ID)
		if err := r.collector.Request("GET", p.URL, nil, reqCtx, nil); err != nil {
			r.log.Warn("enqueue refresh", zap.String("url", p.URL), zap.Error(err))
		}
	}
	r.collector.Wait()
	r.log.Info("refresh sweep finished")
}
