package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// maxCrawlResultLinks caps how many discovered links one job persists, per
// the crawl step of the HttpCrawl pipeline.
const maxCrawlResultLinks = 500

// runHttpCrawl implements the HttpCrawl pipeline: debit credits,
// fetch the URL, persist the crawl result, and write a summary back.
func (w *Worker) runHttpCrawl(ctx context.Context, item *interfaces.WorkItem) error {
	var cfg models.HttpCrawlConfig
	if err := json.Unmarshal(item.Config, &cfg); err != nil {
		return common.WrapError(common.KindInputInvalid, "worker", "invalid http_crawl config", err)
	}
	if cfg.URL == "" {
		return common.NewError(common.KindInputInvalid, "worker", "http_crawl config missing url")
	}

	w.debitCredits(ctx, item.UserID, models.CrawlJobCost, "http_crawl:"+item.ID)

	if w.crawler == nil {
		return common.NewError(common.KindFatal, "worker", "no HTTPCrawler configured")
	}
	result, links, err := w.crawler.Crawl(ctx, cfg.URL, cfg.MaxPages)
	if err != nil {
		return err
	}

	if len(links) > maxCrawlResultLinks {
		links = links[:maxCrawlResultLinks]
	}
	result.JobID = item.ID
	result.Links = links

	if w.index != nil {
		if err := w.index.InsertCrawlResults(ctx, item.ID, []models.CrawlResult{*result}); err != nil {
			return err
		}
	}

	summary, err := json.Marshal(models.CrawlResultSummary{
		TotalLinks:  len(links),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return common.WrapError(common.KindFatal, "worker", "marshal crawl summary failed", err)
	}
	return w.source.WriteResultSummary(ctx, item, summary)
}
