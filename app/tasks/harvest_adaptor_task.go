package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/request"
)

// HarvestAdaptorTask pulls an adaptor's feed and turns items published since
// the last harvest into requests. Each feed item becomes at most one request
// per adaptor.
type HarvestAdaptorTask struct {
	Task
	Config           *adaptor.Config
	fetcher          *Fetcher
	parser           *feed.Parser
	filterer         *feed.Filterer
	contentExtractor *feed.ContentExtractor
	requests         HarvestStore
	history          *harvest.History
}

func NewHarvestAdaptorTask(config *adaptor.Config, fetcher *Fetcher, parser *feed.Parser, filterer *feed.Filterer,
	contentExtractor *feed.ContentExtractor, requests HarvestStore, history *harvest.History) *HarvestAdaptorTask {
	return &HarvestAdaptorTask{
		Task:             NewTask(TaskTypeHarvestAdaptor, config.Name),
		Config:           config,
		fetcher:          fetcher,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		requests:         requests,
		history:          history,
	}
}

func (t *HarvestAdaptorTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Config.Harvestable() {
		slog.Debug("Adaptor not harvestable, skipping", "adaptor", t.Subject)
		return nil
	}

	since, err := t.history.GetTimestamp(ctx, t.Config)
	if err != nil {
		return fmt.Errorf("failed to get last harvest: %w", err)
	}

	data, err := t.fetcher.Get(ctx, t.Config.URL, t.timeout())
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	_, items, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	kept, rejected := t.filterer.Run(items, t.Config.Filters)
	for _, r := range rejected {
		slog.Debug("Item filtered", "adaptor", t.Subject, "guid", r.Item.GUID, "reason", r.Reason)
	}

	hashes := make([]string, len(kept))
	for i, item := range kept {
		hashes[i] = item.ContentHash
	}
	seen, err := t.requests.SeenItems(ctx, t.Config.Name, hashes)
	if err != nil {
		return fmt.Errorf("failed to check harvested items: %w", err)
	}

	var harvested []harvest.Harvested
	staleCount, duplicateCount := 0, 0
	truncated := false
	for _, item := range kept {
		if seen[item.ContentHash] {
			duplicateCount++
			continue
		}
		if !isNewItem(item, since) {
			staleCount++
			continue
		}
		if t.Config.Settings.MaxItems > 0 && len(harvested) >= t.Config.Settings.MaxItems {
			truncated = true
			break
		}
		seen[item.ContentHash] = true
		harvested = append(harvested, harvest.Harvested{
			ItemHash: item.ContentHash,
			Request:  t.buildRequest(ctx, item),
		})
	}

	if len(harvested) > 0 {
		if err := t.requests.SaveHarvested(ctx, t.Config.Name, harvested); err != nil {
			return fmt.Errorf("failed to save requests: %w", err)
		}
	}

	// Items left behind by MaxItems are taken on the next run, so the
	// harvest time only moves once the feed is drained.
	if !truncated {
		if _, err := t.history.Record(ctx, t.Config); err != nil {
			return fmt.Errorf("failed to record harvest: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "HarvestAdaptor",
		"adaptor", t.Subject,
		"duration", t.GetDuration(),
		"total", len(items),
		"filtered", len(rejected),
		"duplicate", duplicateCount,
		"stale", staleCount,
		"new", len(harvested),
		"truncated", truncated)

	return nil
}

// isNewItem reports whether item was published after the last harvest.
// Undated items are always eligible and rely on the seen-item check.
func isNewItem(item feed.Item, since time.Time) bool {
	if item.PublishedAt.IsZero() {
		return true
	}
	return item.PublishedAt.After(since)
}

func (t *HarvestAdaptorTask) buildRequest(ctx context.Context, item feed.Item) *request.Request {
	defaults := t.Config.Defaults

	req := request.New(t.Config.Name, t.Config.Source)
	req.AdaptorTrusted = t.Config.Trusted
	req.ContentType = defaults.ContentType
	req.ContentFormat = defaults.ContentFormat
	req.World = defaults.World
	if !item.PublishedAt.IsZero() {
		req.Posted = item.PublishedAt.UTC()
	}

	req.SetContent(request.ContentUpdate{
		TextContent:     optional(t.itemText(ctx, item)),
		ContentLanguage: optional(defaults.ContentLanguage),
		Language:        optional(defaults.Language),
		Topic:           optional(defaults.Topic),
	})

	return req
}

// itemText prefers the text carried by the feed. When the feed has none and
// extraction is enabled, the linked page is fetched instead.
func (t *HarvestAdaptorTask) itemText(ctx context.Context, item feed.Item) string {
	if text := feed.PlainText(item.Content); text != "" {
		return text
	}
	if text := feed.PlainText(item.Description); text != "" {
		return text
	}
	if !t.Config.Settings.ExtractContent || item.Link == "" {
		return item.Title
	}

	data, err := t.fetcher.Get(ctx, item.Link, t.timeout())
	if err != nil {
		slog.Warn("Failed to fetch item page", "adaptor", t.Subject, "link", item.Link, "error", err)
		return item.Title
	}

	text, err := t.contentExtractor.Run(data, item.Link)
	if err != nil {
		slog.Warn("Failed to extract item content", "adaptor", t.Subject, "link", item.Link, "error", err)
		return item.Title
	}
	return text
}

func (t *HarvestAdaptorTask) timeout() time.Duration {
	return time.Duration(t.Config.Settings.Timeout) * time.Second
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return request.Field(v)
}
