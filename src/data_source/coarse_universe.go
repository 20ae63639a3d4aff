package datasource

import (
	"context"
	"time"

	"livefeed/src/feed"
	"livefeed/src/logger"
	"livefeed/src/models"
)

// CoarseUniverseSource periodically calls a MultiSourceManager's
// FetchUpdateData and republishes the merged result as a single bulk
// BaseData payload (spec §10 supplemented feature: coarse fundamentals),
// feeding a feed.EnqueueEnumerator that the frontier wires into a
// universe-selection Subscription via Feed.AddUniverseSubscription.
type CoarseUniverseSource struct {
	manager  *MultiSourceManager
	enq      *feed.EnqueueEnumerator
	interval time.Duration
	logger   *logger.Logger
	symbol   feed.Symbol
}

func NewCoarseUniverseSource(manager *MultiSourceManager, interval time.Duration, log *logger.Logger) *CoarseUniverseSource {
	return &CoarseUniverseSource{
		manager:  manager,
		enq:      feed.NewEnqueueEnumerator(),
		interval: interval,
		logger:   log,
		symbol:   feed.Symbol{Value: "universe-coarse", Type: feed.SecurityTypeBase},
	}
}

// Source exposes the enumerator the frontier consumes.
func (c *CoarseUniverseSource) Source() feed.BaseDataEnumerator { return c.enq }

// Symbol is the synthetic identity this universe subscription is keyed
// under; it never corresponds to a tradeable security.
func (c *CoarseUniverseSource) Symbol() feed.Symbol { return c.symbol }

// Run polls the manager on interval until ctx is cancelled, enqueuing one
// bulk BaseData per non-empty poll.
func (c *CoarseUniverseSource) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.enq.Stop()
			return
		case <-ticker.C:
			data, err := c.manager.FetchUpdateData()
			if err != nil {
				c.logger.Error("coarse universe fetch failed: %v", err)
				continue
			}
			rows := c.toCoarseFundamentals(data)
			if len(rows) == 0 {
				continue
			}
			now := time.Now().UTC()
			c.enq.Enqueue(feed.BaseData{
				Kind:    feed.DataKindCoarse,
				Symbol:  c.symbol,
				Time:    now,
				EndTime: now,
				Bulk:    rows,
			})
		}
	}
}

func (c *CoarseUniverseSource) toCoarseFundamentals(data map[string][]models.MStockPrice) []feed.CoarseFundamental {
	rows := make([]feed.CoarseFundamental, 0, len(data))
	for symbol, prices := range data {
		if len(prices) == 0 {
			continue
		}
		last := prices[len(prices)-1]
		rows = append(rows, feed.CoarseFundamental{
			Symbol:             feed.Symbol{Value: symbol, Type: feed.SecurityTypeEquity},
			Price:              last.Price,
			Volume:             last.Volume,
			DollarVolume:       last.Price * last.Volume,
			HasFundamentalData: true,
		})
	}
	return rows
}
