package yahoo

import (
	"context"
	"sync"
	"time"

	"livefeed/src/feed"
	"livefeed/src/models"
)

// QueueHandler adapts YahooFinanceSource's polling loop to feed.DataQueueHandler
// (spec §4.6's upstream seam): Subscribe/Unsubscribe mutate the symbol list
// the underlying poller fetches, and GetNextTicks drains whatever the poller
// pushed since the last call, converting each price point into a BaseData
// trade bar at the yahoo fetch resolution.
type QueueHandler struct {
	source *YahooFinanceSource

	mu      sync.Mutex
	symbols map[string]feed.Symbol

	out chan map[string][]models.MStockPrice
	wg  sync.WaitGroup
	ctx context.Context
}

func NewQueueHandler(ctx context.Context, source *YahooFinanceSource) *QueueHandler {
	return &QueueHandler{
		source:  source,
		symbols: make(map[string]feed.Symbol),
		out:     make(chan map[string][]models.MStockPrice, 64),
		ctx:     ctx,
	}
}

func (h *QueueHandler) Subscribe(bySecurityType map[feed.SecurityType][]feed.Symbol) error {
	h.mu.Lock()
	for _, symbols := range bySecurityType {
		for _, sym := range symbols {
			h.symbols[sym.Value] = sym
		}
	}
	all := make([]string, 0, len(h.symbols))
	for v := range h.symbols {
		all = append(all, v)
	}
	running := h.source.isRunning.Load()
	h.mu.Unlock()

	if err := h.source.UpdateSymbols(all); err != nil {
		return err
	}
	if !running {
		h.wg.Add(1)
		return h.source.Start(h.ctx, h.out, &h.wg)
	}
	return nil
}

func (h *QueueHandler) Unsubscribe(bySecurityType map[feed.SecurityType][]feed.Symbol) error {
	h.mu.Lock()
	for _, symbols := range bySecurityType {
		for _, sym := range symbols {
			delete(h.symbols, sym.Value)
		}
	}
	all := make([]string, 0, len(h.symbols))
	for v := range h.symbols {
		all = append(all, v)
	}
	h.mu.Unlock()

	return h.source.UpdateSymbols(all)
}

// GetNextTicks never blocks: it drains whatever batches the poller has
// pushed since the last call and flattens them into BaseData trade bars.
func (h *QueueHandler) GetNextTicks() ([]feed.BaseData, error) {
	var items []feed.BaseData

	for {
		select {
		case batch := <-h.out:
			for symbolStr, prices := range batch {
				h.mu.Lock()
				sym, ok := h.symbols[symbolStr]
				h.mu.Unlock()
				if !ok {
					sym = feed.Symbol{Value: symbolStr, Type: feed.SecurityTypeEquity}
				}
				for _, p := range prices {
					ts := time.Unix(p.Timestamp, 0).UTC()
					items = append(items, feed.BaseData{
						Kind:    feed.DataKindTradeBar,
						Symbol:  sym,
						Time:    ts,
						EndTime: ts,
						Bar: &feed.TradeBar{
							Open:   p.Price,
							High:   p.Price,
							Low:    p.Price,
							Close:  p.Price,
							Volume: p.Volume,
						},
					})
				}
			}
		default:
			return items, nil
		}
	}
}
