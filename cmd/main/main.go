package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"livefeed/src/analysis"
	"livefeed/src/config"
	datasource "livefeed/src/data_source"
	"livefeed/src/data_source/yahoo"
	pb "livefeed/src/grpc_control"
	"livefeed/src/feed"
	"livefeed/src/helpers"
	"livefeed/src/interfaces"
	"livefeed/src/logger"
	"livefeed/src/models"
	"livefeed/src/network"
	"livefeed/src/server"
	"livefeed/src/storage"
	"livefeed/src/utils"

	"google.golang.org/grpc"
)

// farFutureEnd is the subscription end time for live, config/gRPC-driven
// subscriptions, which have no finite run window unlike a backtest.
var farFutureEnd = time.Now().AddDate(100, 0, 0)

// -----------------------------------------------------------------------------

func main() {
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg, cfg.Name)

	db, err := openDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg.MConfig, appLogger)

	if len(cfg.DataSource.Sources) == 0 {
		appLogger.Critical("No data sources configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// -------------------------------------------------------------------------
	// Upstream: one YahooFinanceSource per configured source, the first of
	// which drives the live Exchange via a QueueHandler (spec §4.6); any
	// additional sources feed the coarse-universe poller instead.
	// -------------------------------------------------------------------------
	primarySource := yahoo.NewYahooFinanceSource(cfg.MConfig, cfg.DataSource.Sources[0], networkManager)
	upstream := yahoo.NewQueueHandler(ctx, primarySource)

	exchange := feed.NewExchange(upstream, appLogger)
	bridge := feed.NewChannelBridge(256)
	now := feed.NewRealTimeProvider()
	liveFeed := feed.NewFeed(now, upstream, exchange, bridge, appLogger)

	registerConfiguredSubscriptions(liveFeed, cfg, appLogger)

	if cfg.Feed.UniverseEnabled {
		startUniverseSelection(ctx, liveFeed, cfg, networkManager, appLogger)
	}

	// -------------------------------------------------------------------------
	// Downstream: the dashboard/analysis stack plays the role of the
	// algorithm runtime spec §1 names as an external collaborator. It is
	// fed from liveFeed's Bridge rather than polling a source directly.
	// -------------------------------------------------------------------------
	analyzer := analysis.NewAnalysisFacade(cfg.MConfig, appLogger)
	dashboard := server.NewFastAPIServer(cfg.MConfig, appLogger)

	maxPoints := utils.CalculateMaxDataPoints(cfg.DataSource.DataRetentionDays)
	memManager := utils.NewMemoryManager(helpers.GetRecommendedMemoryLimit(), maxPoints)

	go func() {
		if err := dashboard.Start(); err != nil {
			appLogger.Error("dashboard server failed: %v", err)
		}
	}()

	grpcServer, lis := startControlServer(liveFeed, cfg, appLogger)
	go func() {
		appLogger.Info("Starting gRPC control server on %s:%d", cfg.GrpcHost, cfg.GrpcPort)
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()

	go func() {
		if err := liveFeed.Run(ctx); err != nil && err != context.Canceled {
			appLogger.Error("feed loop exited: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Feed running. Consuming time slices...")
	runConsumerLoop(ctx, bridge, db, analyzer, memManager, dashboard, cfg, appLogger, quit)

	appLogger.Info("Shutting down...")
	liveFeed.Exit()
	grpcServer.GracefulStop()
	cancel()
}

// -----------------------------------------------------------------------------

func openDatabase(cfg *config.Config, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "postgres":
		db, err := storage.NewPostgresDB(cfg.MConfig, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		db, err := storage.NewAsyncSQLiteDB(cfg.MConfig, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// -----------------------------------------------------------------------------

// registerConfiguredSubscriptions adds every subscription named in
// config.Feed.Subscriptions at startup (spec §8.3 / SPEC_FULL §9).
func registerConfiguredSubscriptions(f *feed.Feed, cfg *config.Config, log *logger.Logger) {
	for _, subCfg := range cfg.Feed.Subscriptions {
		secType, err := feed.ParseSecurityType(subCfg.SecurityType)
		if err != nil {
			log.Error("startup subscription %s: %v", subCfg.Symbol, err)
			continue
		}
		resolution, increment, err := feed.ParseResolution(subCfg.Resolution)
		if err != nil {
			log.Error("startup subscription %s: %v", subCfg.Symbol, err)
			continue
		}

		loc := time.UTC
		if subCfg.TimeZone != "" {
			if l, err := time.LoadLocation(subCfg.TimeZone); err == nil {
				loc = l
			} else {
				log.Warning("startup subscription %s: unknown timezone %q: %v", subCfg.Symbol, subCfg.TimeZone, err)
			}
		}

		sym := feed.Symbol{Value: subCfg.Symbol, Type: secType}
		fcfg := feed.SubscriptionConfig{
			Symbol:              sym,
			SecurityType:        secType,
			Resolution:          resolution,
			Increment:           increment,
			TimeZone:            loc,
			FillDataForward:     subCfg.FillDataForward,
			ExtendedMarketHours: subCfg.ExtendedMarketHours,
			DataType:            "TradeBar",
		}
		sec := feed.Security{Symbol: sym}

		if _, err := f.AddSubscription(fcfg, sec, time.Now(), farFutureEnd, true, utils.NewCalendarExchangeHours(subCfg.Symbol)); err != nil {
			log.Error("startup subscription %s failed: %v", subCfg.Symbol, err)
		}
	}
}

// -----------------------------------------------------------------------------

// startUniverseSelection wires a CoarseUniverseSource polling every
// remaining configured source, registers it as a universe-selection
// subscription, and installs a top-by-dollar-volume selection policy that
// diffs against the previous selection to Add/RemoveSubscription (spec
// §10 supplemented feature, §4.8 step 3).
func startUniverseSelection(ctx context.Context, f *feed.Feed, cfg *config.Config, netMgr interfaces.INetworkManager, log *logger.Logger) {
	var sources []interfaces.IDataSource
	for i := 1; i < len(cfg.DataSource.Sources); i++ {
		sources = append(sources, yahoo.NewYahooFinanceSource(cfg.MConfig, cfg.DataSource.Sources[i], netMgr))
	}
	if len(sources) == 0 {
		sources = append(sources, yahoo.NewYahooFinanceSource(cfg.MConfig, cfg.DataSource.Sources[0], netMgr))
	}
	manager := datasource.NewMultiSourceManager(sources, log)

	interval := time.Duration(cfg.Feed.UniverseInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	coarse := datasource.NewCoarseUniverseSource(manager, interval, log)
	go coarse.Run(ctx)

	universeCfg := feed.SubscriptionConfig{
		Symbol:       coarse.Symbol(),
		SecurityType: feed.SecurityTypeBase,
		Resolution:   feed.ResolutionDaily,
		TimeZone:     time.UTC,
		DataType:     "Coarse",
	}
	universeSec := feed.Security{Symbol: coarse.Symbol()}
	universe := &feed.Universe{Name: "coarse-top-volume", OnSelect: topByDollarVolume(10)}
	f.AddUniverseSubscription(universeCfg, universeSec, coarse.Source(), universe, time.Now(), farFutureEnd)

	selected := make(map[string]feed.Symbol)
	f.SetUniverseSelectionHandler(func(u *feed.Universe, _ feed.SubscriptionConfig, _ time.Time, batch []feed.BaseData) {
		for _, item := range batch {
			if item.Kind != feed.DataKindCoarse {
				continue
			}
			picks := u.OnSelect(item.Bulk)
			next := make(map[string]feed.Symbol, len(picks))
			for _, sym := range picks {
				next[sym.Key()] = sym
				if _, already := selected[sym.Key()]; already {
					continue
				}
				sub := feed.SubscriptionConfig{
					Symbol:       sym,
					SecurityType: sym.Type,
					Resolution:   feed.ResolutionMinute,
					Increment:    time.Minute,
					TimeZone:     time.UTC,
					DataType:     "TradeBar",
				}
				if _, err := f.AddSubscription(sub, feed.Security{Symbol: sym}, time.Now(), farFutureEnd, false, utils.NewCalendarExchangeHours(sym.Value)); err != nil {
					log.Error("universe add %s failed: %v", sym, err)
				}
			}
			for key, sym := range selected {
				if _, stillIn := next[key]; !stillIn {
					if err := f.RemoveSubscription(feed.Security{Symbol: sym}); err != nil {
						log.Error("universe remove %s failed: %v", sym, err)
					}
				}
			}
			selected = next
		}
	})
}

// topByDollarVolume returns a CoarseSelectionFunc picking the n rows with
// the highest dollar volume.
func topByDollarVolume(n int) feed.CoarseSelectionFunc {
	return func(rows []feed.CoarseFundamental) []feed.Symbol {
		sorted := make([]feed.CoarseFundamental, len(rows))
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].DollarVolume > sorted[j].DollarVolume })
		if len(sorted) > n {
			sorted = sorted[:n]
		}
		out := make([]feed.Symbol, 0, len(sorted))
		for _, r := range sorted {
			out = append(out, r.Symbol)
		}
		return out
	}
}

// -----------------------------------------------------------------------------

func startControlServer(f *feed.Feed, cfg *config.Config, log *logger.Logger) (*grpc.Server, net.Listener) {
	port := cfg.GrpcPort
	if port == 0 {
		port = 50051
	}
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GrpcHost, port))
	if err != nil {
		log.Critical("failed to listen for gRPC: %v", err)
	}

	grpcServer := grpc.NewServer()
	controlLogger := logger.NewLogger(cfg, "ControlService")
	pb.RegisterMarketObserverControlServer(grpcServer, pb.NewControlService(f, controlLogger))
	return grpcServer, lis
}

// -----------------------------------------------------------------------------

// runConsumerLoop drains TimeSlices from the bridge until quit fires,
// feeding each one to the in-memory buffer, the analysis facade, the
// dashboard, and the operational store. It is the generalization of the
// teacher's push-model for-select over updatesChan (cmd/main/main.go),
// consuming liveFeed's Bridge instead of a raw source channel.
func runConsumerLoop(
	ctx context.Context,
	bridge *feed.ChannelBridge,
	db interfaces.IDatabase,
	analyzer *analysis.AnalysisFacade,
	memManager *utils.MemoryManager,
	dashboard *server.FastAPIServer,
	cfg *config.Config,
	log *logger.Logger,
	quit chan os.Signal,
) {
	intermediateStats := make(map[string]map[string]models.MIntermediateStats)

	metricsInterval := time.Duration(cfg.Feed.MetricsInterval) * time.Second
	if metricsInterval <= 0 {
		metricsInterval = 30 * time.Second
	}
	metricsTicker := time.NewTicker(metricsInterval)
	defer metricsTicker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-metricsTicker.C:
			recordMetrics(db, memManager, log)
			if err := db.CleanupOldData(); err != nil {
				log.Error("cleanup failed: %v", err)
			}
		default:
		}

		slice, err := bridge.NextSlice(ctx)
		if err != nil {
			return
		}

		startProcess := time.Now()
		updates := sliceToStockPrices(slice)
		if len(updates) == 0 && slice.SecurityChanges.IsEmpty() {
			continue
		}

		for sym, prices := range updates {
			for _, p := range prices {
				memManager.AddDataPoint(sym, p)
			}
		}

		accumulatedAggs := make(map[string]map[string][]models.MAggregation)
		totalWindows := 0
		for _, w := range cfg.WindowsAgg {
			currentWindowStats := make(map[string]models.MIntermediateStats)
			for sym, wMap := range intermediateStats {
				if s, ok := wMap[w]; ok {
					currentWindowStats[sym] = s
				}
			}

			wAggs := analyzer.AggregateRealTime(updates, w, currentWindowStats)
			totalWindows += len(wAggs)

			for sym, innerMap := range wAggs {
				if _, ok := accumulatedAggs[sym]; !ok {
					accumulatedAggs[sym] = make(map[string][]models.MAggregation)
				}
				if candle, ok := innerMap[w]; ok {
					accumulatedAggs[sym][w] = []models.MAggregation{candle}
				}
			}
		}

		elapsed := time.Since(startProcess).Seconds()

		rawInterfaceMap := make(map[string]interface{}, len(updates))
		for k, v := range updates {
			rawInterfaceMap[k] = v
		}

		payload := map[string]interface{}{
			"type":         "UPDATE",
			"raw_data":     rawInterfaceMap,
			"aggregations": accumulatedAggs,
			"timestamp":    slice.Time.Unix(),
			"processing_metrics": models.MProcessingMetrics{
				AggregationTimeSeconds: elapsed,
				ValidSymbols:           len(updates),
				WindowsProcessed:       totalWindows,
			},
		}
		dashboard.UpdateAllDatas(payload)
		dashboard.Broadcast(payload)

		if !slice.SecurityChanges.IsEmpty() {
			if err := db.SaveSecurityChanges(slice.Time, slice.SecurityChanges); err != nil {
				log.Error("SaveSecurityChanges failed: %v", err)
			}
		}
	}
}

// sliceToStockPrices flattens a TimeSlice's per-symbol BaseData batches
// into the legacy MStockPrice shape the analysis/dashboard stack expects,
// bridging the feed engine's TimeSlice boundary (spec §4.9) to the
// existing downstream collaborator (SPEC_FULL §9.2).
func sliceToStockPrices(slice feed.TimeSlice) map[string][]models.MStockPrice {
	out := make(map[string][]models.MStockPrice, len(slice.Slice))
	for _, entry := range slice.Slice {
		var prices []models.MStockPrice
		for _, item := range entry.Data {
			switch item.Kind {
			case feed.DataKindTick:
				if item.Tick == nil {
					continue
				}
				prices = append(prices, models.MStockPrice{
					Symbol:    entry.Symbol.Value,
					Price:     item.Tick.LastPrice,
					Volume:    item.Tick.Quantity,
					Timestamp: item.EndTime.Unix(),
					FetchedAt: item.EndTime.Unix(),
					CreatedAt: item.EndTime,
				})
			case feed.DataKindTradeBar:
				if item.Bar == nil {
					continue
				}
				prices = append(prices, models.MStockPrice{
					Symbol:    entry.Symbol.Value,
					Price:     item.Bar.Close,
					Volume:    item.Bar.Volume,
					Timestamp: item.EndTime.Unix(),
					FetchedAt: item.EndTime.Unix(),
					CreatedAt: item.EndTime,
				})
			}
		}
		if len(prices) > 0 {
			out[entry.Symbol.Value] = prices
		}
	}
	return out
}

// recordMetrics appends a heartbeat sample of process memory usage
// (SPEC_FULL §9.5), using the teacher's memory-limit helper as the scale.
func recordMetrics(db interfaces.IDatabase, memManager *utils.MemoryManager, log *logger.Logger) {
	now := time.Now().UTC()
	if err := db.SaveMetric(now, "process_memory_mb", memManager.GetProcessMemoryMB()); err != nil {
		log.Error("SaveMetric failed: %v", err)
	}
	if err := db.SaveMetric(now, "tracked_symbols", float64(memManager.SymbolCount())); err != nil {
		log.Error("SaveMetric failed: %v", err)
	}
	memManager.CheckMemoryLimits()
}
