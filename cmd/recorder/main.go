// Command recorder tails the transfer-tokens program over a logsSubscribe
// websocket, classifies each confirmed transaction's log messages into token
// operations and persists them. Raw log lines can additionally be archived
// to ClickHouse. Serves Prometheus metrics and a health endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spl-transfer-lab/internal/history"
	chstore "spl-transfer-lab/internal/history/clickhouse"
	"spl-transfer-lab/internal/history/memory"
	"spl-transfer-lab/internal/history/migrations"
	pgstore "spl-transfer-lab/internal/history/postgres"
	"spl-transfer-lab/internal/observability"
	"spl-transfer-lab/internal/program"
	"spl-transfer-lab/internal/solana"
)

func main() {
	wsEndpoint := flag.String("ws-endpoint", "ws://127.0.0.1:8900", "Solana WebSocket endpoint")
	programID := flag.String("program", program.ID.String(), "Program ID to monitor")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for raw log archive (empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[recorder] ", log.LstdFlags|log.Lshortfile)
	metrics := observability.NewMetrics("")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, metrics, *wsEndpoint, *programID, *postgresDSN, *clickhouseDSN, *useMemory)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, wsEndpoint, programID, postgresDSN, clickhouseDSN string, useMemory bool) error {
	ops, opsDB, cleanup, err := openOperationStore(ctx, logger, postgresDSN, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	var archive history.LogEventStore
	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		archive = chstore.NewLogEventStore(conn)
		logger.Println("Raw log archive enabled")
	}

	wsConfig := solana.DefaultWSConfig()
	wsConfig.OnReconnect = func() { metrics.WSReconnects.Inc() }

	ws, err := solana.NewWSClient(ctx, wsEndpoint, &wsConfig)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	notifications, err := ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{programID}})
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	logger.Printf("Recording operations for program %s", programID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-notifications:
			if !ok {
				return errors.New("log subscription closed")
			}
			handleNotification(ctx, logger, metrics, ops, opsDB, archive, notif)
		}
	}
}

// openOperationStore selects the operation store backend, returning the
// backend name for metric labels. The cleanup function is a no-op for
// memory storage.
func openOperationStore(ctx context.Context, logger *log.Logger, postgresDSN string, useMemory bool) (history.OperationStore, string, func(), error) {
	if useMemory || postgresDSN == "" {
		logger.Println("Using in-memory operation store")
		return memory.NewOperationStore(), "memory", func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, "", nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, "", nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	logger.Println("Using PostgreSQL operation store")
	return pgstore.NewOperationStore(pool), "postgres", pool.Close, nil
}

func handleNotification(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, ops history.OperationStore, opsDB string, archive history.LogEventStore, notif solana.LogNotification) {
	metrics.LogNotifications.Inc()
	metrics.UpdateHighestSlot(notif.Slot)

	if archive != nil {
		events := make([]*history.LogEvent, 0, len(notif.Logs))
		now := time.Now().UnixMilli()
		for i, line := range notif.Logs {
			events = append(events, &history.LogEvent{
				Signature:    notif.Signature,
				Slot:         notif.Slot,
				LogIndex:     i,
				Message:      line,
				ReceivedAtMs: now,
			})
		}
		start := time.Now()
		err := archive.InsertBulk(ctx, events)
		metrics.RecordDBQuery("clickhouse", "insert_log_events", time.Since(start).Seconds())
		if err != nil {
			logger.Printf("Archive logs for %s: %v", notif.Signature, err)
		} else {
			metrics.LogEventsArchived.Add(float64(len(events)))
		}
	}

	// Failed transactions changed no token state.
	if notif.Err != nil {
		metrics.RecordDrop("failed_tx")
		return
	}

	kinds := history.KindsFromLogs(notif.Logs)
	if len(kinds) == 0 {
		metrics.RecordDrop("unclassified")
		return
	}

	for _, kind := range kinds {
		op := &history.Operation{
			Signature: notif.Signature,
			Slot:      notif.Slot,
			Kind:      kind,
		}
		start := time.Now()
		err := ops.Insert(ctx, op)
		metrics.RecordDBQuery(opsDB, "insert_operation", time.Since(start).Seconds())
		switch {
		case errors.Is(err, history.ErrDuplicateKey):
			metrics.RecordDrop("duplicate")
		case err != nil:
			logger.Printf("Record %s operation for %s: %v", kind, notif.Signature, err)
			metrics.RecordDrop("store_error")
		default:
			metrics.RecordOperation(string(kind))
			metrics.LastOperationTimestamp.Set(float64(time.Now().Unix()))
			logger.Printf("Recorded %s operation: %s (slot %d)", kind, notif.Signature, notif.Slot)
		}
	}
}
