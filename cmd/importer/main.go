package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/samirrijal/fieldarchitect/internal/adapters/nats"
	"github.com/samirrijal/fieldarchitect/internal/adapters/postgres"
	"github.com/samirrijal/fieldarchitect/internal/adapters/valkey"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
	"github.com/samirrijal/fieldarchitect/internal/pkg/config"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
	"github.com/samirrijal/fieldarchitect/internal/pkg/logging"
	"github.com/samirrijal/fieldarchitect/internal/pkg/telemetry"
)

const (
	chunkSize   = 200
	concurrency = 4
)

// importer loads field boundaries from a GeoJSON file or URL.
//
//	importer <path|url> [name-property]
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: importer <path|url> [name-property]")
		os.Exit(2)
	}
	nameProp := "name"
	if len(os.Args) > 2 {
		nameProp = os.Args[2]
	}

	cfg, err := config.Load("fieldarchitect-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	os.Exit(run(cfg, os.Args[1], nameProp))
}

// run returns the process exit code. Deferred closes flush the broker and
// return pool connections before main exits.
func run(cfg *config.Config, source, nameProp string) int {
	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	data, err := readSource(ctx, source)
	if err != nil {
		slog.Error("read source failed", "source", source, "error", err)
		return 1
	}
	polys, err := geospatial.PolygonsFromGeoJSON(data, nameProp, "imported")
	if err != nil {
		slog.Error("parse source failed", "source", source, "error", err)
		return 1
	}
	slog.Info("parsed boundaries", "source", source, "polygons", len(polys))

	var store ports.FieldRepository
	switch cfg.Storage.Driver {
	case "valkey":
		kv, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Error("valkey connect failed", "error", err)
			return 1
		}
		defer kv.Close()
		store = valkey.NewFieldStore(kv.Client())
	default:
		db, err := postgres.New(ctx, cfg.Database.DSN(),
			postgres.WithMaxConns(concurrency+1),
			postgres.WithApplicationName("fieldarchitect-importer"))
		if err != nil {
			slog.Error("database connect failed", "error", err)
			return 1
		}
		defer db.Close()
		store = postgres.NewFieldRepo(db) // SaveBatch
	}

	// Saved events trigger surveys; importing without a broker just skips them.
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, no saved events", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}
	fields := usecases.NewFieldService(store, nil, publisher)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		saved    int
		rejected int
		failed   int
	)
	sem := make(chan struct{}, concurrency)

	for start := 0; start < len(polys); start += chunkSize {
		end := min(start+chunkSize, len(polys))
		drafts := make([]usecases.FieldDraft, 0, end-start)
		for _, p := range polys[start:end] {
			drafts = append(drafts, usecases.FieldDraft{Name: p.Name, Vertices: p.Vertices})
		}

		wg.Add(1)
		go func(offset int, drafts []usecases.FieldDraft) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := fields.Import(ctx, drafts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed += len(drafts)
				slog.Error("chunk failed", "offset", offset, "size", len(drafts), "error", err)
				return
			}
			saved += len(res.Saved)
			rejected += len(res.Rejected)
			for i, rerr := range res.Rejected {
				slog.Warn("boundary rejected", "name", drafts[i].Name, "index", offset+i, "error", rerr)
			}
		}(start, drafts)
	}

	wg.Wait()
	slog.Info("import complete", "saved", saved, "rejected", rejected, "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// readSource reads a local file or downloads an http(s) URL.
func readSource(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<20))
}
