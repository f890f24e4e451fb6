// Command monucache runs a small demonstration of the caching engine and
// can optionally serve its Prometheus metrics. It is the quickest way to
// inspect placement, hit rates and invalidation behavior on a real
// directory.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digiacomovictor/monucache/pkg/cache"
)

type config struct {
	MemoryMB    int64  `env:"MONUCACHE_MEMORY_MB" envDefault:"100"`
	DiskMB      int64  `env:"MONUCACHE_DISK_MB" envDefault:"500"`
	Dir         string `env:"MONUCACHE_DIR"`
	MetricsAddr string `env:"MONUCACHE_METRICS_ADDR"`
	Debug       bool   `env:"MONUCACHE_DEBUG"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatal("Failed to parse environment", "error", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ecfg := cache.DefaultConfig()
	ecfg.MaxMemoryBytes = cfg.MemoryMB * 1024 * 1024
	ecfg.MaxDiskBytes = cfg.DiskMB * 1024 * 1024
	if cfg.Dir != "" {
		ecfg.Dir = cfg.Dir
	}

	engine, err := cache.New(ecfg)
	if err != nil {
		log.Fatal("Failed to create cache engine", "error", err)
	}
	engine.Start()
	defer engine.Stop()

	if cfg.MetricsAddr != "" {
		prometheus.MustRegister(cache.NewCollector(engine, "monucache"))
		go serveMetrics(cfg.MetricsAddr)
	}

	demo(engine)

	if cfg.MetricsAddr != "" {
		log.Info("Serving metrics, press ctrl+c to exit", "addr", cfg.MetricsAddr)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Metrics server stopped", "error", err)
	}
}

func demo(engine *cache.Engine) {
	put := func(key string, cat cache.Category, v any, opts ...cache.SetOption) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Error("Marshal failed", "key", key, "error", err)
			return
		}
		engine.Set(key, cat, data, opts...)
	}

	fmt.Println("monucache demo")
	fmt.Println("==============")

	put("colosseo_recognition", cache.CategoryRecognitionResult,
		map[string]any{"name": "Colosseo", "confidence": 0.95})
	put("user_123_profile", cache.CategoryUserData,
		map[string]any{"name": "Mario", "visits": 42}, cache.WithTTL(time.Hour))
	put("roma_search", cache.CategorySearchResult,
		[]map[string]string{{"id": "colosseo"}, {"id": "pantheon"}})

	if data, ok := engine.Get("colosseo_recognition", cache.CategoryRecognitionResult); ok {
		fmt.Printf("hit:  colosseo_recognition -> %s\n", data)
	}
	if _, ok := engine.Get("inesistente", cache.CategorySearchResult); !ok {
		fmt.Println("miss: inesistente")
	}

	// Memoization: the second identical call never reaches the function.
	calls := 0
	search := cache.Memoized(engine, cache.CategorySearchResult, func(query string) ([]string, error) {
		calls++
		time.Sleep(100 * time.Millisecond)
		return []string{"result1_" + query, "result2_" + query}, nil
	})
	for i := 0; i < 2; i++ {
		start := time.Now()
		results, err := search("roma")
		if err != nil {
			log.Error("Search failed", "error", err)
			continue
		}
		fmt.Printf("search(roma) -> %v in %s (calls=%d)\n", results, time.Since(start).Round(time.Millisecond), calls)
	}

	// Pattern invalidation, scoped to one category.
	put("temp_data_1", cache.CategoryUserData, "data1")
	put("temp_data_2", cache.CategoryUserData, "data2")
	engine.InvalidateByPattern("temp_data", cache.CategoryUserData)
	if _, ok := engine.Get("temp_data_1", cache.CategoryUserData); !ok {
		fmt.Println("invalidated: temp_data_*")
	}

	s := engine.Stats()
	fmt.Println("stats")
	fmt.Printf("  memory: %d entries, %s\n", s.MemoryEntries, humanize.Bytes(uint64(s.MemoryUsageBytes)))
	fmt.Printf("  disk:   %d entries, %s\n", s.DiskEntries, humanize.Bytes(uint64(s.DiskUsageBytes)))
	fmt.Printf("  hits=%d misses=%d evictions=%d hit_rate=%.2f\n", s.Hits, s.Misses, s.Evictions, s.HitRate)
	fmt.Printf("  disk_reads=%d disk_writes=%d\n", s.DiskReads, s.DiskWrites)
}
