package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/hueswap/internal/imageio"
	"github.com/MeKo-Tech/hueswap/internal/server"
	"github.com/MeKo-Tech/hueswap/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recolor HTTP API",
	Long: `Serve the recolor HTTP API.

  POST /recolor?rule=0:120&rule=120:240   body: image, response: PNG
  GET  /results/<key>.png                 cached result (with --cache-db)
  GET  /status                            JSON counters
  GET  /healthz                           liveness`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("max-concurrent", runtime.NumCPU(), "Max concurrent recolor jobs (default: number of CPUs)")
	serveCmd.Flags().Int("workers", 0, "Workers per recolor job (default: number of CPUs)")
	serveCmd.Flags().Int("max-size", 0, "Downscale uploads so neither side exceeds this many pixels (0 keeps the size)")
	serveCmd.Flags().Int64("max-body-mb", server.DefaultMaxBodyBytes>>20, "Maximum upload size in MiB")
	serveCmd.Flags().Int64("max-pixels", imageio.DefaultMaxPixels, "Reject uploads whose header declares more pixels than this")
	serveCmd.Flags().Duration("request-timeout", time.Minute, "Timeout per recolor job")
	serveCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	serveCmd.Flags().String("cache-db", "", "SQLite file for caching results (disabled when empty)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for /recolor responses")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.max_concurrent", "max-concurrent")
	mustBind("serve.workers", "workers")
	mustBind("serve.max_size", "max-size")
	mustBind("serve.max_body_mb", "max-body-mb")
	mustBind("serve.max_pixels", "max-pixels")
	mustBind("serve.request_timeout", "request-timeout")
	mustBind("serve.png_compression", "png-compression")
	mustBind("serve.cache_db", "cache-db")
	mustBind("serve.cache_control", "cache-control")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent")
	workers := viper.GetInt("serve.workers")
	maxSize := viper.GetInt("serve.max_size")
	maxBodyMB := viper.GetInt64("serve.max_body_mb")
	maxPixels := viper.GetInt64("serve.max_pixels")
	timeout := viper.GetDuration("serve.request_timeout")
	pngCompression := viper.GetString("serve.png_compression")
	cacheDB := viper.GetString("serve.cache_db")
	cacheControl := viper.GetString("serve.cache_control")

	var (
		cache   server.Cache
		results *server.ResultsHandler
	)
	if cacheDB != "" {
		st, err := store.Open(cacheDB, store.Metadata{
			Name:        "hueswap",
			Format:      "png",
			Description: "Recolored image cache",
			Version:     "1",
		})
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("failed to close cache", "error", err)
			}
		}()
		cache = st
		results = server.NewResultsHandler(st, "", logger)
	}

	svc, err := server.NewRecolorService(server.RecolorConfig{
		MaxConcurrent:  maxConc,
		Workers:        workers,
		MaxSize:        maxSize,
		MaxBodyBytes:   maxBodyMB << 20,
		MaxPixels:      maxPixels,
		RequestTimeout: timeout,
		PNGCompression: pngCompression,
		CacheControl:   cacheControl,
	}, cache, logger)
	if err != nil {
		return err
	}

	logger.Info("recolor server listening",
		"addr", addr,
		"max_concurrent", maxConc,
		"max_size", maxSize,
		"cache_db", cacheDB,
	)

	srv := &http.Server{Addr: addr, Handler: server.NewMux(svc, results), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
