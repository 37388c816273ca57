package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meur/sharehub/internal/api"
	"github.com/meur/sharehub/internal/app"
)

const shutdownTimeout = 15 * time.Second

var configFile string

var rootCmd = &cobra.Command{
	Use:           "sharehub-server",
	Short:         "Serve the ShareHub catalog API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (default ./sharehub.yaml if present)")
	flags.Int("port", 8080, "HTTP listen port")
	flags.String("db", "./sharehub.db", "database URL or SQLite path")
	flags.String("log-level", "info", "log level")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	_ = v.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("db"))
	_ = v.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, v, configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.Config, a.Logger

	opts := api.Options{
		Catalog:        a.Catalog,
		Gate:           a.Gate,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         a.Store.Ping,
	}
	if a.ServesMedia() {
		opts.Media = a.Objects
	}
	srv := api.New(opts)

	// Serve the built frontend when it is present next to the binary.
	if info, err := os.Stat(cfg.Frontend.Dir); err == nil && info.IsDir() {
		FileServer(srv.Router(), "/", http.Dir(cfg.Frontend.Dir))
		logger.Info("serving frontend", zap.String("dir", cfg.Frontend.Dir))
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("sharehub api listening",
			zap.String("addr", httpServer.Addr),
			zap.String("database", cfg.Database.Driver),
			zap.String("media", cfg.Media.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}
