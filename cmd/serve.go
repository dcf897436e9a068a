package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/markpage/internal/db"
	"github.com/ziadkadry99/markpage/internal/server"
	"github.com/ziadkadry99/markpage/internal/site"
	"github.com/ziadkadry99/markpage/internal/visits"
)

var (
	servePort int
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blog over HTTP",
	Long: `Starts an HTTP server that renders pages on request. GET /?p=<id> renders a
content page, GET / renders the index, and each k=<keyword> parameter toggles
a keyword filter. Visit counts are streamed at /ws/visits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening visit store: %w", err)
		}
		defer database.Close()
		store := visits.NewStore(database)

		renderer, err := newRenderer(cfg, store, logger)
		if err != nil {
			return err
		}
		handler, err := site.NewHandler(renderer, store, cfg.HighlightStyle, logger)
		if err != nil {
			return err
		}

		srv := server.New(server.Config{Port: cfg.Port, AllowAll: cfg.CORSAllowAll}, logger)
		site.RegisterRoutes(srv.Router(), handler)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		if serveOpen {
			openBrowser(fmt.Sprintf("http://localhost:%d/", cfg.Port))
		}

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Shutdown incomplete", zap.Error(err))
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the blog in a browser")
	rootCmd.AddCommand(serveCmd)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
