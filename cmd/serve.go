package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mahir-majid/tiger-dorm-security/internal/config"
	"github.com/mahir-majid/tiger-dorm-security/internal/detector"
	"github.com/mahir-majid/tiger-dorm-security/internal/gallery"
	"github.com/mahir-majid/tiger-dorm-security/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Dorm Security web server.
The server processes webcam frames, matching every detected face against
the loaded embedding gallery, and exposes name search plus administrative
gallery endpoints.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	// Flags override environment-provided values when set explicitly.
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}

	store := gallery.Store{
		MatrixPath: cfg.Gallery.MatrixPath,
		NamesPath:  cfg.Gallery.NamesPath,
	}
	cache := gallery.NewCache(store)

	// Warm the cache before accepting traffic.
	if g := cache.Get(); g.Len() == 0 {
		fmt.Println("No gallery loaded - every face will be reported as Unknown")
		fmt.Println("Run 'dorm-security gallery build' to create one")
	} else {
		fmt.Printf("Gallery loaded: %d embeddings (dim %d)\n", g.Len(), g.Dim())
	}

	det := detector.NewClient(cfg.Detector.URL)
	server := web.NewServer(cfg, det, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Dorm Security API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
