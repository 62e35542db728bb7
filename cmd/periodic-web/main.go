package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/joho/godotenv"
	"github.com/siroksgribogami/web-3/internal/artifacts"
	"github.com/siroksgribogami/web-3/internal/config"
	"github.com/siroksgribogami/web-3/internal/server"
	"github.com/spf13/cobra"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetPrefix("[WEB] ")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "periodic-web",
		Long:         `Periodic sine/cosine image modulation with RGB histograms`,
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve [--addr <addr>] [--static-dir <path>] [--debug]",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg)
		},
	}
	cfg.BindFlags(serveCmd.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "periodic-web %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Module:     %s\n", versioninfo.Short())
		},
	}

	rootCmd.AddCommand(serveCmd, newModulateCmd(), versionCmd)
	return rootCmd
}

func serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.DebugLogging() {
		log.Printf("periodic-web %s (built %s, commit %s, %s)", Version, BuildTime, GitCommit, versioninfo.Short())
	}

	store, err := artifacts.NewStore(cfg.StaticDir, "/static", cfg.JPEGQuality)
	if err != nil {
		return err
	}

	janitor, err := artifacts.StartJanitor(store, cfg.JanitorSchedule, cfg.ArtifactTTL)
	if err != nil {
		return err
	}
	defer func() { <-janitor.Stop().Done() }()

	srv, err := server.New(cfg, store)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}
