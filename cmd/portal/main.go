package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/awg-tools/portal/internal/server/api"
	"github.com/awg-tools/portal/internal/server/clientfs"
	"github.com/awg-tools/portal/internal/server/services"
	"github.com/awg-tools/portal/internal/server/storage"
	"github.com/awg-tools/portal/internal/server/vpn"
	"github.com/awg-tools/portal/pkg/version"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "AmneziaWG VPN management portal",
	Long:  "REST API for managing AmneziaWG VPN client identities, configs and QR codes",
	// Default to serve command if no subcommand provided
	Run: func(cmd *cobra.Command, args []string) {
		runServe(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the management API server",
	Run:   runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersion("awg-portal"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, adminCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runServe(cmd *cobra.Command, args []string) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Printf("=== AmneziaWG VPN Management Portal ===")
	log.Printf("%s", version.GetVersion("awg-portal"))

	log.Println("Connecting to database...")
	db, err := storage.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	log.Println("Running database migrations...")
	if err := runEmbeddedMigrations(db.DB.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete")

	clientRepo := storage.NewClientRepository(db)
	settingRepo := storage.NewSettingRepository(db)

	reader := clientfs.NewReader(envOr("CLIENTS_DIR", "./clients"))
	bridge := vpn.NewBridge(
		envOr("VPN_CONTAINER_NAME", "amneziawg-server"),
		envOr("VPN_INTERFACE", "awg0"),
	)

	clientService := services.NewClientService(clientRepo, bridge, reader)
	reconciler := services.NewReconciler(reader, clientRepo)

	// Pick up clients provisioned before the portal existed, or while it
	// was down. Startup continues even if the scan fails.
	log.Println("Syncing clients from filesystem...")
	if count, err := reconciler.Sync(context.Background()); err != nil {
		log.Printf("Warning: startup filesystem sync failed: %v", err)
	} else {
		log.Printf("Startup sync complete (%d clients)", count)
	}

	clientHandler := api.NewClientHandler(clientService)
	downloadHandler := api.NewDownloadHandler(clientService)
	reconcileHandler := api.NewReconcileHandler(reconciler)
	settingsHandler := api.NewSettingsHandler(settingRepo)

	router := api.NewRouter(clientHandler, downloadHandler, reconcileHandler, settingsHandler)

	addr := fmt.Sprintf("%s:%s", envOr("API_HOST", "0.0.0.0"), envOr("API_PORT", "3001"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if os.Getenv("API_SECRET") == "" {
			log.Println("WARNING: API_SECRET not set, API runs unauthenticated (DEMO mode)")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func runEmbeddedMigrations(db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort migrations by filename to ensure correct order
	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, migration := range migrations {
		content, err := migrationsFS.ReadFile("migrations/" + migration)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migration, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration, err)
		}
		log.Printf("Applied migration %s", migration)
	}
	return nil
}
