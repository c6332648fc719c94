package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/awg-tools/portal/internal/server/clientfs"
	"github.com/awg-tools/portal/internal/server/services"
	"github.com/awg-tools/portal/internal/server/storage"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
	Long:  "Administrative commands for inspecting and reconciling the client store",
}

var listClientsCmd = &cobra.Command{
	Use:   "list-clients",
	Short: "List all clients in the store",
	Run:   runListClientsCommand,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the store with the clients directory",
	Run:   runSyncCommand,
}

var legacyClientsCmd = &cobra.Command{
	Use:   "legacy-clients",
	Short: "List clients present on disk but absent from the store",
	Run:   runLegacyClientsCommand,
}

var migrateClientsCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate all filesystem-only clients into the store",
	Run:   runMigrateCommand,
}

func init() {
	adminCmd.AddCommand(listClientsCmd, syncCmd, legacyClientsCmd, migrateClientsCmd)
}

func adminContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func adminStore() (*storage.DB, *storage.ClientRepository) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	db, err := storage.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db, storage.NewClientRepository(db)
}

func adminReconciler() (*storage.DB, *services.Reconciler) {
	db, repo := adminStore()
	reader := clientfs.NewReader(envOr("CLIENTS_DIR", "./clients"))
	return db, services.NewReconciler(reader, repo)
}

func runListClientsCommand(cmd *cobra.Command, args []string) {
	db, repo := adminStore()
	defer db.Close()

	ctx, cancel := adminContext()
	defer cancel()

	clients, err := repo.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list clients: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tIP\tENABLED\tCREATED\tDOWNLOADED")
	for _, c := range clients {
		downloaded := "-"
		if c.ConfigDownloadedAt != nil {
			downloaded = c.ConfigDownloadedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			c.Name, c.IPAddress, c.Enabled, c.CreatedAt.Format(time.RFC3339), downloaded)
	}
	w.Flush()
	fmt.Printf("\n%d clients\n", len(clients))
}

func runSyncCommand(cmd *cobra.Command, args []string) {
	db, reconciler := adminReconciler()
	defer db.Close()

	ctx, cancel := adminContext()
	defer cancel()

	count, err := reconciler.Sync(ctx)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	fmt.Printf("Synced %d clients from filesystem\n", count)
}

func runLegacyClientsCommand(cmd *cobra.Command, args []string) {
	db, reconciler := adminReconciler()
	defer db.Close()

	ctx, cancel := adminContext()
	defer cancel()

	legacy, err := reconciler.FindLegacy(ctx)
	if err != nil {
		log.Fatalf("Failed to find legacy clients: %v", err)
	}

	if len(legacy) == 0 {
		fmt.Println("No legacy clients found")
		return
	}
	for _, c := range legacy {
		fmt.Printf("%s\t%s\n", c.Name, c.IPAddress)
	}
	fmt.Printf("\n%d legacy clients (run 'portal admin migrate' to import)\n", len(legacy))
}

func runMigrateCommand(cmd *cobra.Command, args []string) {
	db, reconciler := adminReconciler()
	defer db.Close()

	ctx, cancel := adminContext()
	defer cancel()

	count, err := reconciler.MigrateAll(ctx)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Printf("Migration complete, store now holds %d clients\n", count)
}
