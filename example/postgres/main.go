package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/siherrmann/hrrag"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

const handbook = `# Onboarding

New employees receive their laptop on the first working day.
The onboarding buddy is assigned by the team lead.

# Expenses

Travel expenses are reimbursed within 30 days after submitting the receipts.
Meals during business trips are covered up to 40 EUR per day.`

func main() {
	// Start a pgvector enabled PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// The postgres store reads its connection from the DB_* variables
	for key, value := range map[string]string{
		"DB_HOST":     "localhost",
		"DB_PORT":     dbPort,
		"DB_DATABASE": "database",
		"DB_USERNAME": "user",
		"DB_PASSWORD": "password",
	} {
		os.Setenv(key, value)
	}

	dataDir, err := os.MkdirTemp("", "hrrag-postgres-*")
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	defer os.RemoveAll(dataDir)
	if err := os.WriteFile(filepath.Join(dataDir, "handbook.md"), []byte(handbook), 0600); err != nil {
		log.Fatalf("Failed to write handbook: %v", err)
	}

	config := model.DefaultConfig()
	config.Index.Store = model.StorePostgres
	config.Query.Dedup = model.DedupBestScore

	a, err := hrrag.NewAssistant(config)
	if err != nil {
		log.Fatalf("Failed to create assistant: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	snapshot, err := a.Ingest(ctx, dataDir)
	if err != nil {
		log.Fatalf("Failed to ingest: %v", err)
	}
	fmt.Printf("Stored snapshot %s with %d chunks in PostgreSQL\n", snapshot.BuildID, snapshot.Len())

	results, err := a.Search(ctx, "How fast are travel expenses reimbursed?", 3)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	for _, r := range results {
		fmt.Printf("%d. [%s] %.4f\n%s\n\n", r.Rank, r.Record.Source, r.Score, r.Record.Text)
	}
}
