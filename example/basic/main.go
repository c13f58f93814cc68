package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/siherrmann/hrrag"
	"github.com/siherrmann/hrrag/model"
)

var sampleCorpus = map[string]string{
	"leave_policy.md": `# Annual Leave

Full-time employees receive 25 days of paid annual leave per calendar year.
Up to 5 unused days may be carried over until March 31 of the following year.

# Sick Leave

Employees must notify their manager before 10:00 on the first day of absence.
A doctor's certificate is required from the fourth consecutive day.`,
	"remote_work.txt": `Remote work is possible up to two days per week after the probation period.
Requests are approved by the team lead and registered in the HR portal.`,
	"holidays.yaml": `public_holidays_2025:
  - 2025-01-01 New Year
  - 2025-12-25 Christmas Day
  - 2025-12-26 Boxing Day`,
	"employees.csv": `name,department,location,manager
Ada Lovelace,Engineering,Berlin,Grace Hopper
Alan Turing,Research,London,Ada Lovelace`,
}

func main() {
	_ = godotenv.Load()

	dataDir, err := os.MkdirTemp("", "hrrag-basic-*")
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	defer os.RemoveAll(dataDir)

	for name, content := range sampleCorpus {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0600); err != nil {
			log.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	// Default settings: all-MiniLM-L6-v2 through hugot, file store, LLM from USE_GROQ/GROQ_API_KEY
	config := model.DefaultConfig()
	config.Index.Path = filepath.Join(dataDir, "vectorstore", "index.bin")
	config.ApplyEnv()

	a, err := hrrag.NewAssistant(config)
	if err != nil {
		log.Fatalf("Failed to create assistant: %v", err)
	}
	defer a.Close()

	ctx := context.Background()

	fmt.Println("Ingesting sample corpus...")
	snapshot, err := a.Ingest(ctx, dataDir)
	if err != nil {
		log.Fatalf("Failed to ingest: %v", err)
	}
	fmt.Printf("Indexed %d chunks with %s\n", snapshot.Len(), snapshot.Model)

	for _, question := range []string{
		"How many vacation days can I carry over?",
		"When do I need a doctor's certificate?",
		"Who is Alan Turing's manager?",
	} {
		answer, err := a.Retrieve(ctx, question, 6)
		if err != nil {
			log.Fatalf("Failed to retrieve: %v", err)
		}

		fmt.Printf("\nQ: %s\n", question)
		fmt.Printf("A: %s\n", answer.Text)
		fmt.Printf("Sources: %v\n", answer.Citations)
		for _, r := range answer.Results {
			fmt.Printf("  %d. %s (score: %.4f)\n", r.Rank, r.Record.Source, r.Score)
		}
	}
}
