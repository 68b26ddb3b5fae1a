// Seed adds sample shopping items to the database. Run from project root: go run ./scripts/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"shoplist/internal/config"
	"shoplist/internal/database"
	"shoplist/internal/repository"
	"shoplist/pkg/logger"

	"github.com/joho/godotenv"
)

var groceries = []string{
	"Milk", "Eggs", "Bread", "Butter", "Apples", "Bananas", "Coffee", "Tea",
	"Rice", "Pasta", "Tomatoes", "Onions", "Garlic", "Cheese", "Yogurt", "Chicken",
}

func main() {
	total := flag.Int("n", len(groceries), "number of items to insert")
	completedEvery := flag.Int("completed-every", 4, "mark every Nth item completed (0 disables)")
	flag.Parse()

	_ = godotenv.Load(".env")
	logger.InitFromEnv()

	ctx := context.Background()
	db := database.InitDB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	defer db.Close()

	dialect := database.Dialect(config.Get().DatabaseDriver)
	if err := database.MigrateOrCreateSchema(ctx, db, dialect); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	items := repository.NewItems(db, dialect)
	start := time.Now()
	for i := 0; i < *total; i++ {
		name := groceries[i%len(groceries)]
		if i >= len(groceries) {
			name = fmt.Sprintf("%s #%d", name, i/len(groceries)+1)
		}
		it, err := items.Add(ctx, name)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Insert failed:", err)
			os.Exit(1)
		}
		if *completedEvery > 0 && (i+1)%*completedEvery == 0 {
			if err := items.Toggle(ctx, it.ID); err != nil {
				fmt.Fprintln(os.Stderr, "Toggle failed:", err)
				os.Exit(1)
			}
		}
		fmt.Printf("\rInserted %d / %d", i+1, *total)
	}

	fmt.Printf("\nDone: %d items in %v\n", *total, time.Since(start))
}
