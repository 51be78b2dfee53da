// Command seed loads sample books into the configured store. With -d it only removes
// existing books, reviews and users.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevinaaaquil/bookreviews/config"
	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/service"
	"github.com/kevinaaaquil/bookreviews/store"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var sampleBooks = []service.BookInput{
	{Title: "The Hitchhiker's Guide to the Galaxy", Author: "Douglas Adams", Genre: strPtr("Sci-Fi"), PublishedYear: intPtr(1979), ISBN: strPtr("978-0345391803"), Summary: strPtr("A hilarious sci-fi adventure.")},
	{Title: "1984", Author: "George Orwell", Genre: strPtr("Dystopian"), PublishedYear: intPtr(1949), ISBN: strPtr("978-0451524935"), Summary: strPtr("A chilling vision of a totalitarian future.")},
	{Title: "Pride and Prejudice", Author: "Jane Austen", Genre: strPtr("Romance"), PublishedYear: intPtr(1813), ISBN: strPtr("978-1503290563"), Summary: strPtr("A classic romance novel.")},
}

func main() {
	destroy := flag.Bool("d", false, "only delete existing data")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb connect", "error", err)
	}
	defer db.Disconnect(context.Background())

	if err := db.Reset(ctx); err != nil {
		log.Error("clear data", "error", err)
		os.Exit(1)
	}
	log.Info("data cleared")
	if *destroy {
		return
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Error("ensure indexes", "error", err)
		os.Exit(1)
	}

	books := service.NewBooks(db, nil, log)
	for _, in := range sampleBooks {
		book, err := books.Create(ctx, in)
		if err != nil {
			log.Error("import book", "title", in.Title, "error", err)
			os.Exit(1)
		}
		log.Info("imported book", "id", book.ID.Hex(), "title", book.Title)
	}
	log.Info("sample books imported; reviews and users are not seeded")
}
