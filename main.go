package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/example/koinebot/internal/ai"
	"github.com/example/koinebot/internal/bot"
	"github.com/example/koinebot/internal/corpus"
	"github.com/example/koinebot/internal/database"
	"github.com/example/koinebot/internal/excel"
	"github.com/example/koinebot/internal/quiz"
	"github.com/example/koinebot/internal/scheduler"
	"github.com/example/koinebot/internal/vocab"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Preload the gloss cache from a lexicon file when one is configured.
	if lexicon := os.Getenv("LEXICON_FILE"); lexicon != "" {
		config := excel.DefaultImportConfig()
		config.FilePath = lexicon
		result, err := excel.ImportLexicon(context.Background(), config)
		if err != nil {
			log.Fatalf("Failed to import lexicon: %v", err)
		}
		log.Printf("Lexicon import: %d imported, %d skipped, %d errors",
			result.Imported, result.Skipped, len(result.Errors))
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	corpusPath := os.Getenv("CORPUS_FILE")
	if corpusPath == "" {
		corpusPath = filepath.Join(dataDir, "gnt_full.json")
	}
	verses, err := corpus.Load(corpusPath)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	if len(verses) == 0 {
		log.Printf("Warning: corpus %s is empty, corpus-scoped quizzes will have no words", corpusPath)
	} else {
		log.Printf("Loaded %d verses from %s", len(verses), corpusPath)
	}

	oracle, err := ai.New()
	if err != nil {
		log.Fatalf("Failed to create oracle: %v", err)
	}

	cardRepo := database.NewCardRepository()
	sessionRepo := database.NewSessionRepository()
	cachedOracle := ai.NewCachedOracle(oracle, database.NewGlossRepository())

	quizManager := quiz.New(sessionRepo, cardRepo, cachedOracle, verses)
	generator := vocab.NewGenerator(cardRepo)

	b, err := bot.New(quizManager, generator, verses)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	var sched *scheduler.Scheduler
	if os.Getenv("ENABLE_SCHEDULER") != "false" {
		sched = scheduler.New(b)
		sched.Start()
		log.Println("Reminder scheduler started")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)
		if sched != nil {
			sched.Stop()
		}
		b.Stop()
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
	log.Println("Bot stopped successfully")
}
