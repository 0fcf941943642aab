// engramd runs the memory-augmented chat host, plus small admin commands
// for inspecting and pruning the stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/engramlabs/engram-go/memory"
	"github.com/engramlabs/engram-go/memory/embedder"
	chromemstore "github.com/engramlabs/engram-go/memory/store/chromem"
	sqlitestore "github.com/engramlabs/engram-go/memory/store/sqlite"
	"github.com/engramlabs/engram-go/server"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "engram.json", "settings file path")
		showStats  = flag.Bool("stats", false, "print store statistics and exit")
		runPrune   = flag.Bool("prune", false, "delete expired memories and exit")
	)
	flag.Parse()

	settings, err := loadSettings(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	lexical, err := sqlitestore.Open(settings.LexicalPath)
	if err != nil {
		log.Fatalf("❌ open lexical store: %v", err)
	}
	defer lexical.Close()

	vector, err := chromemstore.Open(settings.VectorPath)
	if err != nil {
		log.Fatalf("❌ open vector store: %v", err)
	}

	emb, err := embedder.FromSettings(settings.Embedding)
	if err != nil {
		log.Fatalf("❌ configure embedder: %v", err)
	}

	manager, err := memory.NewManager(lexical, vector, emb, settings.ManagerConfig())
	if err != nil {
		log.Fatalf("❌ create memory manager: %v", err)
	}
	log.Println("✅ Memory system configured (sqlite + chromem)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *showStats {
		stats, err := manager.Stats(ctx)
		if err != nil {
			log.Fatalf("❌ stats: %v", err)
		}
		fmt.Printf("facts:   %d\nvectors: %d\n", stats.Facts, stats.Vectors)
		return
	}
	if *runPrune {
		n, err := manager.Prune(ctx)
		if err != nil {
			log.Fatalf("❌ prune: %v", err)
		}
		fmt.Printf("pruned %d expired memories\n", n)
		return
	}

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		log.Fatal("❌ ANTHROPIC_API_KEY environment variable is required")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv, err := server.New(server.Config{
		Addr:   ":" + port,
		APIKey: anthropicKey,
	}, manager)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Printf("WebSocket: ws://localhost:%s/ws", port)
	log.Printf("Health:    http://localhost:%s/health", port)
	log.Println("Press Ctrl+C to stop")

	if err := srv.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

// loadSettings reads the settings file when present, otherwise builds a
// remote-provider default from the environment.
func loadSettings(path string) (*memory.Settings, error) {
	if _, err := os.Stat(path); err == nil {
		return memory.LoadSettings(path)
	}

	s := &memory.Settings{
		Embedding: memory.EmbeddingSettings{
			Provider: "remote",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
		},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
