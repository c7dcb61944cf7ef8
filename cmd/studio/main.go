package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"image"
	"image/color"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/disintegration/imaging"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/Sharan9277/ai-studio/internal/config"
	"github.com/Sharan9277/ai-studio/internal/domain"
	"github.com/Sharan9277/ai-studio/internal/history"
	"github.com/Sharan9277/ai-studio/internal/infrastructure/mockapi"
	"github.com/Sharan9277/ai-studio/internal/processor"
	"github.com/Sharan9277/ai-studio/internal/service"
	"github.com/Sharan9277/ai-studio/internal/storage"
)

// demoPrompts pairs each style with a prompt used by the demo workflow.
var demoPrompts = map[domain.Style]string{
	domain.StyleAnime:          "a fox spirit wandering a lantern-lit street",
	domain.StylePhotorealistic: "morning fog over a pine forest",
	domain.StyleOilPainting:    "a harbor at dusk with fishing boats",
	domain.StyleCyberpunk:      "rain-soaked neon alley with holographic signs",
	domain.StyleWatercolor:     "wildflowers on a windy hillside",
}

func main() {
	// Parse command line flags
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	runDemo := flag.Bool("demo", false, "Run one demo generation per style")
	runCron := flag.Bool("cron", false, "Run demo generations on a schedule")
	clearHistory := flag.Bool("clear", false, "Clear stored history and exit")
	flag.Parse()

	// Configure logging
	if *verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Verbose logging enabled")
	} else {
		log.SetFlags(log.Ldate | log.Ltime)
	}

	if !*runDemo && !*runCron && !*clearHistory {
		log.Fatal("Please specify a mode: -demo, -cron, or -clear")
	}

	// Load configuration
	log.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully")

	// Open history storage: Postgres when configured, local files otherwise.
	kv, cleanup, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer cleanup()

	store := history.New(kv, history.Options{
		Key:           cfg.HistoryKey,
		MaxEntries:    cfg.HistoryLimit,
		ShrinkEntries: cfg.HistoryShrinkLimit,
		SizeThreshold: cfg.HistorySizeThreshold,
	})

	if *clearHistory {
		store.Clear()
		log.Println("History cleared")
		return
	}

	unsubscribe := store.Subscribe(func(results []domain.GenerationResult) {
		log.Printf("History updated: %d entries", len(results))
	})
	defer unsubscribe()

	backend := mockapi.NewClient(
		mockapi.WithFailureRate(cfg.MockFailureRate),
		mockapi.WithDelayRange(cfg.MockMinDelay, cfg.MockMaxDelay),
	)
	orchestrator := service.New(backend, service.Options{
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
		BackoffBase:    cfg.BackoffBase,
		BackoffMin:     cfg.BackoffMin,
		BackoffCap:     cfg.BackoffCap,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating shutdown...", sig)
		orchestrator.Cancel()
		cancel()
	}()

	if *runCron {
		log.Println("Starting scheduled demo workflow...")
		startCronWorkflow(ctx, orchestrator, store, cfg)
		return
	}

	demoWorkflow(ctx, orchestrator, store, cfg)
}

func openStorage(cfg *config.Config) (storage.KeyValue, func(), error) {
	if cfg.UsePostgres() {
		log.Println("Initializing database connection...")
		db, err := sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

		kv, err := storage.NewPostgres(db, 0)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("Database connection established")
		return kv, func() { db.Close() }, nil
	}

	kv, err := storage.NewFile(cfg.StorageDir, cfg.HistorySizeThreshold*2)
	if err != nil {
		return nil, nil, err
	}
	return kv, func() {}, nil
}

func startCronWorkflow(ctx context.Context, orchestrator *service.Orchestrator, store *history.Store, cfg *config.Config) {
	c := cron.New(cron.WithSeconds())

	var cronMutex sync.Mutex

	// Run the demo workflow every 3 minutes.
	_, err := c.AddFunc("0 */3 * * * *", func() {
		cronMutex.Lock()
		defer cronMutex.Unlock()
		log.Println("[CRON] Running scheduled demo workflow...")
		demoWorkflow(ctx, orchestrator, store, cfg)
		log.Println("[CRON] Finished scheduled demo workflow.")
	})
	if err != nil {
		log.Printf("Error scheduling demo workflow: %v", err)
		return
	}

	c.Start()
	log.Println("Cron scheduler started successfully")

	<-ctx.Done()
	c.Stop()
	log.Println("Cron scheduler stopped")
}

func demoWorkflow(ctx context.Context, orchestrator *service.Orchestrator, store *history.Store, cfg *config.Config) {
	upload, err := demoImage()
	if err != nil {
		log.Printf("Error building demo image: %v", err)
		return
	}

	imageData, err := processor.Preprocess(upload, cfg.ImageMaxDim, cfg.ImageQuality)
	if err != nil {
		log.Printf("Error preprocessing demo image: %v", err)
		return
	}

	for _, style := range domain.Styles {
		if ctx.Err() != nil {
			log.Println("Demo workflow stopped")
			return
		}

		req := domain.GenerationRequest{
			ImageData: imageData,
			Prompt:    demoPrompts[style],
			Style:     style,
		}

		log.Printf("Submitting %s generation: %s", style, req.Prompt)
		result, err := orchestrator.Submit(ctx, req)
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) {
				log.Println("Generation cancelled")
				return
			}
			log.Printf("Generation failed for style %s: %v", style, err)
			continue
		}

		log.Printf("Generation %s complete: %s", result.ID, result.ImageURL)
		store.Add(*result)
	}

	for i, entry := range store.List() {
		log.Printf("History %d: [%s] %s -> %s", i+1, entry.Style, entry.Prompt, entry.ImageURL)
	}
}

// demoImage synthesizes a gradient PNG standing in for a user upload.
func demoImage() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1600, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1600; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / 1600),
				G: uint8(y * 255 / 1200),
				B: uint8((x + y) * 255 / 2800),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
