package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/tbnow/tbnow-back/controller"
	"github.com/tbnow/tbnow-back/services"
)

// config collects the environment the server needs. A .env file is loaded by
// the services package on startup; real environment variables win.
type config struct {
	Port          string
	OllamaURL     string
	EmbedModel    string
	GeminiModel   string
	GuidelinesDir string
	DataDir       string
	RecordsDB     string
}

func loadConfig() config {
	return config{
		Port:          getenv("PORT", "8000"),
		OllamaURL:     getenv("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:    getenv("EMBED_MODEL", "nomic-embed-text:v1.5"),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		GuidelinesDir: getenv("GUIDELINES_DIR", "data/guidelines"),
		DataDir:       getenv("DATA_DIR", "data/index"),
		RecordsDB:     getenv("RECORDS_DB", "data/tbnow.db"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := loadConfig()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Create Gemini client
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	embedder := services.NewOllamaEmbedder(httpClient, cfg.OllamaURL, cfg.EmbedModel)
	kb := services.NewKnowledgeBase(cfg.DataDir, cfg.EmbedModel)
	indexer := services.NewIndexingService(embedder, kb, cfg.GuidelinesDir, cfg.DataDir)
	generator := services.NewGeminiGenerator(geminiClient, cfg.GeminiModel)

	recordStore, err := services.NewSQLiteRecordStore(cfg.RecordsDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to open records store: %v", err)
	}

	ragService := services.NewRAGService(embedder, kb, generator, services.DefaultRetryConfig())
	ragController := controller.NewRAGController(ragService, indexer)
	recordController := controller.NewRecordController(recordStore, ragService)
	xrayController := controller.NewXrayController(services.NewStubXrayAnalyzer())

	// Rebuild the index whenever guideline documents change on disk.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go indexer.WatchGuidelines(watchCtx)

	// Setup Gin router
	router := gin.Default()

	// CORS middleware for the mobile front end
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "TBNow API",
			"version": "1.0.0",
		})
	})

	// API routes
	router.POST("/rag/query", ragController.QueryRAG)
	router.POST("/rag/ingest", ragController.IngestGuidelines)

	router.POST("/records", recordController.CreateRecord)
	router.GET("/records", recordController.ListRecords)
	router.GET("/records/:id", recordController.GetRecord)
	router.DELETE("/records/:id", recordController.DeleteRecord)
	router.POST("/records/:id/chat", recordController.QueryRecord)

	router.POST("/xray/analyze", xrayController.AnalyzeXray)

	log.Printf("TBNow backend server starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
