package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BrunoLenon/veipecas2025/cache"
	"github.com/BrunoLenon/veipecas2025/messaging"
	"github.com/BrunoLenon/veipecas2025/publisher"
	"github.com/BrunoLenon/veipecas2025/routes"
	"github.com/BrunoLenon/veipecas2025/services"
	"github.com/BrunoLenon/veipecas2025/store"
)

func main() {
	log.Println("✅ Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	// Init storage
	st := initStore()

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	deps := routes.Deps{
		Store:    st,
		Carts:    services.NewCartService(st),
		Checkout: services.NewCheckoutService(st, services.RandomSequencer{}),
	}

	// Optional product cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rc, err := cache.NewRedisCache(addr, 5*time.Minute)
		if err != nil {
			log.Fatalf("❌ Redis connection failed: %v", err)
		}
		defer rc.Close()
		deps.Cache = rc
	}

	// Optional order.created publisher
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		mq, err := messaging.NewRabbitMQ(url)
		if err != nil {
			log.Fatalf("❌ RabbitMQ connection failed: %v", err)
		}
		defer mq.Close()

		pub, err := publisher.NewOrderPublisher(mq)
		if err != nil {
			log.Fatalf("❌ Publisher setup failed: %v", err)
		}
		deps.Publisher = pub
	}

	// Setup routes
	routes.SetupRoutes(r, deps)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server running on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// initStore connects to postgres and migrates the schema. Without any DB
// configuration it falls back to the in-memory store, which is enough for
// local development.
func initStore() store.Store {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && os.Getenv("DB_HOST") != "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	if dsn == "" {
		log.Println("⚠️ No database configured, using in-memory store")
		return store.NewMemoryStore()
	}

	// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
	// which the store maps to its collision errors.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("❌ DB connection failed: %v", err)
	}

	gs := store.NewGormStore(db)
	if err := gs.Migrate(); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}
	return gs
}
