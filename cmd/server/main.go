package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bookshelf-service/internal/api"
	"bookshelf-service/internal/events"
	"bookshelf-service/internal/model"
	"bookshelf-service/internal/repository"
	"bookshelf-service/internal/service"
	"bookshelf-service/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, reading from environment variables")
	}

	api.SetupGlobalLogger("bookshelf-service")

	shutdownTracer, err := tracing.InitTracerProvider("bookshelf-service")
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	client, db := connectMongo()
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		cancel()
		log.Fatalf("Failed to create indexes: %v", err)
	}
	cancel()

	publisher := connectPublisher()

	userRepo := repository.NewMongoUserRepository(db)
	bookRepo := repository.NewMongoBookRepository(db)

	authService := service.NewAuthService(userRepo, publisher)
	bookService := service.NewBookService(bookRepo, userRepo, publisher)

	authHandler := api.NewAuthHandler(authService)
	bookHandler := api.NewBookHandler(bookService)

	app := fiber.New()
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "bookshelf-service"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authed := api.AuthMiddleware()
	admin := api.RequireRole(model.RoleAdmin)

	authRoutes := app.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/users", authed, admin, authHandler.ListUsers)
	authRoutes.Get("/me", authed, authHandler.GetMe)
	authRoutes.Patch("/me", authed, authHandler.UpdateMe)
	authRoutes.Delete("/me", authed, authHandler.DeleteMe)
	authRoutes.Get("/user/:uuid", authed, admin, authHandler.GetUser)
	authRoutes.Patch("/user/:uuid", authed, admin, authHandler.UpdateUser)
	authRoutes.Delete("/user/:uuid", authed, admin, authHandler.DeleteUser)

	bookRoutes := app.Group("/book", authed)
	bookRoutes.Post("/post", bookHandler.Create)
	bookRoutes.Get("/", admin, bookHandler.ListAll)
	bookRoutes.Get("/me", bookHandler.ListMine)
	bookRoutes.Get("/me/:uuid", bookHandler.GetMine)
	bookRoutes.Patch("/user/:uuid", bookHandler.UpdateMine)
	bookRoutes.Delete("/user/:uuid", bookHandler.DeleteMine)
	bookRoutes.Get("/:uuid", admin, bookHandler.GetAny)
	bookRoutes.Patch("/:uuid", admin, bookHandler.UpdateAny)
	bookRoutes.Delete("/:uuid", admin, bookHandler.DeleteAny)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		log.Printf("Listening bookshelf-service on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

func connectMongo() (*mongo.Client, *mongo.Database) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "bookshelf"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Successfully connected to MongoDB.")

	return client, client.Database(dbName)
}

func connectPublisher() events.EventPublisher {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		log.Println("NATS_URL not set, lifecycle events disabled")
		return events.NewNoopPublisher()
	}

	publisher, err := events.NewNatsPublisher(natsURL)
	if err != nil {
		log.Printf("WARNING: Failed to connect to NATS: %v", err)
		// Keep serving without events, NATS may not be ready
		return events.NewNoopPublisher()
	}
	log.Println("Successfully connected to NATS.")

	return publisher
}
