package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bankline/backend/docs"
	"github.com/bankline/backend/internal/config"
	"github.com/bankline/backend/internal/database"
	"github.com/bankline/backend/internal/events"
	"github.com/bankline/backend/internal/handlers"
	mW "github.com/bankline/backend/internal/middleware"
	"github.com/bankline/backend/internal/services"
)

// @title Bankline Backend API
// @version 1.0
// @description Card-authenticated banking backend: withdrawals, balances, transaction history
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	config.Load()

	docs.SwaggerInfo.Host = "localhost:8080"

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := events.NewPublisher(viper.GetStringSlice("kafka.brokers"), viper.GetString("kafka.topic"))
	defer publisher.Close()

	ledgerService := services.NewLedgerService(db, publisher)
	historyService := services.NewHistoryService(db)
	accountService := services.NewAccountService(db)
	cardService := services.NewCardService(db)
	authService := services.NewCardAuthService(db, publisher)

	accountHandler := handlers.NewAccountHandler(ledgerService, historyService, accountService)
	authHandler := handlers.NewAuthHandler(authService)
	cardHandler := handlers.NewCardHandler(cardService)

	loginLimiter := mW.NewLoginRateLimiter(redisClient,
		viper.GetInt("login.rate_limit"),
		time.Duration(viper.GetInt("login.rate_window_seconds"))*time.Second)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.CreateAccount)
			r.Get("/{id}", accountHandler.GetAccount)
			r.Delete("/{id}", accountHandler.DeleteAccount)

			r.Post("/{id}/withdraw", accountHandler.Withdraw)
			r.Get("/{id}/balance", accountHandler.Balance)
			r.Get("/{id}/transactions", accountHandler.Transactions)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", cardHandler.CreateCard)
			r.Get("/{id}", cardHandler.GetCard)
			r.Put("/{id}", cardHandler.UpdateCard)
			r.Delete("/{id}", cardHandler.DeleteCard)
		})

		r.Route("/card-accounts", func(r chi.Router) {
			r.Post("/", cardHandler.CreateLink)
			r.Get("/", cardHandler.ListLinks)
			r.Delete("/", cardHandler.DeleteLink)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
