package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"bankapp/api"
	"bankapp/auth"
	"bankapp/ledger"
	"bankapp/memstore"
	"bankapp/postgres"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env if present; in production the variables come from the system
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env variables")
	}

	store, err := openStore()
	if err != nil {
		log.Fatal(err)
	}

	hasher := auth.NewBcryptHasher()
	service := ledger.NewService(store, hasher)

	authEnv := &auth.Env{
		Service: service,
		Hasher:  hasher,
		Tokens:  auth.NewTokens([]byte(getEnv("JWT_KEY", "dev_only_key"))),
	}
	apiEnv := &api.Env{Service: service}

	rateLimiter := auth.NewRateLimiter()

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Welcome to the Banking System!")
	})

	// Auth routes
	mux.Handle("/signup", http.HandlerFunc(authEnv.SignupHandler))
	mux.Handle("/login", rateLimiter.Middleware(http.HandlerFunc(authEnv.LoginHandler)))

	// Ledger routes
	mux.Handle("/account", authEnv.Middleware(http.HandlerFunc(apiEnv.AccountHandler)))
	mux.Handle("/deposit", authEnv.Middleware(http.HandlerFunc(apiEnv.DepositHandler)))
	mux.Handle("/withdraw", authEnv.Middleware(http.HandlerFunc(apiEnv.WithdrawHandler)))
	mux.Handle("/transfer", authEnv.Middleware(http.HandlerFunc(apiEnv.TransferHandler)))
	mux.Handle("/transactions", authEnv.Middleware(http.HandlerFunc(apiEnv.HistoryHandler)))

	addr := ":" + getEnv("PORT", "8080")
	log.Println("Starting server on " + addr)
	if err := http.ListenAndServe(addr, auth.Logger(mux)); err != nil {
		log.Fatal(err)
	}
}

// openStore picks the persistence backend: Postgres by default, in-memory
// when STORE=memory (development and tests only, state is lost on exit).
func openStore() (ledger.Store, error) {
	if getEnv("STORE", "postgres") == "memory" {
		log.Println("Using in-memory store")
		return memstore.New(), nil
	}

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s "+
		"password=%s dbname=%s sslmode=disable",
		getEnv("DATABASE_HOST", "localhost"), getEnv("DATABASE_PORT", "5432"),
		os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD"), os.Getenv("POSTGRES_DB"))

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	log.Println("Successfully connected to the database")

	store := postgres.NewStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
