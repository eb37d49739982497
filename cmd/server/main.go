package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notevault-server/internal/config"
	"notevault-server/internal/handler"
	"notevault-server/internal/middleware"
	"notevault-server/internal/repository"
	"notevault-server/internal/service"
	"notevault-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConns,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run()

	noteService := service.NewNoteService(store, wsManager)

	noteHandler := handler.NewNoteHandler(noteService)
	wsHandler := handler.NewWebSocketHandler(wsManager)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/notes", noteHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/notes", noteHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Update).Methods("PUT", "OPTIONS")
	api.HandleFunc("/notes/{id}", noteHandler.Delete).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/notes/{id}/versions", noteHandler.ListVersions).Methods("GET", "OPTIONS")
	api.HandleFunc("/notes/{id}/restore/{versionId}", noteHandler.Restore).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting NoteVault Server on %s (env: %s, storage: %s)", addr, cfg.Server.Env, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func buildStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return repository.NewMemoryStore(), nil

	case config.StorageDriverFile:
		return repository.NewFileStore(cfg.Storage.FilePath)

	case config.StorageDriverCouch:
		couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
			cfg.Storage.Couch.User,
			cfg.Storage.Couch.Password,
			cfg.Storage.Couch.Host,
			cfg.Storage.Couch.Port,
		)

		client, err := kivik.New("couch", couchURL)
		if err != nil {
			return nil, fmt.Errorf("connect to CouchDB: %w", err)
		}

		exists, err := client.DBExists(context.Background(), cfg.Storage.Couch.Name)
		if err != nil {
			return nil, fmt.Errorf("check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(context.Background(), cfg.Storage.Couch.Name); err != nil {
				return nil, fmt.Errorf("create database: %w", err)
			}
			log.Printf("Created database: %s", cfg.Storage.Couch.Name)
		}

		return repository.NewCouchStore(client, cfg.Storage.Couch.Name), nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"notevault-server"}`))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"NoteVault Server API","version":"1.0.0","endpoints":{"/api/notes":"GET, POST","/api/notes/{id}":"GET, PUT, DELETE","/api/notes/{id}/versions":"GET","/api/notes/{id}/restore/{versionId}":"POST","/ws":"GET (websocket)"}}`))
}
