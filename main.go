package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/sync-service/auth"
	"taskboard/sync-service/handlers"
	"taskboard/sync-service/logging"
	"taskboard/sync-service/models"
	"taskboard/sync-service/services"
	"taskboard/sync-service/store"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Sync Service...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: JWT_SECRET is not set in the environment variables.")
	}

	docStore := buildStore()

	jwtService := auth.NewJWTService(jwtSecret)
	provider := auth.NewProvider(docStore, jwtService)
	resolver := auth.NewResolver(docStore)

	bootstrapAdmin(docStore, provider)

	taskService := services.NewTaskService(docStore)
	projectService := services.NewProjectService(docStore)
	userService := services.NewUserService(docStore, provider)

	registry := handlers.NewSessionRegistry(provider)
	loginHandler := &handlers.LoginHandler{
		Provider: provider,
		Resolver: resolver,
		Registry: registry,
		Store:    docStore,
	}
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	userHandler := handlers.NewUserHandler(userService)
	streamHandler := &handlers.StreamHandler{}

	r := mux.NewRouter()

	r.HandleFunc("/api/login", loginHandler.Login).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(registry.Middleware)
	api.HandleFunc("/logout", loginHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/stream", streamHandler.Stream).Methods(http.MethodGet)

	api.HandleFunc("/projects", projectHandler.GetProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", projectHandler.CreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}/name", projectHandler.RenameProject).Methods(http.MethodPut)
	api.HandleFunc("/projects/{projectID}/members", projectHandler.AssignMembers).Methods(http.MethodPut)
	api.HandleFunc("/projects/{projectID}/view", projectHandler.ViewProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}", projectHandler.DeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/view", projectHandler.CloseProjectView).Methods(http.MethodDelete)

	api.HandleFunc("/tasks", taskHandler.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/status", taskHandler.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}/text", taskHandler.UpdateText).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", taskHandler.DeleteTask).Methods(http.MethodDelete)

	api.HandleFunc("/users", userHandler.GetUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", userHandler.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/role", userHandler.SetRole).Methods(http.MethodPatch)
	api.HandleFunc("/users/{userID}", userHandler.DeleteUser).Methods(http.MethodDelete)

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: SERVER_PORT is not set in the environment variables.")
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}

func buildStore() store.DocumentStore {
	if os.Getenv("DB_IN_MEMORY") == "true" {
		logging.Logger.Info("Event ID: DB_IN_MEMORY, Description: Using in-memory document store.")
		return store.NewMemoryStore()
	}

	mongoURI := os.Getenv("MONGO_URI")
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoURI == "" || mongoDBName == "" {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: MONGO_URI or MONGO_DB_NAME is not set in the environment variables.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	storeBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "DocumentStoreCB",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return store.NewMongoStore(client.Database(mongoDBName), storeBreaker)
}

// bootstrapAdmin seeds the first admin account when the directory is empty,
// so a fresh deployment has a principal that can provision everyone else.
func bootstrapAdmin(docStore store.DocumentStore, provider *auth.Provider) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := docStore.Find(ctx, store.Query{Collection: "users"})
	if err != nil {
		logging.Logger.Fatalf("Event ID: BOOTSTRAP_FAILED, Description: Could not inspect user directory: %v", err)
	}
	if len(existing) > 0 {
		return
	}

	id, err := provider.ProvisionWithPassword(ctx, adminEmail, adminPassword)
	if err != nil {
		logging.Logger.Fatalf("Event ID: BOOTSTRAP_FAILED, Description: Could not provision admin credential: %v", err)
	}

	fields := store.Fields{
		"username":  "admin",
		"email":     adminEmail,
		"role":      string(models.RoleAdmin),
		"createdAt": store.ServerTime(),
	}
	if err := docStore.Set(ctx, "users", id, fields, false); err != nil {
		logging.Logger.Fatalf("Event ID: BOOTSTRAP_FAILED, Description: Could not write admin directory record: %v", err)
	}
	logging.Logger.Infof("Event ID: ADMIN_BOOTSTRAPPED, Description: Seeded admin account %s", adminEmail)
}
