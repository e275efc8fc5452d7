package main

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"todo-agent-backend/internal/auth"
	"todo-agent-backend/internal/chat"
	"todo-agent-backend/internal/config"
	"todo-agent-backend/internal/conversations"
	"todo-agent-backend/internal/db"
	"todo-agent-backend/internal/logger"
	"todo-agent-backend/internal/mcp"
	"todo-agent-backend/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zl.Sync()

	database, err := db.Connect(cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()
	zl.Info("connected to postgres",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	secret := []byte(cfg.Auth.JWTSecret)
	tokenTTL := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	taskSvc := tasks.NewService(database, zl)
	convSvc := conversations.NewService(database, zl)

	authHandler := auth.NewHandler(database, secret, tokenTTL, zl)
	taskHandler := tasks.NewHandler(taskSvc)
	convHandler := conversations.NewHandler(convSvc)
	chatHandler := chat.NewHandler(convSvc, taskSvc, cfg.Agent.ContextMessageLimit, zl)
	mcpHandler := mcp.NewHandler(taskSvc, zl)

	authMW := auth.NewMiddleware(secret)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// ----- AUTH API -----
	mux.HandleFunc("/auth/register", authHandler.Register)
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.HandleFunc("/auth/me", authMW.Wrap(authHandler.Me))

	// ----- TASKS API -----
	mux.HandleFunc("/tasks", authMW.Wrap(taskHandler.Collection))
	mux.HandleFunc("/tasks/", authMW.Wrap(taskHandler.Item))

	// ----- CONVERSATIONS API -----
	mux.HandleFunc("/conversations", authMW.Wrap(convHandler.Collection))
	mux.HandleFunc("/conversations/", authMW.Wrap(convHandler.Item))

	// ----- AGENT CHAT API -----
	mux.HandleFunc("/api/chat", authMW.Wrap(chatHandler.Message))

	// ----- MCP TOOL API -----
	mux.HandleFunc("/mcp/add_task", authMW.Wrap(mcpHandler.AddTask))
	mux.HandleFunc("/mcp/list_tasks", authMW.Wrap(mcpHandler.ListTasks))
	mux.HandleFunc("/mcp/update_task", authMW.Wrap(mcpHandler.UpdateTask))
	mux.HandleFunc("/mcp/complete_task", authMW.Wrap(mcpHandler.CompleteTask))
	mux.HandleFunc("/mcp/delete_task", authMW.Wrap(mcpHandler.DeleteTask))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(mux)

	addr := ":" + cfg.Server.Port
	zl.Info("api server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}
