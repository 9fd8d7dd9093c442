// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"TodoGatewayProject/TodoGateway/auth"
	"TodoGatewayProject/TodoGateway/prompts"
	"TodoGatewayProject/TodoGateway/store"
	"TodoGatewayProject/TodoGateway/tools"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	host := os.Getenv("HOST")
	port := os.Getenv("PORT")
	if host == "" {
		host = "0.0.0.0"
	}
	if port == "" {
		port = "8080"
	}

	config, err := auth.LoadConfigFromEnv()
	if err != nil {
		logger.Fatal("failed to load gateway config", zap.Error(err))
	}
	if err := config.Validate(); err != nil {
		logger.Fatal("invalid gateway config", zap.Error(err))
	}

	runServer(fmt.Sprintf("%s:%s", host, port), config, logger)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		// Allow CORS for the MCP Inspector
		if origin == "http://localhost:6277" || origin == "http://localhost:6274" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, mcp-protocol-version")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// newRouter builds the gateway's full HTTP surface. Separated from
// runServer so tests can drive it with httptest.
func newRouter(config *auth.Config, logger *zap.Logger, flows *auth.FlowStore, mcpHandler http.Handler) http.Handler {
	clientStorage := auth.NewInMemoryClientStorage()
	jwksCache := auth.NewJWKSCache(nil)
	validator := auth.NewTokenValidator(config, jwksCache, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingHandler(logger))
	r.Use(corsMiddleware)

	// Public endpoints
	r.Get("/health", healthCheckHandler)
	r.Method(http.MethodGet, "/.well-known/oauth-protected-resource",
		auth.NewProtectedResourceMetadataHandler(config))
	r.Method(http.MethodGet, "/.well-known/oauth-authorization-server",
		auth.NewAuthServerMetadataHandler(config))
	// Alias for OpenID Connect discovery (VS Code compatibility)
	r.Method(http.MethodGet, "/.well-known/openid-configuration",
		auth.NewAuthServerMetadataHandler(config))

	// OAuth endpoints
	r.Method(http.MethodPost, "/register", auth.NewRegistrationHandler(config, clientStorage, logger))
	r.Method(http.MethodGet, "/authorize", auth.NewAuthorizationHandler(config, clientStorage, flows, logger))
	r.Method(http.MethodGet, "/auth/callback", auth.NewCallbackHandler(config, flows, logger))
	r.Method(http.MethodPost, "/token", auth.NewTokenEndpointHandler(config, flows, logger))
	r.Method(http.MethodPost, "/revoke", auth.NewRevocationHandler())

	// Protected MCP endpoint. POST carries tool calls and requires a valid
	// token; GET opens SSE streams whose session was authenticated at POST
	// time, so it runs permissive.
	r.With(validator.RequireAuth()).Post("/mcp", mcpHandler.ServeHTTP)
	r.With(validator.OptionalAuth()).Get("/mcp", mcpHandler.ServeHTTP)

	return r
}

func runServer(addr string, config *auth.Config, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flows := auth.NewFlowStore()
	flows.StartSweeper(ctx, logger)

	userData := store.NewInMemoryUserDataStore()
	obo := auth.NewOBOExchanger(config, logger)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "todo-gateway",
		Version: "1.0.0",
	}, nil)

	tools.RegisterAll(server, logger,
		tools.NewAddTodo(userData),
		tools.NewListTodos(userData),
		tools.NewCompleteTodo(userData),
		tools.NewDeleteTodo(userData),
		tools.NewGetMyProfile(obo, os.Getenv("GRAPH_BASE_URL")),
	)
	prompts.RegisterAll(server, logger)

	// Sessions are needed for GET requests (SSE streaming)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		SessionTimeout: 30 * time.Minute,
	})

	router := newRouter(config, logger, flows, mcpHandler)

	logger.Info("MCP gateway listening",
		zap.String("addr", addr),
		zap.String("base_url", config.BaseURL),
		zap.String("issuer", config.GetIssuer()))

	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
