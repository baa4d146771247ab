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

	"github.com/toolbridge/toolbridge/pkg/apicall"
	"github.com/toolbridge/toolbridge/pkg/auth"
	"github.com/toolbridge/toolbridge/pkg/database"
	"github.com/toolbridge/toolbridge/pkg/loader"
	"github.com/toolbridge/toolbridge/pkg/server"
	"github.com/toolbridge/toolbridge/pkg/services"
)

func main() {
	config, err := server.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	config.LogConfiguration()

	authState := auth.NewStateManager()
	resolver := auth.NewResolver(nil, nil)
	executor := apicall.NewExecutor(nil, resolver)

	var specService *services.SpecService
	if config.DatabaseMode {
		if err := database.InitializeDatabase(); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()
		specService = services.NewSpecService(database.DB)
	}

	specLoader := loader.NewSpecLoader(specService, authState)

	ctx := context.Background()
	var loaded []*loader.LoadedSpec
	if config.DatabaseMode {
		loaded, err = specLoader.LoadFromDatabase(ctx)
	} else {
		loaded, err = specLoader.LoadFromFiles(ctx, config.SpecFiles)
	}
	if err != nil {
		log.Fatalf("Failed to load API specs: %v", err)
	}
	for _, spec := range loaded {
		log.Printf("Loaded API %q with %d operations", spec.Endpoint, len(spec.Operations))
	}

	mux := buildMux(executor, specLoader, specService, authState)
	srv := &http.Server{
		Addr:    config.HTTPAddr,
		Handler: server.RequestIDMiddleware(mux),
	}

	if err := startServerWithGracefulShutdown(srv); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildMux assembles the HTTP surface: the tool endpoints, spec management
// when a database is attached, and the operational endpoints.
func buildMux(executor *apicall.Executor, specLoader *loader.SpecLoader, specService *services.SpecService, authState *auth.StateManager) *http.ServeMux {
	lookup := func(endpoint string) (*server.SpecView, bool) {
		spec, ok := specLoader.Get(endpoint)
		if !ok {
			return nil, false
		}
		return specView(spec), true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/operations", server.CORSMiddleware(server.HandleOperations(lookup)))
	mux.HandleFunc("/template", server.CORSMiddleware(server.HandleTemplate(lookup)))
	mux.HandleFunc("/call", server.CORSMiddleware(server.HandleCall(executor, lookup, authState)))
	mux.HandleFunc("/reload", server.HandleReload(
		func() ([]string, error) {
			return specLoader.Reload(context.Background())
		},
		func(endpoint string) error {
			return specLoader.ReloadEndpoint(context.Background(), endpoint)
		},
	))

	if specService != nil {
		mux.HandleFunc("/specs", server.CORSMiddleware(server.HandleSpecs(specService)))
		mux.HandleFunc("/specs/", server.CORSMiddleware(server.HandleSpecByID(specService)))
	}

	return mux
}

func specView(spec *loader.LoadedSpec) *server.SpecView {
	view := &server.SpecView{
		Endpoint:   spec.Endpoint,
		Doc:        spec.Doc,
		Operations: spec.Operations,
	}
	if spec.Doc != nil {
		if spec.Doc.Info != nil {
			view.Title = spec.Doc.Info.Title
		}
		if len(spec.Doc.Servers) > 0 {
			view.BaseURL = spec.Doc.Servers[0].URL
		}
	}
	return view
}

// startServerWithGracefulShutdown runs the server until SIGINT/SIGTERM, then
// drains in-flight requests before returning.
func startServerWithGracefulShutdown(srv *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %v", err)
	case sig := <-quit:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %v", err)
		}
		log.Printf("Server shut down gracefully")
		return nil
	}
}
