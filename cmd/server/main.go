package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hfenton/property_search/internal/config"
	"github.com/hfenton/property_search/internal/es"
	"github.com/hfenton/property_search/internal/events"
	"github.com/hfenton/property_search/internal/handlers"
	"github.com/hfenton/property_search/internal/invite"
	"github.com/hfenton/property_search/internal/logging"
	mwauth "github.com/hfenton/property_search/internal/middleware/auth"
	"github.com/hfenton/property_search/internal/oauth"
	"github.com/hfenton/property_search/internal/service"
	"github.com/hfenton/property_search/internal/session"
	"github.com/hfenton/property_search/internal/tokens"
	httpserver "github.com/hfenton/property_search/internal/transport/http"
	loggingmw "github.com/hfenton/property_search/pkg/middleware/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LogLevel)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	prod := events.NewProducer([]string{configuration.KafkaAddress})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	tokenService := &tokens.Service{
		AccessSecret:  configuration.AccessTokenSecret,
		RefreshSecret: configuration.RefreshTokenSecret,
	}
	sessionStore := &session.Store{DB: db, Secret: configuration.SessionSecret}
	registry := &invite.Registry{DB: db}
	authService := &service.AuthService{DB: db, Tokens: tokenService, Invites: registry}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:        db,
		AuthChain: &mwauth.Chain{DB: db, Tokens: tokenService, Sessions: sessionStore},
		AuthHandler: &handlers.AuthHandler{
			Svc:      authService,
			Sessions: sessionStore,
			Google: oauth.NewGoogle(
				configuration.GoogleClientID,
				configuration.GoogleClientSecret,
				configuration.GoogleRedirectURL,
			),
			Producer: prod,
		},
		InviteHandler:   &handlers.InviteHandler{Registry: registry},
		PropertyHandler: &handlers.PropertyHandler{DB: db, Producer: prod, ES: esClient},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: es.PropertyIndex},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
