package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"nextuptv/internal/auth"
	"nextuptv/internal/catalog"
	"nextuptv/internal/library"
	"nextuptv/internal/movienight"
	"nextuptv/internal/resume"
	synchub "nextuptv/internal/sync"
	"nextuptv/pkg/database"
	"nextuptv/pkg/utils"
)

func main() {
	appCfg := utils.Load()

	dbCfg := database.DefaultConfig()
	if appCfg.DBSnapshot != "" {
		// ship a pre-synced catalog so first boot isn't an empty grid
		if err := database.BootstrapSnapshot(dbCfg, appCfg.DBSnapshot); err != nil {
			log.Printf("snapshot bootstrap skipped: %v", err)
		}
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// Optional: avoid “trusted all proxies” warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start the event feed first (so you notice binding errors early)
	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))
	tcpSrv := synchub.NewServer(appCfg.SyncAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          dbCfg.Path,
			"catalog_api": appCfg.APIBaseURL,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Catalog browse (public)
	catRepo := catalog.NewRepo(db)
	catHandler := catalog.NewHandler(catRepo)
	catHandler.RegisterRoutes(&router.RouterGroup)

	// Auth
	authCfg := appCfg.Auth()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.OperatorID,
			"username": claims.Username,
		})
	})

	// Sync triggers (protected)
	apiClient := movienightClient(appCfg)
	libRepo := library.NewRepo(apiClient, db, catRepo)
	libRepo.Hub = hub
	libHandler := library.NewHandler(libRepo)
	libHandler.RegisterRoutes(protected)

	// Resume feed (public read, protected ingest)
	resRepo := resume.NewRepo(db, catRepo)
	resHandler := resume.NewHandler(resRepo, hub)
	resHandler.RegisterRoutes(&router.RouterGroup, protected)

	httpSrv := &http.Server{
		Addr:    ":" + appCfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on :%s", appCfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}

func movienightClient(cfg utils.Config) *movienight.Client {
	c := movienight.NewClient(cfg.APIBaseURL, cfg.APIKey)
	c.Country = cfg.APICountry
	c.HTTP.Timeout = cfg.APITimeout
	return c
}
