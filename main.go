package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/maze-race/api"
	"github.com/beka-birhanu/maze-race/config"
	"github.com/beka-birhanu/maze-race/logger"
	"github.com/beka-birhanu/maze-race/maze"
	"github.com/beka-birhanu/maze-race/service"
	"github.com/beka-birhanu/maze-race/service/i"
	"github.com/beka-birhanu/maze-race/store"
	"github.com/beka-birhanu/maze-race/web"
	"google.golang.org/grpc"
)

// Global variables for dependencies
var (
	grpcConnListener   net.Listener
	grpcServer         *grpc.Server
	httpServer         *http.Server
	resultStore        i.ResultStore
	gameSessionManager *service.GameSessionManager
	appLogger          logger.Logger
)

func initConfig() {
	c, err := config.Load()
	if err != nil {
		appLogger.Error(fmt.Sprintf("Loading config: %v", err))
		os.Exit(1)
	}
	config.Envs = c

	if err := logger.SetLevel(c.LogLevel); err != nil {
		appLogger.Warning(fmt.Sprintf("Unknown log level %q, keeping info", c.LogLevel))
	}
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)
}

func initResultStore() {
	if config.Envs.ResultsFile == "" {
		resultStore = store.NewMemory()
		appLogger.Info("Results kept in memory")
		return
	}
	resultStore = store.NewFS(config.Envs.ResultsFile)
	appLogger.Info(fmt.Sprintf("Results appended to %s", config.Envs.ResultsFile))
}

func initGameSessionManager() {
	gameLogger, err := logger.New("GAME-MANAGER", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating game manager logger: %v", err))
		os.Exit(1)
	}
	manager, err := service.NewGameSessionManager(
		&service.Config{
			MazeFactory:   maze.NewGenerator(config.Envs.MazeSeed).Generate,
			Store:         resultStore,
			Logger:        gameLogger,
			TickInterval:  config.Envs.TickInterval,
			OpponentDelay: config.Envs.OpponentDelay,
		},
	)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating game session manager: %v", err))
		os.Exit(1)
	}
	gameSessionManager = manager
	appLogger.Info("Game Session Manager initialized")
}

func initSessionController() {
	apiLogger, err := logger.New("GRPC", config.ColorBlue, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating gRPC logger: %v", err))
		os.Exit(1)
	}
	grpcServer = grpc.NewServer()
	err = api.RegisterGameSessionManager(grpcServer, gameSessionManager, apiLogger)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating and Registering session controller: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Session controller initialized")
}

func initHTTPServer() {
	webLogger, err := logger.New("HTTP", config.ColorPurple, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating HTTP logger: %v", err))
		os.Exit(1)
	}
	handler, err := web.NewServer(&web.Config{
		Manager:   gameSessionManager,
		Results:   resultStore,
		PublicURL: config.Envs.PublicURL,
		Logger:    webLogger,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating HTTP server: %v", err))
		os.Exit(1)
	}
	httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%v", config.Envs.ProxyIP, config.Envs.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	appLogger.Info("HTTP server initialized")
}

func main() {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)
	initConfig()
	initResultStore()
	initGameSessionManager()
	initSessionController()
	initHTTPServer()

	var err error
	addr := fmt.Sprintf("%s:%v", config.Envs.ProxyIP, config.Envs.GrpcPort)
	grpcConnListener, err = net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Listening tcp: %v", err))
		os.Exit(1)
	}
	defer func() {
		_ = grpcConnListener.Close()
	}()

	serveErr := make(chan error, 2)
	go func() {
		appLogger.Info(fmt.Sprintf("Serving gRPC at: %s", addr))
		serveErr <- grpcServer.Serve(grpcConnListener)
	}()
	go func() {
		appLogger.Info(fmt.Sprintf("Serving HTTP at: %s (public %s)", httpServer.Addr, config.Envs.PublicURL))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		appLogger.Info("Shutting down")
	case err := <-serveErr:
		appLogger.Error(fmt.Sprintf("Serving: %v", err))
	}

	// Stopping the games first ends open Watch streams and sockets.
	gameSessionManager.StopAll()
	appLogger.Info("All games stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warning(fmt.Sprintf("Shutting down HTTP server: %v", err))
	}
	grpcServer.GracefulStop()
}
