package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/database"
	"github.com/harborchat/harborchat/handlers"
	"github.com/harborchat/harborchat/models"
	"github.com/harborchat/harborchat/server"
	"github.com/harborchat/harborchat/services/authevents"
	"github.com/harborchat/harborchat/services/emailchange"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/harborchat/harborchat/services/loginnotify"
	"github.com/harborchat/harborchat/services/mail"
	"github.com/harborchat/harborchat/services/queue"
	"github.com/harborchat/harborchat/services/typing"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type App struct {
	fx     *fx.App
	logger *logging.Service
}

func New() *App {
	app := &App{}

	app.fx = fx.New(
		config.Module,
		logging.Module,
		fx.Provide(func() *database.ModelsOption {
			return database.WithModels(
				&models.Realm{},
				&models.User{},
				&emailchange.EmailChangeStatus{},
				&emailchange.Confirmation{},
			)
		}),
		database.Module,
		mail.Module,
		queue.Module,
		authevents.Module,
		emailchange.Module,
		loginnotify.Module,
		typing.Module,
		server.Module,
		handlers.Module,
		fx.WithLogger(func(logger *logging.Service) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Logger()}
		}),
		fx.Populate(&app.logger),
	)

	return app
}

func (a *App) Start() error {
	return a.fx.Start(context.Background())
}

func (a *App) Run() {
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	a.logger.Info("Received shutdown signal, stopping gracefully...")

	a.Stop()
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("Failed to stop application gracefully")
		} else {
			log.Printf("Failed to stop application gracefully: %v", err)
		}
	}
}
