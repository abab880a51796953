package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"garage_door/internal/handlers"
	"garage_door/internal/logger"
	"garage_door/internal/notify"
	"garage_door/internal/repository"
	"garage_door/internal/server"
	"garage_door/internal/service"

	"github.com/spf13/viper"
)

const defaultSweepPeriod = 60 * time.Second

func main() {
	// load config.yml
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(db)
	hub := handlers.NewEventHub()
	notifier, closeNotifiers := buildNotifier(hub, log)
	defer closeNotifiers()

	services := service.NewService(repos, notifier, serviceConfig())
	apiHandler := handlers.NewHandler(services, hub, featureFlags(), log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// periodic sweep: escalate stale in-motion states and send open-door reminders
	go runSweeper(ctx, services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "garage.db")
		dbPath = "garage.db"
	}
	return repository.InitDB(dbPath)
}

func serviceConfig() service.Config {
	viper.SetDefault("door.too_long_seconds", 60)
	viper.SetDefault("door.min_reissue_seconds", 10)
	viper.SetDefault("door.command_timeout_seconds", 60)
	viper.SetDefault("door.reminder_after_seconds", 15*60)
	viper.SetDefault("auth.token_ttl", time.Hour)

	return service.Config{
		TooLongSeconds:        viper.GetInt64("door.too_long_seconds"),
		MinReissueSeconds:     viper.GetInt64("door.min_reissue_seconds"),
		CommandTimeoutSeconds: viper.GetInt64("door.command_timeout_seconds"),
		ReminderAfterSeconds:  viper.GetInt64("door.reminder_after_seconds"),

		SigningKey:    viper.GetString("auth.signing_key"),
		TokenTTL:      viper.GetDuration("auth.token_ttl"),
		PushKey:       viper.GetString("auth.push_key"),
		AllowedEmails: viper.GetStringSlice("auth.allowed_emails"),
	}
}

func featureFlags() handlers.FeatureFlags {
	viper.SetDefault("features.remote_button", true)
	viper.SetDefault("features.snooze", true)
	return handlers.FeatureFlags{
		RemoteButtonEnabled: viper.GetBool("features.remote_button"),
		SnoozeEnabled:       viper.GetBool("features.snooze"),
	}
}

// buildNotifier assembles the notifier fan-out: the in-process WebSocket hub
// always runs; MQTT and the HTTP push gateway join when configured. Returns a
// close function for notifiers holding connections.
func buildNotifier(hub *handlers.EventHub, log *logger.Logger) (notify.Notifier, func()) {
	notifiers := notify.Multi{hub}
	closeFn := func() {}

	if viper.GetBool("notify.mqtt.enabled") {
		pub, err := notify.NewMQTTPublisher(
			viper.GetString("notify.mqtt.broker"),
			viper.GetString("notify.mqtt.client_id"),
			log,
		)
		if err != nil {
			log.Fatalw("failed to connect mqtt", "err", err)
		}
		notifiers = append(notifiers, pub)
		closeFn = pub.Close
	}

	if viper.GetBool("notify.push_gateway.enabled") {
		notifiers = append(notifiers, notify.NewPushGatewayPublisher(
			viper.GetString("notify.push_gateway.endpoint"),
			viper.GetString("notify.push_gateway.server_key"),
			log,
		))
	}

	return notifiers, closeFn
}

// runSweeper periodically re-evaluates stored events against elapsed time and
// fires open-door reminders.
func runSweeper(ctx context.Context, services *service.Service, log *logger.Logger) {
	period := viper.GetDuration("door.sweep_period")
	if period <= 0 {
		period = defaultSweepPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := services.CheckIn.Sweep(ctx); err != nil {
				log.Errorw("sweep failed", "err", err)
			}
			if err := services.Reminders.CheckOpenDoors(ctx); err != nil {
				log.Errorw("reminder check failed", "err", err)
			}
		}
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
