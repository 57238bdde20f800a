package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cf_solved_bot/internal/app"
	"cf_solved_bot/internal/domain/chat"
	cfclient "cf_solved_bot/internal/infra/codeforces"
	"cf_solved_bot/internal/infra/config"
	idb "cf_solved_bot/internal/infra/database"
	"cf_solved_bot/internal/infra/discord"
	"cf_solved_bot/internal/infra/httpapi"
	"cf_solved_bot/internal/infra/logger"
	"cf_solved_bot/internal/infra/scheduler"
	"cf_solved_bot/internal/infra/telegram"
)

func main() {
	startedAt := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithField("environment", cfg.Environment).
		WithField("monitor_enabled", cfg.MonitorEnabled()).
		WithField("poll_interval", cfg.PollInterval.String()).
		Info("Configuration loaded")

	// Initialize Database Connection
	dbCtx, cancelDB := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := idb.NewPostgresConnection(dbCtx, cfg.DatabaseURL, idb.DefaultPool)
	if err != nil {
		cancelDB()
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	err = idb.EnsureSchema(dbCtx, db)
	cancelDB()
	if err != nil {
		db.Close()
		mainLogger.WithError(err).Fatal("Could not apply database schema")
	}
	mainLogger.Info("Database connection established successfully.")

	memberRepo := idb.NewPostgresMemberRepository(db)
	cf := cfclient.NewClient(cfg.CodeforcesBaseURL, cfg.CodeforcesTimeout, cfg.CodeforcesInterval)

	session, err := discord.NewSession(cfg.DiscordToken, logger.Component("discord"))
	if err != nil {
		db.Close()
		mainLogger.WithError(err).Fatal("Could not create Discord session")
	}

	// Services
	loc := app.FixedZone(cfg.ReportUTCOffsetHours)
	reportService := app.NewReportService(memberRepo, cf, loc, logger.Component("report"))
	handleService := app.NewHandleService(memberRepo, cf)

	var (
		monitorService *app.MonitorService
		monitorSched   *scheduler.MonitorScheduler
		statusServer   *httpapi.Server
		shutdownOnce   sync.Once
	)

	shutdown := func(code int) {
		shutdownOnce.Do(func() {
			mainLogger.WithField("exit_code", code).Info("Shutting down application...")
			if monitorSched != nil {
				monitorSched.Stop()
			}
			if statusServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := statusServer.Shutdown(ctx); err != nil {
					mainLogger.WithError(err).Warn("Status server did not shut down cleanly")
				}
				cancel()
			}
			if err := session.Close(); err != nil {
				mainLogger.WithError(err).Warn("Discord session did not close cleanly")
			}
			if err := db.Close(); err != nil {
				mainLogger.WithError(err).Warn("Database did not close cleanly")
			}
			mainLogger.Info("Application shut down gracefully.")
			os.Exit(code)
		})
	}
	metaService := app.NewMetaService(shutdown)

	if cfg.MonitorEnabled() {
		var notifier chat.Notifier = discord.NewSolvedNotifier(session, cfg.SolvedChannelID, cf.BaseURL())
		if cfg.TelegramMirrorEnabled() {
			tg, err := telegram.NewTelebotAdapter(cfg.TelegramToken)
			if err != nil {
				mainLogger.WithError(err).Warn("Telegram mirror disabled")
			} else {
				mirror := telegram.NewMirrorNotifier(tg, cfg.TelegramChatID, cf.BaseURL())
				notifier = app.NewFanOutNotifier(notifier, logger.Component("notifier"), mirror)
				mainLogger.WithField("chat_id", cfg.TelegramChatID).Info("Telegram mirror enabled")
			}
		}
		monitorService = app.NewMonitorService(memberRepo, cf, notifier, logger.Component("monitor"))
		monitorSched = scheduler.NewMonitorScheduler(monitorService, session.GuildIDs, logger.Component("scheduler"), cfg.PollInterval)
	} else {
		mainLogger.Info("SOLVED_CHANNEL_ID not set, polling monitor disabled")
	}

	// Command router
	router := discord.NewRouter(cfg.CommandPrefix, discord.Permissions{
		OwnerID:   cfg.BotOwnerID,
		AdminRole: cfg.AdminRole,
		RoleName:  session.RoleName,
	}, logger.Component("router"))
	(&discord.Commands{
		Prefix:   cfg.CommandPrefix,
		ZoneName: loc.String(),
		Reports:  reportService,
		Handles:  handleService,
		Meta:     metaService,
		Gateway:  session,
	}).Register(router)
	session.AddHandler(router.OnMessageCreate)

	if err := session.Open(); err != nil {
		db.Close()
		mainLogger.WithError(err).Fatal("Could not open Discord session")
	}

	if monitorSched != nil {
		// The first cycle needs the guild list from READY.
		go func() {
			<-session.Ready()
			if err := monitorSched.Start(); err != nil {
				mainLogger.WithError(err).Error("Could not start monitor scheduler")
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		deps := httpapi.StatusDeps{StartedAt: startedAt, Guilds: session.GuildIDs}
		if monitorService != nil {
			deps.Cycles = monitorService
		}
		statusServer = httpapi.NewServer(cfg.HTTPAddr, deps, logger.Component("http"))
		statusServer.Start()
	}

	mainLogger.Info("Application setup complete. Bot is running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(0)
}
