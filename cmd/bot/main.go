package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/rolewarden/rolewarden/internal/bot"
	"github.com/rolewarden/rolewarden/internal/discord"
	"github.com/rolewarden/rolewarden/internal/redis"
	"github.com/rolewarden/rolewarden/internal/setup"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"github.com/rolewarden/rolewarden/internal/worker/reconcile"
	"github.com/sourcegraph/conc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, true)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.CleanupApp()

	// Create bot instance
	discordBot, err := bot.New(app.Config.Discord.Token, app.DB, app.Logger)
	if err != nil {
		log.Printf("Failed to create bot: %v", err)
		return
	}

	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		log.Printf("Failed to create Redis client: %v", err)
		return
	}

	// The reconciliation loop shares the bot's rate-limited REST client.
	restClient := discordBot.Rest()
	engine := reconcile.NewEngine(
		reconcile.NewStore(app.DB),
		discord.NewOracle(restClient, app.Logger),
		discord.NewActuator(restClient, app.Logger),
		discord.NewMemberSource(restClient),
		&app.Config.Reconcile,
		app.Logger,
	)

	worker := reconcile.NewWorker(engine, statusClient, &app.Config.Reconcile, app.Logger)
	discordBot.SetWorker(worker)
	discordBot.SetMonitor(core.NewMonitor(statusClient, app.Logger))

	var wg conc.WaitGroup
	wg.Go(func() {
		worker.Start(ctx)
	})

	// Start the bot and connect to Discord
	if err := discordBot.Start(); err != nil {
		log.Printf("Failed to start bot: %v", err)
		stop()
		wg.Wait()

		return
	}

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	<-ctx.Done()

	// Cleanly close down the Discord session, then wait for the worker to
	// finish its current tick.
	discordBot.Close()
	wg.Wait()
}
