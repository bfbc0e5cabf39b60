package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lirobabyxoxo/CapitaoCP/internal/bot"
	"github.com/lirobabyxoxo/CapitaoCP/internal/config"
	"github.com/lirobabyxoxo/CapitaoCP/internal/handler"
	"github.com/lirobabyxoxo/CapitaoCP/internal/logger"
	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/service"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize storage (MySQL when enabled, in-memory otherwise)
	repo, err := storage.NewRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	services := service.NewServices(cfg, repo)

	// Initialize bot with configuration
	discordBot, err := bot.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	// Attach gateway event handlers before opening the connection
	h := handler.Initialize(cfg, services)
	h.Register(discordBot.Session)

	if err := discordBot.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}

	if err := discordBot.DeployCommands(handler.Commands()); err != nil {
		log.Fatalf("Failed to deploy commands: %v", err)
	}

	// Expired mutes are swept periodically; the reversal lifts the
	// Discord timeout that the mute applied
	sweeper := service.NewSweeper(services.Mutes, cfg.Moderation.SweepIntervalDuration(), func(m *models.Mute) error {
		return discordBot.RemoveTimeout(m.GuildID, m.UserID)
	})
	sweeper.Start()

	log.Println("Bot is running, press Ctrl+C to exit")

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	sweeper.Stop()
	discordBot.Stop()

	log.Println("Bot gracefully stopped")
}
