package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkg "git.solsynth.dev/hypernet/forms/pkg/internal"
	"git.solsynth.dev/hypernet/forms/pkg/internal/cache"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/config"
	"git.solsynth.dev/hypernet/forms/pkg/internal/database"
	"git.solsynth.dev/hypernet/forms/pkg/internal/discord"
	"git.solsynth.dev/hypernet/forms/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/forms/pkg/internal/http"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

type flags struct {
	config string
	debug  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running forms...")
	}
}

func rootCmd() *cobra.Command {
	opts := &flags{}

	cmd := &cobra.Command{
		Use:           "forms",
		Short:         "Discord bot for building, taking and collecting forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "Settings file path (defaults to ./settings.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging and SQL tracing")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect(opts)
			if err != nil {
				return err
			}
			defer closeDatabase(db)
			log.Info().Str("driver", cfg.Database.Driver).Msg("Database migrated.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Finish every expired form once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepOnce(cmd.Context(), opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("forms v%s\n", pkg.AppVersion)
		},
	})

	return cmd
}

func banner() {
	fmt.Println(color.YellowString(" _____\n|  ___|__  _ __ _ __ ___  ___\n| |_ / _ \\| '__| '_ ` _ \\/ __|\n|  _| (_) | |  | | | | | \\__ \\\n|_|  \\___/|_|  |_| |_| |_|___/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Hypernet.Forms"), pkg.AppVersion)
	fmt.Printf("Forms, surveys and polls for Discord servers\n")
	color.HiBlack("=====================================================\n")
}

// connect loads settings and opens a migrated database.
func connect(opts *flags) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewGorm(cfg.Database, opts.debug)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigration(db); err != nil {
		closeDatabase(db)
		return nil, nil, fmt.Errorf("run migration: %w", err)
	}
	return cfg, db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func buildServices(cfg *config.Config, db *gorm.DB, platform chat.Platform, store *cache.Store) discord.Services {
	forms := services.NewStore(db)
	publisher := services.NewPublisher(forms, platform)
	closer := services.NewCloser(forms, platform, publisher, services.NewChartRenderer(cfg.Charts.Workers))
	return discord.Services{
		Store:     forms,
		Publisher: publisher,
		Collector: services.NewCollector(forms, platform),
		Closer:    closer,
		Sweeper:   services.NewSweeper(forms, platform, closer, cfg.Sweeper.Interval),
		Cache:     store,
	}
}

func run(ctx context.Context, opts *flags) error {
	banner()

	cfg, db, err := connect(opts)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	store, err := cache.New()
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	platform := discord.NewPlatform(session)
	svc := buildServices(cfg, db, cache.WrapPlatform(platform, store), store)

	health := grpc.NewGrpc(cfg.GRPC.Bind)
	health.Watch(ctx, platform.Ready())
	go func() {
		if err := health.Listen(); err != nil {
			log.Error().Err(err).Msg("An error occurred when serving grpc...")
		}
	}()
	defer health.Stop()

	server := http.NewServer(cfg.HTTP, svc.Store, svc.Closer)
	go server.Listen()
	defer func() {
		if err := server.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("An error occurred when shutting down http server...")
		}
	}()

	bot := discord.NewBot(cfg, session, platform, svc)
	if err := bot.Setup(ctx); err != nil {
		return err
	}
	defer bot.Teardown()

	log.Info().Str("http", cfg.HTTP.Bind).Str("grpc", cfg.GRPC.Bind).Msg("Forms is up and running.")
	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	return nil
}

// sweepOnce connects to the gateway long enough to close every expired form.
func sweepOnce(ctx context.Context, opts *flags) error {
	cfg, db, err := connect(opts)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	platform := discord.NewPlatform(session)
	if err := session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer session.Close()

	select {
	case <-platform.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("gateway did not become ready")
	}

	store, err := cache.New()
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	svc := buildServices(cfg, db, cache.WrapPlatform(platform, store), store)

	count, err := svc.Sweeper.Sweep(ctx)
	svc.Sweeper.Wait()
	if err != nil {
		return err
	}
	log.Info().Int("count", count).Msg("Swept expired forms.")
	return nil
}
