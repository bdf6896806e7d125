package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/builder"
	"git.solsynth.dev/hypernet/forms/pkg/internal/cache"
	"git.solsynth.dev/hypernet/forms/pkg/internal/config"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Services is everything the bot drives.
type Services struct {
	Store     *services.Store
	Publisher *services.Publisher
	Collector *services.Collector
	Closer    *services.Closer
	Sweeper   *services.Sweeper
	Cache     *cache.Store
}

type Bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	platform *Platform
	svc      Services
	cooldown *cache.Cooldown

	drafts *builder.Registry[*builder.Questions]
	grants *builder.Registry[*builder.Permissions]

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(cfg *config.Config, session *discordgo.Session, platform *Platform, svc Services) *Bot {
	return &Bot{
		cfg:      cfg,
		session:  session,
		platform: platform,
		svc:      svc,
		cooldown: cache.NewCooldown(svc.Cache, "form", cfg.Cooldown.Form),
		drafts:   builder.NewRegistry[*builder.Questions](),
		grants:   builder.NewRegistry[*builder.Permissions](),
	}
}

// Setup connects to the gateway, registers commands, rehydrates live forms
// and starts the expiry sweeper.
func (b *Bot) Setup(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(context.Background())

	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.String()).Int("guilds", len(r.Guilds)).Msg("Connected to Discord.")
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	select {
	case <-b.platform.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("gateway did not become ready")
	}

	if err := b.registerCommands(); err != nil {
		return err
	}
	if _, err := b.svc.Publisher.Rehydrate(ctx); err != nil {
		return fmt.Errorf("rehydrate forms: %w", err)
	}
	if err := b.svc.Sweeper.Start(b.ctx); err != nil {
		return err
	}
	return nil
}

// Teardown stops the sweeper and disconnects.
func (b *Bot) Teardown() {
	if b.cancel != nil {
		b.cancel()
	}
	b.svc.Sweeper.Stop()
	if err := b.session.Close(); err != nil {
		log.Warn().Err(err).Msg("An error occurred when closing the gateway...")
	}
}

func (b *Bot) registerCommands() error {
	commands, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.Discord.Guild, commandDefinitions())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	log.Info().Int("count", len(commands)).Str("guild", b.cfg.Discord.Guild).Msg("Registered application commands.")
	return nil
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(b.ctx, 15*time.Minute)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.fail(ctx, i, fmt.Errorf("panic: %v", r), string(debug.Stack()))
		}
	}()

	if err := b.dispatch(ctx, i); err != nil {
		b.fail(ctx, i, err, "")
	}
}

func (b *Bot) dispatch(ctx context.Context, i *discordgo.InteractionCreate) error {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		handler, ok := b.commands()[i.ApplicationCommandData().Name]
		if !ok {
			return fmt.Errorf("unknown command %q", i.ApplicationCommandData().Name)
		}
		return handler(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		return b.autocomplete(ctx, i)
	case discordgo.InteractionMessageComponent:
		return b.route(ctx, i, i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		return b.route(ctx, i, i.ModalSubmitData().CustomID)
	}
	return nil
}

func (b *Bot) route(ctx context.Context, i *discordgo.InteractionCreate, id string) error {
	scope, key, action, ok := parseCustomID(id)
	if !ok {
		return fmt.Errorf("malformed custom id %q", id)
	}

	switch scope {
	case scopeForm:
		return b.handleEntry(ctx, i, key, action)
	case scopeBuilder:
		return b.handleBuilder(ctx, i, key, action)
	case scopeGrants:
		return b.handleGrants(ctx, i, key, action)
	case scopeReport:
		return b.handleReportSubmit(ctx, i)
	default:
		return fmt.Errorf("unknown custom id scope %q", scope)
	}
}
