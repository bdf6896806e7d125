package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/builder"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const unexpectedMessage = "An unexpected error occurred! It has been reported."

// userFacing returns the message for errors the user caused, or false for
// errors that must be reported.
func userFacing(err error) (string, bool) {
	var invalidQuestion *builder.InvalidQuestionError
	switch {
	case services.IsUserError(err):
		return err.Error(), true
	case errors.As(err, &invalidQuestion),
		errors.Is(err, builder.ErrNotCreator),
		errors.Is(err, builder.ErrTooManyQuestions),
		errors.Is(err, builder.ErrQuestionNotFound),
		errors.Is(err, builder.ErrStepDone),
		errors.Is(err, builder.ErrClosed):
		return err.Error(), true
	case errors.Is(err, chat.ErrNotFound):
		return "That channel, user or message could not be found.", true
	}
	return "", false
}

func (b *Bot) fail(ctx context.Context, i *discordgo.InteractionCreate, err error, stack string) {
	if message, ok := userFacing(err); ok {
		log.Debug().Err(err).Str("interaction", describeInteraction(i)).Msg("Rejected interaction.")
		b.reply(i, message)
		return
	}

	log.Error().Err(err).Str("interaction", describeInteraction(i)).Msg("An error occurred when handling interaction...")
	b.reply(i, unexpectedMessage)
	b.report(ctx, i, err, stack)
}

// reply answers ephemerally, whether or not the interaction was already
// acknowledged.
func (b *Bot) reply(i *discordgo.InteractionCreate, message string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err == nil {
		return
	}
	if _, err := b.session.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: message,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to reply to interaction...")
	}
}

func (b *Bot) report(ctx context.Context, i *discordgo.InteractionCreate, err error, stack string) {
	detail := err.Error()
	if stack != "" {
		detail += "\n\n" + stack
	}

	member := toMember(i)
	msg := chat.Message{Embeds: []chat.Embed{{
		Title:       "Unexpected error",
		Description: fmt.Sprintf("```\n%s\n```", truncate(detail, 4000)),
		Color:       chat.ErrorColor,
		Fields: []chat.Field{
			{Name: "Interaction", Value: describeInteraction(i), Inline: true},
			{Name: "User", Value: fmt.Sprintf("%s (%s)", escapeMarkdown(member.Name), member.ID), Inline: true},
			{Name: "Guild", Value: fmt.Sprintf("`%s`", i.GuildID), Inline: true},
		},
		Timestamp: time.Now(),
	}}}

	if err := b.sendOperator(ctx, b.cfg.Channels.Error, msg); err != nil {
		log.Error().Err(err).Msg("Unable to report error to operators...")
	}
}

// sendOperator posts to an operator channel, or to the application owner
// when none is configured.
func (b *Bot) sendOperator(ctx context.Context, channelID string, msg chat.Message) error {
	if channelID != "" {
		_, err := b.platform.SendMessage(ctx, channelID, msg)
		return err
	}
	app, err := b.session.Application("@me")
	if err != nil {
		return err
	}
	if app.Owner == nil {
		return errors.New("application has no owner")
	}
	_, err = b.platform.SendDirect(ctx, app.Owner.ID, msg)
	return err
}

func describeInteraction(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
		return "/" + i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		return i.ModalSubmitData().CustomID
	default:
		return i.Type.String()
	}
}
