package discord

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const (
	scopeReport  = "report"
	reportBugKey = "bug"
)

type commandHelp struct {
	Name        string
	Usage       string
	Description string
}

var helpEntries = []commandHelp{
	{Name: "form", Usage: "/form name channel [finishes_in] [responses_channel] [anonymous]", Description: "Create a form. Administrators only."},
	{Name: "finish", Usage: "/finish form_name [send_here]", Description: "Finish one of your forms early and get the responses."},
	{Name: "takeform", Usage: "/takeform form_name", Description: "Take a form without finding its message."},
	{Name: "report", Usage: "/report", Description: "Report a bug to the developers."},
	{Name: "info", Usage: "/info", Description: "Get information about the bot."},
}

func (b *Bot) handleHelp(_ context.Context, i *discordgo.InteractionCreate) error {
	name := optionsOf(i).String("command")
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s Help", b.session.State.User.Username),
		Color:     chat.Color,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if entry, ok := lo.Find(helpEntries, func(item commandHelp) bool { return item.Name == name }); ok {
		embed.Title = entry.Name
		embed.Description = fmt.Sprintf("```%s```", entry.Usage)
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Command Description", Value: entry.Description}}
	} else {
		embed.Description = "Create forms, collect responses and get a report when they finish."
		embed.Fields = lo.Map(helpEntries, func(item commandHelp, _ int) *discordgo.MessageEmbedField {
			return &discordgo.MessageEmbedField{Name: fmt.Sprintf("`%s`", item.Usage), Value: item.Description}
		})
		if b.cfg.Links.Docs != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Documentation", Value: b.cfg.Links.Docs})
		}
	}

	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: b.linkComponents(),
		},
	})
}

func (b *Bot) handleInfo(_ context.Context, i *discordgo.InteractionCreate) error {
	me := b.session.State.User
	embed := &discordgo.MessageEmbed{
		Title:       me.Username,
		Description: "A bot for creating forms and collecting their responses.",
		Color:       chat.Color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: me.AvatarURL("")},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if app, err := b.session.Application("@me"); err == nil && app.Owner != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Creator", Value: app.Owner.Username, Inline: true})
	}
	if created, err := discordgo.SnowflakeTimestamp(me.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Bot Created", Value: fmt.Sprintf("<t:%d:R>", created.Unix()), Inline: true})
	}

	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: b.linkComponents(),
		},
	})
}

// linkComponents renders the configured website, invite and docs links.
func (b *Bot) linkComponents() []discordgo.MessageComponent {
	links := lo.Filter([]discordgo.MessageComponent{
		discordgo.Button{Label: "Website", Style: discordgo.LinkButton, URL: b.cfg.Links.Website},
		discordgo.Button{Label: "Invite", Style: discordgo.LinkButton, URL: b.cfg.Links.Invite},
		discordgo.Button{Label: "Docs", Style: discordgo.LinkButton, URL: b.cfg.Links.Docs},
	}, func(item discordgo.MessageComponent, _ int) bool {
		return item.(discordgo.Button).URL != ""
	})
	if len(links) == 0 {
		return nil
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: links}}
}

func (b *Bot) handleReport(_ context.Context, i *discordgo.InteractionCreate) error {
	return b.openModal(i, customID(scopeReport, reportBugKey, actionSubmit), "Report a bug",
		discordgo.TextInput{
			CustomID:  "title",
			Label:     "Title",
			Style:     discordgo.TextInputShort,
			Required:  true,
			MaxLength: 100,
		},
		discordgo.TextInput{
			CustomID:    "description",
			Label:       "Description",
			Style:       discordgo.TextInputParagraph,
			Placeholder: "What happened, and what did you expect?",
			Required:    true,
			MaxLength:   4000,
		},
	)
}

func (b *Bot) handleReportSubmit(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	member := toMember(i)

	msg := chat.Message{Embeds: []chat.Embed{{
		Title:       truncate(modalValue(data, "title"), 256),
		Description: modalValue(data, "description"),
		Color:       chat.Color,
		Author:      &member.User,
		Fields: []chat.Field{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", escapeMarkdown(member.Name), member.ID), Inline: true},
			{Name: "Guild", Value: fmt.Sprintf("`%s`", i.GuildID), Inline: true},
		},
		Timestamp: time.Now(),
	}}}
	if err := b.sendOperator(ctx, b.cfg.Channels.Reports, msg); err != nil {
		return err
	}

	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Thanks! Your report has been sent to the developers.",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
