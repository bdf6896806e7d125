package discord

import (
	"context"
	"strings"

	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

type commandHandler func(ctx context.Context, i *discordgo.InteractionCreate) error

func (b *Bot) commands() map[string]commandHandler {
	return map[string]commandHandler{
		"form":     b.handleForm,
		"finish":   b.handleFinish,
		"takeform": b.handleTakeForm,
		"report":   b.handleReport,
		"info":     b.handleInfo,
		"help":     b.handleHelp,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	guildOnly := false
	minHours := 0.0

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "form",
			Description:              "Create a form",
			DefaultMemberPermissions: &admin,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "The name of the form",
					Required:    true,
					MaxLength:   45,
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Where the form is posted",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "finishes_in",
					Description: "The hours to finish the form in (default 1)",
					MinValue:    &minHours,
					MaxValue:    services.MaxFormDuration.Hours(),
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "responses_channel",
					Description:  "Where responses and the final report are sent (default: your DMs)",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "anonymous",
					Description: "Hide who responded",
				},
			},
		},
		{
			Name:         "finish",
			Description:  "Finish one of your forms now",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "form_name",
					Description:  "The form to finish",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "send_here",
					Description: "Send the report to this channel",
				},
			},
		},
		{
			Name:         "takeform",
			Description:  "Take a form",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "form_name",
					Description:  "The form to take",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{Name: "report", Description: "Report a bug to the developers"},
		{Name: "info", Description: "About this bot"},
		{
			Name:        "help",
			Description: "How to use this bot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "command",
					Description: "The command to get help with",
					Choices: lo.Map([]string{"form", "finish", "takeform", "report", "info"}, func(item string, _ int) *discordgo.ApplicationCommandOptionChoice {
						return &discordgo.ApplicationCommandOptionChoice{Name: item, Value: item}
					}),
				},
			},
		},
	}
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionsOf(i *discordgo.InteractionCreate) commandOptions {
	return lo.Associate(i.ApplicationCommandData().Options, func(item *discordgo.ApplicationCommandInteractionDataOption) (string, *discordgo.ApplicationCommandInteractionDataOption) {
		return item.Name, item
	})
}

func (v commandOptions) String(name string) string {
	if option, ok := v[name]; ok {
		return option.StringValue()
	}
	return ""
}

// Float returns a number option, or fallback when it was not given.
func (v commandOptions) Float(name string, fallback float64) float64 {
	if option, ok := v[name]; ok {
		return option.FloatValue()
	}
	return fallback
}

func (v commandOptions) Bool(name string) bool {
	if option, ok := v[name]; ok {
		return option.BoolValue()
	}
	return false
}

// Channel returns the id of a channel option.
func (v commandOptions) Channel(name string) string {
	if option, ok := v[name]; ok {
		if id, ok := option.Value.(string); ok {
			return id
		}
	}
	return ""
}

// autocomplete suggests form names for /finish and /takeform.
func (b *Bot) autocomplete(ctx context.Context, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	typed := strings.ToLower(optionsOf(i).String("form_name"))
	member := toMember(i)

	forms, err := b.svc.Store.ListForms(ctx, i.GuildID)
	if err != nil {
		return err
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, form := range forms {
		if !strings.Contains(strings.ToLower(form.Name), typed) {
			continue
		}
		switch data.Name {
		case "finish":
			if form.CreatorID != member.ID {
				continue
			}
		case "takeform":
			permission, err := b.svc.Store.GetPermission(ctx, form.ID)
			if err != nil {
				return err
			}
			if !services.CanTake(permission, member) {
				continue
			}
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: form.Name, Value: form.Name})
		if len(choices) == 25 {
			break
		}
	}

	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}
