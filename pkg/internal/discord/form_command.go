package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/builder"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// draft is what /form was invoked with, kept until the questions and the
// permission set are collected.
type draft struct {
	Name              string
	ScopeID           string
	ChannelID         string
	ResponseChannelID *string
	CreatorID         string
	Anonymous         bool
	Duration          time.Duration
}

func (b *Bot) handleForm(ctx context.Context, i *discordgo.InteractionCreate) error {
	opts := optionsOf(i)
	member := toMember(i)

	d := draft{
		Name:      strings.TrimSpace(opts.String("name")),
		ScopeID:   i.GuildID,
		ChannelID: opts.Channel("channel"),
		CreatorID: member.ID,
		Anonymous: opts.Bool("anonymous"),
		Duration:  time.Duration(opts.Float("finishes_in", 1) * float64(time.Hour)),
	}
	if channelID := opts.Channel("responses_channel"); channelID != "" {
		d.ResponseChannelID = &channelID
	}

	if exists, err := b.svc.Store.FormExists(ctx, models.FormID(d.ScopeID, d.Name)); err != nil {
		return err
	} else if exists {
		return services.ErrFormExists
	}
	if err := checkEntryChannel(ctx, b.platform, d.ChannelID); err != nil {
		return err
	}

	if wait := b.cooldown.Hit(ctx, i.GuildID); wait > 0 {
		b.reply(i, fmt.Sprintf("This command is on cooldown, try again in %s.", wait.Round(time.Second)))
		return nil
	}

	questions := builder.NewQuestions(member.ID, b.cfg.Builder.Timeout, func(_ context.Context, fields []builder.SummaryField) {
		embeds := []*discordgo.MessageEmbed{builderEmbed(d.Name, fields)}
		if _, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
			log.Warn().Err(err).Msg("Unable to update question summary...")
		}
	})
	sid := b.drafts.Add(questions)

	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{builderEmbed(d.Name, nil)},
			Components: builderComponents(sid, false),
		},
	}); err != nil {
		b.drafts.Remove(sid)
		return err
	}

	go b.runDraft(i, sid, questions, d)
	return nil
}

// checkEntryChannel fails early when the form could never be posted. The
// response channel is left to Publish, which only warns about it.
func checkEntryChannel(ctx context.Context, platform chat.Platform, channelID string) error {
	ok, err := platform.CanSend(ctx, channelID)
	if err != nil {
		return fmt.Errorf("check channel %s: %w", channelID, err)
	}
	if !ok {
		return &services.ValidationError{Reason: fmt.Sprintf("I need permission to send messages in <#%s>.", channelID)}
	}
	return nil
}

// runDraft drives a /form invocation after its first reply: questions, then
// permissions, then publication.
func (b *Bot) runDraft(i *discordgo.InteractionCreate, sid string, questions *builder.Questions, d draft) {
	defer b.drafts.Remove(sid)
	defer func() {
		if r := recover(); r != nil {
			b.fail(b.ctx, i, fmt.Errorf("panic: %v", r), "")
		}
	}()

	specs, err := questions.Wait(b.ctx)
	b.closeBuilder(i, specs, err)
	if err != nil {
		return
	}
	if len(specs) == 0 {
		b.followup(i, "No questions entered. Cancelling.")
		return
	}

	permission, err := b.collectPermissions(i, d.CreatorID)
	if err != nil {
		if !errors.Is(err, builder.ErrAbandoned) {
			b.fail(b.ctx, i, err, "")
		}
		return
	}

	result, err := b.svc.Publisher.Publish(b.ctx, services.PublishRequest{
		Name:              d.Name,
		ScopeID:           d.ScopeID,
		ChannelID:         d.ChannelID,
		ResponseChannelID: d.ResponseChannelID,
		CreatorID:         d.CreatorID,
		Anonymous:         d.Anonymous,
		Duration:          d.Duration,
		Questions:         specs,
		Permission: &services.Permission{
			Everyone: permission.Everyone,
			Users:    permission.Users,
			Roles:    permission.Roles,
		},
	})
	if err != nil {
		b.fail(b.ctx, i, err, "")
		return
	}

	lines := []string{fmt.Sprintf("Form **%s** is live in <#%s> until <t:%d:f>.", escapeMarkdown(result.Form.Name), result.Form.ChannelID, result.Form.FinishesAt.Unix())}
	lines = append(lines, result.Warnings...)
	if result.Form.ResponseChannelID == nil {
		lines = append(lines, "Data will be DMed to you. Make sure to turn on DMs!")
	}
	b.followup(i, strings.Join(lines, "\n"))
}

func (b *Bot) closeBuilder(i *discordgo.InteractionCreate, specs []models.QuestionSpec, err error) {
	components := builderComponents("", true)
	edit := &discordgo.WebhookEdit{Components: &components}
	if errors.Is(err, builder.ErrAbandoned) {
		content := "This form builder timed out."
		edit.Content = &content
	}
	if _, err := b.session.InteractionResponseEdit(i.Interaction, edit); err != nil {
		log.Debug().Err(err).Int("questions", len(specs)).Msg("Unable to close form builder...")
	}
}

// grantMessage is the follow-up carrying the permission controls.
type grantMessage struct {
	sessionID string
	messageID string
}

func (b *Bot) collectPermissions(i *discordgo.InteractionCreate, creatorID string) (builder.PermissionResult, error) {
	var current atomic.Pointer[grantMessage]
	grants := builder.NewPermissions(creatorID, b.cfg.Builder.Timeout, func(_ context.Context, view builder.PermissionView) {
		m := current.Load()
		if m == nil {
			return
		}
		components := grantComponents(m.sessionID, view)
		if _, err := b.session.FollowupMessageEdit(i.Interaction, m.messageID, &discordgo.WebhookEdit{Components: &components}); err != nil {
			log.Warn().Err(err).Msg("Unable to update permission controls...")
		}
	})
	gid := b.grants.Add(grants)
	defer b.grants.Remove(gid)

	msg, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{{Title: "Who can take this form?", Color: chat.Color}},
		Components: grantComponents(gid, builder.PermissionView{}),
	})
	if err != nil {
		return builder.PermissionResult{}, err
	}
	current.Store(&grantMessage{sessionID: gid, messageID: msg.ID})

	result, err := grants.Wait(b.ctx)
	if err != nil {
		components := grantComponents("", builder.PermissionView{Everyone: true})
		content := "Choosing who can take this form timed out."
		if _, err := b.session.FollowupMessageEdit(i.Interaction, msg.ID, &discordgo.WebhookEdit{Content: &content, Components: &components}); err != nil {
			log.Debug().Err(err).Msg("Unable to close permission controls...")
		}
		return result, err
	}
	if result.Everyone {
		b.followup(i, "Everyone can take this form.")
	}
	return result, nil
}

func (b *Bot) followup(i *discordgo.InteractionCreate, content string) {
	if _, err := b.session.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to send follow up message...")
	}
}

func builderEmbed(name string, fields []builder.SummaryField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       name,
		Description: "**Form questions shown below**",
		Color:       chat.Color,
		Fields: lo.Map(fields, func(item builder.SummaryField, _ int) *discordgo.MessageEmbedField {
			return &discordgo.MessageEmbedField{Name: item.Name, Value: item.Value, Inline: false}
		}),
	}
}

func builderComponents(sid string, disabled bool) []discordgo.MessageComponent {
	button := func(label, action string, style discordgo.ButtonStyle) discordgo.MessageComponent {
		return discordgo.Button{
			Label:    label,
			Style:    style,
			CustomID: customID(scopeBuilder, lo.Ternary(sid == "", "closed", sid), action),
			Disabled: disabled,
		}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("Short answer", actionShort, discordgo.PrimaryButton),
			button("Paragraph", actionParagraph, discordgo.PrimaryButton),
			button("Multiple choice", actionChoice, discordgo.PrimaryButton),
			button("Remove", actionRemove, discordgo.DangerButton),
			button("Finish", actionFinish, discordgo.SuccessButton),
		}},
	}
}

func grantComponents(gid string, view builder.PermissionView) []discordgo.MessageComponent {
	key := lo.Ternary(gid == "", "closed", gid)
	zero := 0
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Allow Everyone",
				Style:    discordgo.SecondaryButton,
				CustomID: customID(scopeGrants, key, actionEveryone),
				Disabled: view.Done(),
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.UserSelectMenu,
				CustomID:    customID(scopeGrants, key, actionUsers),
				Placeholder: "Allowed users",
				MinValues:   &zero,
				MaxValues:   builder.MaxSelections,
				Disabled:    view.UsersDone || view.Done(),
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.RoleSelectMenu,
				CustomID:    customID(scopeGrants, key, actionRoles),
				Placeholder: "Allowed roles",
				MinValues:   &zero,
				MaxValues:   builder.MaxSelections,
				Disabled:    view.RolesDone || view.Done(),
			},
		}},
	}
}
