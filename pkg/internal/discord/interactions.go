package discord

import (
	"context"
	"fmt"
	"strings"

	"git.solsynth.dev/hypernet/forms/pkg/internal/builder"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

func (b *Bot) acknowledge(i *discordgo.InteractionCreate) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (b *Bot) openModal(i *discordgo.InteractionCreate, id, title string, inputs ...discordgo.TextInput) error {
	return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: id,
			Title:    truncate(title, 45),
			Components: lo.Map(inputs, func(item discordgo.TextInput, _ int) discordgo.MessageComponent {
				return discordgo.ActionsRow{Components: []discordgo.MessageComponent{item}}
			}),
		},
	})
}

// modalValues returns the text inputs of a submitted modal in order.
func modalValues(data discordgo.ModalSubmitInteractionData) []discordgo.TextInput {
	var out []discordgo.TextInput
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, item := range row.Components {
			if input, ok := item.(*discordgo.TextInput); ok {
				out = append(out, *input)
			}
		}
	}
	return out
}

func modalValue(data discordgo.ModalSubmitInteractionData, id string) string {
	input, _ := lo.Find(modalValues(data), func(item discordgo.TextInput) bool {
		return item.CustomID == id
	})
	return input.Value
}

func (b *Bot) handleBuilder(ctx context.Context, i *discordgo.InteractionCreate, sid, action string) error {
	session, ok := b.drafts.Get(sid)
	if !ok {
		return builder.ErrClosed
	}
	member := toMember(i)
	if member.ID != session.CreatorID() {
		return builder.ErrNotCreator
	}

	if i.Type == discordgo.InteractionMessageComponent {
		id := customID(scopeBuilder, sid, action)
		label := discordgo.TextInput{
			CustomID:  "label",
			Label:     "Question",
			Style:     discordgo.TextInputShort,
			Required:  true,
			MaxLength: builder.MaxLabelLength,
		}
		switch action {
		case actionShort:
			return b.openModal(i, id, "Short answer question", label)
		case actionParagraph:
			return b.openModal(i, id, "Paragraph question", label)
		case actionChoice:
			return b.openModal(i, id, "Multiple choice question", label, discordgo.TextInput{
				CustomID:    "options",
				Label:       "Options",
				Style:       discordgo.TextInputParagraph,
				Placeholder: "One option per line, optionally followed by | and a description",
				Required:    true,
				MaxLength:   4000,
			})
		case actionRemove:
			label.Label = "Question to remove"
			return b.openModal(i, id, "Remove a question", label)
		case actionFinish:
			if err := session.Submit(ctx, member.ID, builder.FinishQuestions{}); err != nil {
				return err
			}
			return b.acknowledge(i)
		}
		return fmt.Errorf("unknown builder action %q", action)
	}

	data := i.ModalSubmitData()
	label := modalValue(data, "label")
	var submitted builder.QuestionAction
	switch action {
	case actionShort:
		submitted = builder.AddFreeText{Label: label}
	case actionParagraph:
		submitted = builder.AddFreeText{Label: label, Multiline: true}
	case actionChoice:
		submitted = builder.AddChoice{Label: label, Options: builder.ParseOptions(modalValue(data, "options"))}
	case actionRemove:
		submitted = builder.RemoveQuestion{Label: strings.TrimSpace(label)}
	default:
		return fmt.Errorf("unknown builder action %q", action)
	}
	if err := session.Submit(ctx, member.ID, submitted); err != nil {
		return err
	}
	return b.acknowledge(i)
}

func (b *Bot) handleGrants(ctx context.Context, i *discordgo.InteractionCreate, gid, action string) error {
	session, ok := b.grants.Get(gid)
	if !ok {
		return builder.ErrClosed
	}
	member := toMember(i)

	var submitted builder.PermissionAction
	switch action {
	case actionEveryone:
		submitted = builder.AllowEveryone{}
	case actionUsers:
		submitted = builder.SelectUsers{IDs: i.MessageComponentData().Values}
	case actionRoles:
		submitted = builder.SelectRoles{IDs: i.MessageComponentData().Values}
	default:
		return fmt.Errorf("unknown permission action %q", action)
	}
	if err := session.Submit(ctx, member.ID, submitted); err != nil {
		return err
	}
	return b.acknowledge(i)
}

// handleEntry serves the entry point of a live form: the button opens the
// questions, the modal submits them.
func (b *Bot) handleEntry(ctx context.Context, i *discordgo.InteractionCreate, formID, action string) error {
	member := toMember(i)

	switch action {
	case actionStart:
		return b.presentForm(ctx, i, formID)
	case actionSubmit:
		answers := lo.Map(modalValues(i.ModalSubmitData()), func(item discordgo.TextInput, _ int) string {
			return item.Value
		})
		if err := b.svc.Collector.Submit(ctx, formID, member, answers); err != nil {
			return err
		}
		return b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "Your response has been recorded!",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	}
	return fmt.Errorf("unknown form action %q", action)
}

func (b *Bot) presentForm(ctx context.Context, i *discordgo.InteractionCreate, formID string) error {
	if _, err := b.svc.Publisher.Lookup(ctx, formID); err != nil {
		return err
	}
	prompt, err := b.svc.Collector.Prepare(ctx, formID, toMember(i))
	if err != nil {
		return err
	}
	return b.openModal(i, customID(scopeForm, formID, actionSubmit), prompt.Form.Name, questionInputs(prompt.Questions)...)
}

func questionInputs(questions []models.Question) []discordgo.TextInput {
	return lo.Map(questions, func(item models.Question, _ int) discordgo.TextInput {
		input := discordgo.TextInput{
			CustomID: fmt.Sprintf("q%d", item.Ordinal),
			Label:    item.Label,
			Style:    discordgo.TextInputShort,
			Required: true,
		}
		switch spec := item.Spec().(type) {
		case models.FreeText:
			if spec.Multiline {
				input.Style = discordgo.TextInputParagraph
			}
		case models.Choice:
			labels := lo.Map(spec.Options, func(option models.ChoiceOption, _ int) string {
				return option.Label
			})
			input.Placeholder = truncate("One of: "+strings.Join(labels, ", "), 100)
		}
		return input
	})
}

func (b *Bot) handleTakeForm(ctx context.Context, i *discordgo.InteractionCreate) error {
	name := strings.TrimSpace(optionsOf(i).String("form_name"))
	return b.presentForm(ctx, i, models.FormID(i.GuildID, name))
}

func (b *Bot) handleFinish(ctx context.Context, i *discordgo.InteractionCreate) error {
	opts := optionsOf(i)
	formID := models.FormID(i.GuildID, strings.TrimSpace(opts.String("form_name")))

	// closing can outlast the three second reply window
	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		return err
	}

	finish := services.FinishOptions{ActorID: toMember(i).ID}
	if opts.Bool("send_here") {
		finish.Destination = i.ChannelID
	}
	if err := b.svc.Closer.Finish(ctx, formID, finish); err != nil {
		return err
	}

	content := "The form has been finished."
	_, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}
