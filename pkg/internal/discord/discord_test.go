package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/builder"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat/chattest"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"git.solsynth.dev/hypernet/forms/pkg/internal/services"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomID(t *testing.T) {
	tests := []struct {
		id     string
		scope  string
		key    string
		action string
		ok     bool
	}{
		{id: "form:123:Feedback:start", scope: "form", key: "123:Feedback", action: "start", ok: true},
		{id: customID(scopeForm, "123:a:b", actionSubmit), scope: "form", key: "123:a:b", action: "submit", ok: true},
		{id: "builder:5f1c:short", scope: "builder", key: "5f1c", action: "short", ok: true},
		{id: "nothing"},
		{id: "form:start"},
		{id: "form:123:"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			scope, key, action, ok := parseCustomID(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.scope, scope)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestToEmbed(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	embed := toEmbed(chat.Embed{
		Title:     "Feedback",
		Color:     chat.Color,
		Fields:    []chat.Field{{Name: "Finishes", Value: "soon", Inline: true}},
		Footer:    "Responses are anonymous",
		Author:    &chat.User{Name: "Ana", AvatarURL: "https://cdn/ana.png"},
		Timestamp: at,
		Image:     "pie.png",
	})

	assert.Equal(t, "Feedback", embed.Title)
	assert.Equal(t, chat.Color, embed.Color)
	require.Len(t, embed.Fields, 1)
	assert.True(t, embed.Fields[0].Inline)
	assert.Equal(t, "Responses are anonymous", embed.Footer.Text)
	assert.Equal(t, "Ana", embed.Author.Name)
	assert.Equal(t, "2024-05-01T12:00:00Z", embed.Timestamp)
	assert.Equal(t, "attachment://pie.png", embed.Image.URL)

	bare := toEmbed(chat.Embed{Title: "x"})
	assert.Nil(t, bare.Footer)
	assert.Nil(t, bare.Author)
	assert.Nil(t, bare.Image)
	assert.Empty(t, bare.Timestamp)
}

func TestToComponents(t *testing.T) {
	assert.Empty(t, toComponents(nil))

	components := toComponents(&chat.EntryPoint{FormID: "123:Feedback", Disabled: true})
	require.Len(t, components, 1)
	row := components[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	assert.Equal(t, "form:123:Feedback:start", button.CustomID)
	assert.True(t, button.Disabled)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\*\*bold\*\* \_x\_ \~\~ \`+"`"+`code\`+"`", escapeMarkdown("**bold** _x_ ~~ `code`"))
	assert.Equal(t, "plain", escapeMarkdown("plain"))
}

func TestQuestionInputs(t *testing.T) {
	questions := []models.Question{
		models.NewQuestion("g:f", 0, models.FreeText{Label: "Name"}),
		models.NewQuestion("g:f", 1, models.FreeText{Label: "Comment", Multiline: true}),
		models.NewQuestion("g:f", 2, models.Choice{Label: "Color", Options: []models.ChoiceOption{{Label: "Red"}, {Label: "Blue"}}}),
	}

	inputs := questionInputs(questions)
	require.Len(t, inputs, 3)
	assert.Equal(t, "q0", inputs[0].CustomID)
	assert.Equal(t, discordgo.TextInputShort, inputs[0].Style)
	assert.Equal(t, discordgo.TextInputParagraph, inputs[1].Style)
	assert.Equal(t, "One of: Red, Blue", inputs[2].Placeholder)
}

func TestModalValues(t *testing.T) {
	data := discordgo.ModalSubmitInteractionData{
		CustomID: "form:g:f:submit",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: "q0", Value: "Ana"}}},
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: "q1", Value: "Great"}}},
		},
	}

	assert.Equal(t, []string{"Ana", "Great"}, lo.Map(modalValues(data), func(item discordgo.TextInput, _ int) string {
		return item.Value
	}))
	assert.Equal(t, "Great", modalValue(data, "q1"))
	assert.Empty(t, modalValue(data, "q9"))
}

func TestUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		user bool
	}{
		{err: services.ErrPermissionDenied, user: true},
		{err: fmt.Errorf("wrapped: %w", services.ErrFormNotFound), user: true},
		{err: &services.ValidationError{Field: "Name", Reason: "is required"}, user: true},
		{err: builder.ErrNotCreator, user: true},
		{err: &builder.InvalidQuestionError{Reason: "label must not be empty"}, user: true},
		{err: chat.ErrNotFound, user: true},
		{err: errors.New("database is locked"), user: false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			_, ok := userFacing(tt.err)
			assert.Equal(t, tt.user, ok)
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	assert.ErrorIs(t, translate(notFound), chat.ErrNotFound)

	unavailable := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadGateway}}
	assert.NotErrorIs(t, translate(unavailable), chat.ErrNotFound)
	assert.ErrorIs(t, translate(discordgo.ErrStateNotFound), chat.ErrNotFound)
}

func TestCommandDefinitions(t *testing.T) {
	commands := commandDefinitions()
	names := lo.Map(commands, func(item *discordgo.ApplicationCommand, _ int) string {
		return item.Name
	})
	assert.ElementsMatch(t, []string{"form", "finish", "takeform", "report", "info", "help"}, names)
	assert.Len(t, lo.Uniq(names), len(names))

	bot := &Bot{}
	for _, name := range names {
		_, ok := bot.commands()[name]
		assert.True(t, ok, "no handler for /%s", name)
	}
}

func TestGrantComponents(t *testing.T) {
	open := grantComponents("sid", builder.PermissionView{UsersDone: true})
	users := open[1].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	roles := open[2].(discordgo.ActionsRow).Components[0].(discordgo.SelectMenu)
	assert.True(t, users.Disabled)
	assert.False(t, roles.Disabled)
	assert.Equal(t, "perms:sid:roles", roles.CustomID)
	assert.Equal(t, builder.MaxSelections, roles.MaxValues)

	done := grantComponents("sid", builder.PermissionView{Everyone: true})
	assert.True(t, done[0].(discordgo.ActionsRow).Components[0].(discordgo.Button).Disabled)
}

type flakyPlatform struct {
	*chattest.Platform
}

func (flakyPlatform) CanSend(context.Context, string) (bool, error) {
	return false, errors.New("gateway timeout")
}

func TestCheckEntryChannel(t *testing.T) {
	platform := chattest.New()
	platform.AddChannel(chat.Channel{ID: "entry", ScopeID: "g1"})
	platform.AddChannel(chat.Channel{ID: "locked", ScopeID: "g1"})
	platform.SetReadOnly("locked")
	ctx := context.Background()

	assert.NoError(t, checkEntryChannel(ctx, platform, "entry"))

	err := checkEntryChannel(ctx, platform, "locked")
	var validation *services.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "<#locked>")

	err = checkEntryChannel(ctx, flakyPlatform{Platform: platform}, "entry")
	require.Error(t, err)
	_, user := userFacing(err)
	assert.False(t, user)
}
