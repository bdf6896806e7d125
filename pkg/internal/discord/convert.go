package discord

import (
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

func toEmbeds(embeds []chat.Embed) []*discordgo.MessageEmbed {
	return lo.Map(embeds, func(item chat.Embed, _ int) *discordgo.MessageEmbed {
		return toEmbed(item)
	})
}

func toEmbed(embed chat.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
		Fields: lo.Map(embed.Fields, func(item chat.Field, _ int) *discordgo.MessageEmbedField {
			return &discordgo.MessageEmbedField{Name: item.Name, Value: item.Value, Inline: item.Inline}
		}),
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	if embed.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{Name: embed.Author.Name, IconURL: embed.Author.AvatarURL}
	}
	if !embed.Timestamp.IsZero() {
		out.Timestamp = embed.Timestamp.UTC().Format(time.RFC3339)
	}
	if embed.Image != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + embed.Image}
	}
	return out
}

func toComponents(entry *chat.EntryPoint) []discordgo.MessageComponent {
	if entry == nil {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Take form",
				Style:    discordgo.PrimaryButton,
				CustomID: customID(scopeForm, entry.FormID, actionStart),
				Disabled: entry.Disabled,
			},
		}},
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

// escapeMarkdown keeps user supplied names from being rendered as markup.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

func plural(count int, word string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}
