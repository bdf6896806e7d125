// Package discord adapts the forms core to Discord through discordgo.
package discord

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"github.com/bwmarrin/discordgo"
)

const sendPermissions = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks

// Platform implements chat.Platform on a discordgo session.
type Platform struct {
	session *discordgo.Session

	ready     chan struct{}
	readyOnce sync.Once
}

func NewPlatform(session *discordgo.Session) *Platform {
	p := &Platform{session: session, ready: make(chan struct{})}
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		p.readyOnce.Do(func() { close(p.ready) })
	})
	return p
}

func (p *Platform) Ready() <-chan struct{} {
	return p.ready
}

func (p *Platform) SendMessage(ctx context.Context, channelID string, msg chat.Message) (chat.MessageRef, error) {
	sent, err := p.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, translate(err)
	}
	return chat.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

func (p *Platform) SendDirect(ctx context.Context, userID string, msg chat.Message) (chat.MessageRef, error) {
	channel, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, translate(err)
	}
	return p.SendMessage(ctx, channel.ID, msg)
}

func (p *Platform) EditMessage(ctx context.Context, ref chat.MessageRef, msg chat.Message) error {
	embeds := toEmbeds(msg.Embeds)
	components := toComponents(msg.EntryPoint)
	edit := &discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Content:    &msg.Content,
		Embeds:     &embeds,
		Components: &components,
	}
	_, err := p.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return translate(err)
}

func (p *Platform) FetchChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	channel, err := p.session.State.Channel(channelID)
	if err != nil {
		if channel, err = p.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
			return chat.Channel{}, translate(err)
		}
	}
	return chat.Channel{ID: channel.ID, Name: channel.Name, ScopeID: channel.GuildID}, nil
}

func (p *Platform) FetchUser(ctx context.Context, userID string) (chat.User, error) {
	user, err := p.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.User{}, translate(err)
	}
	return toUser(user), nil
}

func (p *Platform) CanSend(ctx context.Context, channelID string) (bool, error) {
	if p.session.State.User == nil {
		return false, errors.New("session is not ready")
	}
	perms, err := p.session.UserChannelPermissions(p.session.State.User.ID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, translate(err)
	}
	return perms&sendPermissions == sendPermissions, nil
}

// translate maps unknown channel, user or message errors to chat.ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return errors.Join(chat.ErrNotFound, err)
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return errors.Join(chat.ErrNotFound, err)
	}
	return err
}

func toUser(user *discordgo.User) chat.User {
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}
	return chat.User{ID: user.ID, Name: name, AvatarURL: user.AvatarURL("")}
}

func toMember(i *discordgo.InteractionCreate) chat.Member {
	if i.Member != nil && i.Member.User != nil {
		return chat.Member{User: toUser(i.Member.User), RoleIDs: i.Member.Roles}
	}
	if i.User != nil {
		return chat.Member{User: toUser(i.User)}
	}
	return chat.Member{}
}

func toMessageSend(msg chat.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.EntryPoint),
		Files:      toFiles(msg.Files),
	}
}

func toFiles(files []chat.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, file := range files {
		out = append(out, &discordgo.File{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		})
	}
	return out
}
