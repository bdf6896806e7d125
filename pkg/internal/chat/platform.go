// Package chat describes what the forms core needs from a chat platform.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a channel, user or message can no longer be
// resolved on the platform.
var ErrNotFound = errors.New("chat: not found")

type Platform interface {
	SendMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error)
	// SendDirect opens a direct message with the user and sends msg there.
	SendDirect(ctx context.Context, userID string, msg Message) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	FetchChannel(ctx context.Context, channelID string) (Channel, error)
	FetchUser(ctx context.Context, userID string) (User, error)
	// CanSend reports whether the bot may post in the channel.
	CanSend(ctx context.Context, channelID string) (bool, error)
	// Ready is closed once the platform session is usable.
	Ready() <-chan struct{}
}

type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type Channel struct {
	ID      string
	Name    string
	ScopeID string
}

type User struct {
	ID        string
	Name      string
	AvatarURL string
}

// Member is a user acting inside a scope, with the roles they hold there.
type Member struct {
	User
	RoleIDs []string
}

type Message struct {
	Content    string
	Embeds     []Embed
	Files      []File
	EntryPoint *EntryPoint
}

// EntryPoint is the control respondents use to start a form.
type EntryPoint struct {
	FormID   string
	Disabled bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Author      *User
	Timestamp   time.Time
	// Image names an attached file to show inside the embed.
	Image string
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	Color      = 0x2F3136
	ErrorColor = 0xE74C3C
)
