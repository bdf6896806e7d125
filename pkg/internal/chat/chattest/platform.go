// Package chattest provides an in-memory chat.Platform for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
)

type Sent struct {
	Ref     chat.MessageRef
	Message chat.Message
	// Direct is set when the message went to a user's DMs.
	Direct string
}

type Edit struct {
	Ref     chat.MessageRef
	Message chat.Message
}

// Platform records everything sent through it. Channels and users must be
// registered before they can be resolved.
type Platform struct {
	mu       sync.Mutex
	seq      int
	channels map[string]chat.Channel
	users    map[string]chat.User
	readOnly map[string]bool
	failSend map[string]bool
	sent     []Sent
	edits    []Edit
	ready    chan struct{}
}

func New() *Platform {
	ready := make(chan struct{})
	close(ready)
	return &Platform{
		channels: make(map[string]chat.Channel),
		users:    make(map[string]chat.User),
		readOnly: make(map[string]bool),
		failSend: make(map[string]bool),
		ready:    ready,
	}
}

// NotReady returns a platform whose Ready channel stays open until MarkReady.
func NotReady() *Platform {
	p := New()
	p.ready = make(chan struct{})
	return p
}

func (p *Platform) MarkReady() { close(p.ready) }

func (p *Platform) AddChannel(channel chat.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[channel.ID] = channel
}

func (p *Platform) AddUser(user chat.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[user.ID] = user
}

// SetReadOnly makes CanSend report false for the channel.
func (p *Platform) SetReadOnly(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readOnly[channelID] = true
}

// FailSend makes sends to the channel fail with a transport error.
func (p *Platform) FailSend(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failSend[channelID] = true
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg chat.Message) (chat.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[channelID]; !ok {
		return chat.MessageRef{}, chat.ErrNotFound
	}
	if p.failSend[channelID] {
		return chat.MessageRef{}, fmt.Errorf("send to %s: connection reset", channelID)
	}
	return p.record(channelID, "", msg), nil
}

func (p *Platform) SendDirect(_ context.Context, userID string, msg chat.Message) (chat.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[userID]; !ok {
		return chat.MessageRef{}, chat.ErrNotFound
	}
	return p.record("dm-"+userID, userID, msg), nil
}

func (p *Platform) record(channelID, direct string, msg chat.Message) chat.MessageRef {
	p.seq++
	ref := chat.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("%d", p.seq)}
	p.sent = append(p.sent, Sent{Ref: ref, Message: msg, Direct: direct})
	return ref
}

func (p *Platform) EditMessage(_ context.Context, ref chat.MessageRef, msg chat.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.sent {
		if item.Ref == ref {
			p.edits = append(p.edits, Edit{Ref: ref, Message: msg})
			return nil
		}
	}
	return chat.ErrNotFound
}

func (p *Platform) FetchChannel(_ context.Context, channelID string) (chat.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	channel, ok := p.channels[channelID]
	if !ok {
		return chat.Channel{}, chat.ErrNotFound
	}
	return channel, nil
}

func (p *Platform) FetchUser(_ context.Context, userID string) (chat.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[userID]
	if !ok {
		return chat.User{}, chat.ErrNotFound
	}
	return user, nil
}

func (p *Platform) CanSend(_ context.Context, channelID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[channelID]; !ok {
		return false, chat.ErrNotFound
	}
	return !p.readOnly[channelID], nil
}

func (p *Platform) Ready() <-chan struct{} {
	return p.ready
}

// Sent returns a copy of every message sent so far.
func (p *Platform) Sent() []Sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sent(nil), p.sent...)
}

// SentTo filters sent messages by channel.
func (p *Platform) SentTo(channelID string) []Sent {
	var out []Sent
	for _, item := range p.Sent() {
		if item.Ref.ChannelID == channelID {
			out = append(out, item)
		}
	}
	return out
}

// DirectTo filters direct messages by recipient.
func (p *Platform) DirectTo(userID string) []Sent {
	var out []Sent
	for _, item := range p.Sent() {
		if item.Direct == userID {
			out = append(out, item)
		}
	}
	return out
}

func (p *Platform) Edits() []Edit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Edit(nil), p.edits...)
}
