package cache

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"github.com/rs/zerolog/log"
)

const lookupTTL = 5 * time.Minute

// Platform caches channel and user lookups of the wrapped platform. Every
// other call goes straight through.
type Platform struct {
	chat.Platform
	store *Store
}

func WrapPlatform(platform chat.Platform, store *Store) *Platform {
	return &Platform{Platform: platform, store: store}
}

func (p *Platform) FetchChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	key := fmt.Sprintf("channel#%s", channelID)

	var channel chat.Channel
	if p.store.Get(ctx, key, &channel) {
		return channel, nil
	}

	channel, err := p.Platform.FetchChannel(ctx, channelID)
	if err != nil {
		return channel, err
	}
	if err := p.store.Set(ctx, key, channel, lookupTTL, "channels"); err != nil {
		log.Debug().Err(err).Str("channel", channelID).Msg("Unable to cache channel...")
	}
	return channel, nil
}

func (p *Platform) FetchUser(ctx context.Context, userID string) (chat.User, error) {
	key := fmt.Sprintf("user#%s", userID)

	var user chat.User
	if p.store.Get(ctx, key, &user) {
		return user, nil
	}

	user, err := p.Platform.FetchUser(ctx, userID)
	if err != nil {
		return user, err
	}
	if err := p.store.Set(ctx, key, user, lookupTTL, "users"); err != nil {
		log.Debug().Err(err).Str("user", userID).Msg("Unable to cache user...")
	}
	return user, nil
}
