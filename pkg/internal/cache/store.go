// Package cache keeps short lived lookups in a local ristretto store.
package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	gocache "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristrettoStore "github.com/eko/gocache/store/ristretto/v4"
)

type Store struct {
	client  *ristretto.Cache
	marshal *marshaler.Marshaler
}

func New() (*Store, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	manager := gocache.New[any](ristrettoStore.NewRistretto(client))
	return &Store{client: client, marshal: marshaler.New(manager)}, nil
}

// Get decodes the value under key into out and reports whether it was found.
func (s *Store) Get(ctx context.Context, key string, out any) bool {
	_, err := s.marshal.Get(ctx, key, out)
	return err == nil
}

func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	options := []store.Option{store.WithExpiration(ttl)}
	if len(tags) > 0 {
		options = append(options, store.WithTags(tags))
	}
	if err := s.marshal.Set(ctx, key, value, options...); err != nil {
		return err
	}
	// ristretto applies writes asynchronously; make them visible to the
	// next Get.
	s.client.Wait()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.marshal.Delete(ctx, key)
}
