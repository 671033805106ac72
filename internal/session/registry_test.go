package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}

func (failingStore) Put(context.Context, string, string) (string, error) {
	return "", errors.New("store down")
}

func TestRegistryResolveIsIdempotent(t *testing.T) {
	r := NewRegistry(NewMemoryStore(0), logging.Default())
	ctx := context.Background()

	first := r.Resolve(ctx, "user-1")
	second := r.Resolve(ctx, "user-1")
	assert.Equal(t, first, second)

	other := r.Resolve(ctx, "user-2")
	assert.NotEqual(t, first, other)
}

func TestRegistryCreatesTimeOrderedIDs(t *testing.T) {
	r := NewRegistry(nil, nil)
	id := r.Resolve(context.Background(), "user-1")

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(1), parsed.Version())
}

func TestRegistryResolveWithRedis(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	a := NewRegistry(NewRedisStore(client, 0), logging.Default())
	b := NewRegistry(NewRedisStore(client, 0), logging.Default())

	assert.Equal(t, a.Resolve(ctx, "user-1"), b.Resolve(ctx, "user-1"))
}

func TestRegistryNeverFails(t *testing.T) {
	r := NewRegistry(failingStore{}, logging.Default())
	id := r.Resolve(context.Background(), "user-1")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
