package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
	"github.com/omarabozied5/zonak-storefront/internal/storage"
)

func TestActiveIdentity_DefaultsToGuest(t *testing.T) {
	sut := NewStore(storage.NewMemoryStore())

	assert.Equal(t, domain.Guest, sut.ActiveIdentity())
	_, ok := sut.CurrentUser()
	assert.False(t, ok)
}

func TestLogin_SwitchesIdentity(t *testing.T) {
	kv := storage.NewMemoryStore()
	sut := NewStore(kv)

	sut.Login(User{ID: "u-9", Name: "Omar", Phone: "+9665xxxxxxx"}, "tok-1")

	assert.Equal(t, domain.Identity("u-9"), sut.ActiveIdentity())
	user, ok := sut.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Omar", user.Name)

	// The session survives a rehydration.
	rehydrated := NewStore(kv)
	assert.Equal(t, domain.Identity("u-9"), rehydrated.ActiveIdentity())
}

func TestLogout_ReturnsToGuest(t *testing.T) {
	kv := storage.NewMemoryStore()
	sut := NewStore(kv)
	sut.Login(User{ID: "u-9"}, "tok-1")

	sut.Logout()

	assert.Equal(t, domain.Guest, sut.ActiveIdentity())
	assert.Equal(t, domain.Guest, NewStore(kv).ActiveIdentity())
}

func TestNewStore_CorruptedRecordDiscarded(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(Key, "{not json"))

	sut := NewStore(kv)

	assert.Equal(t, domain.Guest, sut.ActiveIdentity(), "corruption falls back to signed-out")
	_, ok := kv.Get(Key)
	assert.False(t, ok)
}
