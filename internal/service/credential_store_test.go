package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/forest-console/internal/adapters/memory"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	mocks "github.com/target/forest-console/internal/mocks/auth"
)

var adminIdentity = domainauth.Identity{ActorID: "admin", Role: domainauth.RoleAdmin}

func newLoadedStore(t *testing.T, storage *memory.SlotStore) *CredentialStore {
	t.Helper()
	store := NewCredentialStore(CredentialStoreOptions{Storage: storage})
	require.NoError(t, store.Load(context.Background()))
	return store
}

func TestCredentialStore_SaveReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotStore()
	store := newLoadedStore(t, storage)

	require.NoError(t, store.Save(ctx, "T1", adminIdentity))

	cred, ok := store.ReadCredential()
	require.True(t, ok)
	assert.Equal(t, domainauth.Credential("T1"), cred)

	id, ok := store.ReadIdentity()
	require.True(t, ok)
	assert.Equal(t, adminIdentity, id)

	slots, err := storage.GetAll(ctx, "token", "userInfo")
	require.NoError(t, err)
	assert.Equal(t, "T1", slots["token"])
	assert.JSONEq(t, `{"username":"admin","role":"ADMIN"}`, slots["userInfo"])
}

func TestCredentialStore_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotStore()
	require.NoError(t, newLoadedStore(t, storage).Save(ctx, "T1", adminIdentity))

	reloaded := newLoadedStore(t, storage)
	sess, ok := reloaded.Snapshot()
	require.True(t, ok)
	assert.Equal(t, domainauth.Credential("T1"), sess.Credential)
	assert.Equal(t, adminIdentity, sess.Identity)
}

func TestCredentialStore_ReadWithoutSession(t *testing.T) {
	store := newLoadedStore(t, memory.NewSlotStore())

	cred, ok := store.ReadCredential()
	assert.False(t, ok)
	assert.Empty(t, cred)

	_, ok = store.ReadIdentity()
	assert.False(t, ok)
}

func TestCredentialStore_CustomSlotNames(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotStore()
	store := NewCredentialStore(CredentialStoreOptions{
		Storage: storage,
		Slots:   SlotNames{Credential: "forest.token"},
	})
	require.NoError(t, store.Save(ctx, "T1", adminIdentity))

	slots, err := storage.GetAll(ctx, "forest.token", "userInfo")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestCredentialStore_LoadDiscardsHalfPresentPair(t *testing.T) {
	tests := []struct {
		name  string
		slots map[string]string
	}{
		{name: "token only", slots: map[string]string{"token": "T1"}},
		{name: "identity only", slots: map[string]string{"userInfo": `{"username":"admin","role":"ADMIN"}`}},
		{name: "corrupt identity", slots: map[string]string{"token": "T1", "userInfo": "{not json"}},
		{name: "identity without actor", slots: map[string]string{"token": "T1", "userInfo": `{"role":"ADMIN"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := memory.NewSlotStore()
			require.NoError(t, storage.SetAll(ctx, tt.slots))

			store := newLoadedStore(t, storage)
			_, ok := store.Snapshot()
			assert.False(t, ok)

			left, err := storage.GetAll(ctx, "token", "userInfo")
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestCredentialStore_LoadError(t *testing.T) {
	storage := mocks.NewFaultySlotStorage()
	storage.GetAllErr = errors.New("disk gone")
	store := NewCredentialStore(CredentialStoreOptions{Storage: storage})

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load session slots")
}

func TestCredentialStore_SaveRejectsIncompletePair(t *testing.T) {
	ctx := context.Background()
	store := newLoadedStore(t, memory.NewSlotStore())

	require.Error(t, store.Save(ctx, "", adminIdentity))
	require.Error(t, store.Save(ctx, "T1", domainauth.Identity{Role: domainauth.RoleAdmin}))

	_, ok := store.Snapshot()
	assert.False(t, ok)
}

func TestCredentialStore_SaveFailureKeepsPreviousSession(t *testing.T) {
	ctx := context.Background()
	storage := mocks.NewFaultySlotStorage()
	store := NewCredentialStore(CredentialStoreOptions{Storage: storage})
	require.NoError(t, store.Save(ctx, "T1", adminIdentity))

	storage.SetAllErr = errors.New("write failed")
	err := store.Save(ctx, "T2", domainauth.Identity{ActorID: "user", Role: domainauth.RoleUser})
	require.Error(t, err)

	sess, ok := store.Snapshot()
	require.True(t, ok)
	assert.Equal(t, domainauth.Credential("T1"), sess.Credential)
	assert.Equal(t, adminIdentity, sess.Identity)
}

func TestCredentialStore_Clear(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewSlotStore()
	store := newLoadedStore(t, storage)
	require.NoError(t, store.Save(ctx, "T1", adminIdentity))
	before := store.Generation()

	require.NoError(t, store.Clear(ctx))

	_, hasCred := store.ReadCredential()
	_, hasID := store.ReadIdentity()
	assert.False(t, hasCred)
	assert.False(t, hasID)
	assert.Greater(t, store.Generation(), before)

	left, err := storage.GetAll(ctx, "token", "userInfo")
	require.NoError(t, err)
	assert.Empty(t, left)

	// Clearing an empty store is not an error.
	require.NoError(t, store.Clear(ctx))
}

func TestCredentialStore_ClearDropsSessionWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	storage := mocks.NewFaultySlotStorage()
	store := NewCredentialStore(CredentialStoreOptions{Storage: storage})
	require.NoError(t, store.Save(ctx, "T1", adminIdentity))

	storage.DeleteErr = errors.New("delete failed")
	require.Error(t, store.Clear(ctx))

	_, ok := store.Snapshot()
	assert.False(t, ok)
}

func TestCredentialStore_SaveIfGeneration(t *testing.T) {
	ctx := context.Background()
	store := newLoadedStore(t, memory.NewSlotStore())

	gen := store.Generation()
	require.NoError(t, store.Clear(ctx))

	err := store.SaveIfGeneration(ctx, gen, "T1", adminIdentity)
	require.ErrorIs(t, err, ErrSuperseded)
	_, ok := store.Snapshot()
	assert.False(t, ok)

	require.NoError(t, store.SaveIfGeneration(ctx, store.Generation(), "T2", adminIdentity))
	cred, _ := store.ReadCredential()
	assert.Equal(t, domainauth.Credential("T2"), cred)
}

func TestCredentialStore_ClearIfCurrent(t *testing.T) {
	ctx := context.Background()
	store := newLoadedStore(t, memory.NewSlotStore())

	applies, err := store.ClearIfCurrent(ctx, "")
	require.NoError(t, err)
	assert.True(t, applies, "anonymous rejection applies to the no-session state")

	require.NoError(t, store.Save(ctx, "T2", adminIdentity))

	applies, err = store.ClearIfCurrent(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, applies)
	_, ok := store.Snapshot()
	assert.True(t, ok, "stale rejection must not clear the newer session")

	applies, err = store.ClearIfCurrent(ctx, "T2")
	require.NoError(t, err)
	assert.True(t, applies)
	_, ok = store.Snapshot()
	assert.False(t, ok)

	applies, err = store.ClearIfCurrent(ctx, "T2")
	require.NoError(t, err)
	assert.False(t, applies, "second rejection of the same credential is a no-op")
}

func TestCredentialStore_ReplaceIdentity(t *testing.T) {
	ctx := context.Background()
	store := newLoadedStore(t, memory.NewSlotStore())
	require.NoError(t, store.Save(ctx, "T1", adminIdentity))

	demoted := domainauth.Identity{ActorID: "admin", Role: domainauth.RoleUser}
	replaced, err := store.ReplaceIdentity(ctx, "T0", demoted)
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = store.ReplaceIdentity(ctx, "T1", demoted)
	require.NoError(t, err)
	assert.True(t, replaced)
	id, _ := store.ReadIdentity()
	assert.Equal(t, demoted, id)
}

func TestCredentialStore_ReadersNeverSeeHalfSession(t *testing.T) {
	ctx := context.Background()
	store := newLoadedStore(t, memory.NewSlotStore())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = store.Save(ctx, "T1", adminIdentity)
			_ = store.Clear(ctx)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		sess, ok := store.Snapshot()
		if ok {
			require.NotEmpty(t, sess.Credential)
			require.False(t, sess.Identity.IsZero())
		}
	}
}
