package client

import (
	"context"
	gosync "sync"
	"testing"
)

func TestSessionStore_InitialState_IsUnknown(t *testing.T) {
	api := newFakeAPI(t)
	store := NewSessionStore(api.newClient())

	if store.State() != AuthUnknown {
		t.Errorf("state = %q, want %q", store.State(), AuthUnknown)
	}
}

func TestSessionStore_Initialize_SignedIn(t *testing.T) {
	api := newFakeAPI(t)
	api.setSignedIn(true)
	store := NewSessionStore(api.newClient())

	store.Initialize(context.Background())

	if store.State() != AuthSignedIn {
		t.Errorf("state = %q, want %q", store.State(), AuthSignedIn)
	}
	user := store.User()
	if user == nil || user.ID != "user-1" {
		t.Errorf("user = %+v, want user-1", user)
	}
}

func TestSessionStore_Initialize_NoSession_SignedOut(t *testing.T) {
	api := newFakeAPI(t)
	store := NewSessionStore(api.newClient())

	store.Initialize(context.Background())

	if store.State() != AuthSignedOut {
		t.Errorf("state = %q, want %q", store.State(), AuthSignedOut)
	}
	if store.User() != nil {
		t.Error("user should be nil when signed out")
	}
}

func TestSessionStore_OnAuthChange_NotifiesListeners(t *testing.T) {
	api := newFakeAPI(t)
	api.setSignedIn(true)
	store := NewSessionStore(api.newClient())

	var mu gosync.Mutex
	var gotStates []AuthState
	store.OnAuthChange(func(state AuthState, user *UserInfo) {
		mu.Lock()
		gotStates = append(gotStates, state)
		mu.Unlock()
	})

	store.Initialize(context.Background())
	store.SignOut(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(gotStates) != 2 {
		t.Fatalf("notifications = %d, want 2", len(gotStates))
	}
	if gotStates[0] != AuthSignedIn || gotStates[1] != AuthSignedOut {
		t.Errorf("states = %v, want [signed_in signed_out]", gotStates)
	}
}

func TestSessionStore_OnAuthChange_DeregisteredListenerNotCalled(t *testing.T) {
	api := newFakeAPI(t)
	api.setSignedIn(true)
	store := NewSessionStore(api.newClient())

	called := false
	cancel := store.OnAuthChange(func(state AuthState, user *UserInfo) {
		called = true
	})
	cancel()

	store.Initialize(context.Background())

	if called {
		t.Error("deregistered listener must not be called")
	}
}

func TestSessionStore_SignOut_ClearsStateEvenIfRequestFails(t *testing.T) {
	api := newFakeAPI(t)
	api.setSignedIn(true)
	store := NewSessionStore(api.newClient())
	store.Initialize(context.Background())

	// サーバーを停止してログアウトリクエストを失敗させる
	api.server.Close()

	store.SignOut(context.Background())

	if store.State() != AuthSignedOut {
		t.Errorf("state = %q, want %q even if the request fails", store.State(), AuthSignedOut)
	}
}

func TestSessionStore_SignInURL(t *testing.T) {
	api := newFakeAPI(t)
	store := NewSessionStore(api.newClient())

	want := api.server.URL + "/auth/google/login"
	if got := store.SignInURL(); got != want {
		t.Errorf("SignInURL() = %q, want %q", got, want)
	}
}
