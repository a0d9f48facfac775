package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCreateAndGet(t *testing.T) {
	m := NewMemory(0)
	sess, err := m.Create(context.Background(), "http")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := m.Get(context.Background(), sess.ID)
	if err != nil || !ok {
		t.Fatalf("expected session found, ok=%v err=%v", ok, err)
	}
	if got.Transport != "http" {
		t.Fatalf("unexpected transport: %q", got.Transport)
	}
}

func TestMemoryInitializeRequiresInitBeforeFlag(t *testing.T) {
	m := NewMemory(0)
	sess, _ := m.Create(context.Background(), "stdio")
	if sess.IsInitialized {
		t.Fatalf("new session should not be initialized")
	}
	if err := m.Initialize(context.Background(), sess.ID, map[string]interface{}{"name": "client"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	got, _, _ := m.Get(context.Background(), sess.ID)
	if !got.IsInitialized {
		t.Fatalf("expected isInitialized=true after Initialize")
	}
}

func TestMemoryInitializeUnknownSession(t *testing.T) {
	m := NewMemory(0)
	if err := m.Initialize(context.Background(), "missing", nil); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryMaxSessionsEvictsOldestIdle(t *testing.T) {
	m := NewMemory(1)
	first, _ := m.Create(context.Background(), "http")
	time.Sleep(2 * time.Millisecond)
	second, _ := m.Create(context.Background(), "http")

	if _, ok, _ := m.Get(context.Background(), first.ID); ok {
		t.Fatalf("expected oldest session evicted")
	}
	if _, ok, _ := m.Get(context.Background(), second.ID); !ok {
		t.Fatalf("expected newest session retained")
	}
}

func TestMemorySweepEvictsIdleSessions(t *testing.T) {
	m := NewMemory(0)
	sess, _ := m.Create(context.Background(), "http")
	time.Sleep(5 * time.Millisecond)

	evicted, err := m.Sweep(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, ok, _ := m.Get(context.Background(), sess.ID); ok {
		t.Fatalf("expected session removed after sweep")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	key, _ := GenerateSigningKey()
	m := NewJWT(key, time.Hour)

	sess, err := m.Create(context.Background(), "websocket")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, ok, err := m.Get(context.Background(), sess.ID)
	if err != nil || !ok {
		t.Fatalf("expected token to decode, ok=%v err=%v", ok, err)
	}
	if got.Transport != "websocket" {
		t.Fatalf("unexpected transport: %q", got.Transport)
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	key, _ := GenerateSigningKey()
	m := NewJWT(key, time.Hour)
	sess, _ := m.Create(context.Background(), "http")

	tampered := sess.ID + "x"
	if _, ok, _ := m.Get(context.Background(), tampered); ok {
		t.Fatalf("expected tampered token rejected")
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	key, _ := GenerateSigningKey()
	m := NewJWT(key, time.Millisecond)
	sess, _ := m.Create(context.Background(), "http")

	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := m.Get(context.Background(), sess.ID); ok {
		t.Fatalf("expected expired token rejected")
	}
}

func TestJWTInitializeTokenSetsFlag(t *testing.T) {
	key, _ := GenerateSigningKey()
	m := NewJWT(key, time.Hour)
	sess, _ := m.Create(context.Background(), "http")

	newToken, err := m.InitializeToken(context.Background(), sess.ID, map[string]interface{}{"name": "client"})
	if err != nil {
		t.Fatalf("initializeToken: %v", err)
	}
	got, ok, _ := m.Get(context.Background(), newToken)
	if !ok || !got.IsInitialized {
		t.Fatalf("expected new token initialized, got %v ok=%v", got, ok)
	}
}
