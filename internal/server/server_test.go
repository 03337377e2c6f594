package server

import (
	"testing"
)

func TestNewServerNilConfig(t *testing.T) {
	if _, err := NewServer(nil, nil, nil, nil, nil, nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestServerStartStop(t *testing.T) {
	srv := newTestServer(t)
	srv.config.Server.Port = 0 // ephemeral port

	if srv.IsRunning() {
		t.Error("Server should not be running before Start")
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("Server should be running after Start")
	}
	if err := srv.Start(); err == nil {
		t.Error("Expected error starting an already-running server")
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if srv.IsRunning() {
		t.Error("Server should not be running after Stop")
	}
	if err := srv.Stop(); err == nil {
		t.Error("Expected error stopping a stopped server")
	}
}
