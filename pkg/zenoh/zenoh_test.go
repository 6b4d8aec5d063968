package zenoh

import (
	"context"
	"testing"

	"github.com/zenoh-pico-go/zpico/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		LinkMode:         "tcp",
		LinkAddr:         "127.0.0.1:0",
		Version:          1,
		SNResolutionBits: 28,
		BatchSize:        2048,
		LeaseMs:          10000,
		MTU:              65000,
		CallbackWorkers:  4,
		CallbackQueue:    64,
	}
}

func TestSessionConfigMapsFields(t *testing.T) {
	cfg := baseConfig()
	cfg.ZIDHex = "0a0b0c"
	scfg, err := sessionConfig(cfg)
	if err != nil {
		t.Fatalf("sessionConfig() = %v", err)
	}
	if scfg.LocalZID.String() != "0a0b0c" {
		t.Fatalf("LocalZID = %q, want %q", scfg.LocalZID.String(), "0a0b0c")
	}
	if scfg.SNResolution != 28 {
		t.Fatalf("SNResolution = %d, want 28", scfg.SNResolution)
	}
	if scfg.BatchSize != 2048 {
		t.Fatalf("BatchSize = %d, want 2048", scfg.BatchSize)
	}
	if scfg.Transport.MTU != 65000 {
		t.Fatalf("Transport.MTU = %d, want 65000", scfg.Transport.MTU)
	}
}

func TestSessionConfigPropagatesZIDError(t *testing.T) {
	cfg := baseConfig()
	cfg.ZIDHex = "not-hex"
	if _, err := sessionConfig(cfg); err == nil {
		t.Fatal("expected error from invalid ZIDHex")
	}
}

func TestDialLinkRejectsUnknownMode(t *testing.T) {
	cfg := baseConfig()
	cfg.LinkMode = "carrier-pigeon"
	if _, err := dialLink(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown link mode")
	}
}

func TestDialLinkTCPFailsWithoutListener(t *testing.T) {
	cfg := baseConfig()
	cfg.LinkAddr = "127.0.0.1:1" // nothing listens on a privileged port in test
	if _, err := dialLink(context.Background(), cfg); err == nil {
		t.Fatal("expected dial error when nothing is listening")
	}
}
