package config

import "testing"

func validConfig() *Config {
	return &Config{
		LinkMode:        "tcp",
		SNResolutionBits: 28,
		BatchSize:       2048,
		CallbackWorkers: 8,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsUnknownLinkMode(t *testing.T) {
	c := validConfig()
	c.LinkMode = "carrier-pigeon"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown link mode")
	}
}

func TestValidateRejectsOutOfRangeSNResolution(t *testing.T) {
	c := validConfig()
	c.SNResolutionBits = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for sn resolution bits = 0")
	}
	c.SNResolutionBits = 63
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for sn resolution bits = 63")
	}
}

func TestValidateRejectsZeroBatchSizeAndWorkers(t *testing.T) {
	c := validConfig()
	c.BatchSize = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for batch size = 0")
	}
	c = validConfig()
	c.CallbackWorkers = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for callback workers = 0")
	}
}

func TestValidateRejectsUnknownLogLevelAndFormat(t *testing.T) {
	c := validConfig()
	c.LogLevel = "verbose"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
	c = validConfig()
	c.LogFormat = "xml"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestZIDGeneratesRandomWhenEmpty(t *testing.T) {
	c := validConfig()
	z1, err := c.ZID()
	if err != nil {
		t.Fatalf("ZID() = %v", err)
	}
	z2, err := c.ZID()
	if err != nil {
		t.Fatalf("ZID() = %v", err)
	}
	if z1.Equal(z2) {
		t.Fatal("expected two independently generated ZIDs to differ")
	}
	if z1.Len() != 4 {
		t.Fatalf("generated ZID length = %d, want 4", z1.Len())
	}
}

func TestZIDParsesConfiguredHex(t *testing.T) {
	c := validConfig()
	c.ZIDHex = "0102030405"
	z, err := c.ZID()
	if err != nil {
		t.Fatalf("ZID() = %v", err)
	}
	if z.String() != "0102030405" {
		t.Fatalf("ZID().String() = %q, want %q", z.String(), "0102030405")
	}
}

func TestZIDRejectsInvalidHex(t *testing.T) {
	c := validConfig()
	c.ZIDHex = "not-hex"
	if _, err := c.ZID(); err == nil {
		t.Fatal("expected error for non-hex ZIDHex")
	}
}
