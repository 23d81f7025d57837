package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ldrmorse/pkg/calibrate"
	"ldrmorse/pkg/morse"
)

func writeConfig(t *testing.T, content string) *Config {
	t.Helper()
	file := filepath.Join(t.TempDir(), "ldrmorse.yaml")
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := NewConfig()
	c.Flag.ConfigFile = file
	return c
}

func TestLoadConfig(t *testing.T) {
	c := writeConfig(t, `
gpio:
  button: 5
  holdoff: 250
adc:
  rate: 100
decoder:
  strategy: statistical
  policy: abort
  margin: 0.3
  capacity: 4096
  streamafter: 1000
archive:
  file: /tmp/ldrmorse.db
debug:
  flag: debug
  file: stdout
webserver:
  webservices:
    health: false
mqtt:
  connection: tcp://127.0.0.1:1883
`)

	if err := c.LoadConfig(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Gpio.Button != 5 || c.Gpio.HoldOff != 250*time.Millisecond || c.Gpio.BounceTime != 20*time.Millisecond {
		t.Fatalf("gpio=%+v", c.Gpio)
	}
	if c.ADC.Interval != 10*time.Millisecond {
		t.Fatalf("interval=%v", c.ADC.Interval)
	}
	if c.Webserver.Webservices["health"] || !c.Webserver.Webservices["version"] {
		t.Fatalf("webservices=%v", c.Webserver.Webservices)
	}
	if c.Debug.File != os.Stdout {
		t.Fatalf("debug file not stdout")
	}

	s, err := c.SessionConfig()
	if err != nil {
		t.Fatalf("session config: %v", err)
	}
	if s.Strategy != calibrate.StatisticalStrategy || s.Policy != morse.PolicyAbort || s.Margin != 0.3 {
		t.Fatalf("session config=%+v", s)
	}
	if s.Capacity != 4096 || s.StreamAfter != 1000 || s.Window != 0.3 {
		t.Fatalf("session config=%+v", s)
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []string{
		"decoder:\n  strategy: guess\n",
		"decoder:\n  policy: guess\n",
		"decoder:\n  margin: 0.9\n",
		"decoder:\n  window: 1.5\n",
		"decoder:\n  capacity: 100\n",
		"decoder:\n  capacity: 100\n  streamafter: 200\n",
		"adc:\n  rate: 0\n",
		"debug:\n  flag: chatty\n",
	}

	for _, content := range tests {
		c := writeConfig(t, content)
		if err := c.LoadConfig(); err == nil {
			t.Fatalf("config %q accepted", content)
		}
	}

	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := c.LoadConfig(); err == nil {
		t.Fatalf("missing config file accepted")
	}
}
