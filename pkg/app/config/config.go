package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
	"ldrmorse/pkg/calibrate"
	"ldrmorse/pkg/morse"
	"ldrmorse/pkg/session"
	"ldrmorse/pkg/threshold"
)

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag      FlagConfig      `yaml:"-"`
	Gpio      GpioConfig      `yaml:"gpio"`
	ADC       ADCConfig       `yaml:"adc"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
}

// GpioConfig defines the button and the status LEDs (BCM GPIO numbers, -1 is unused).
type GpioConfig struct {
	Button      int           `yaml:"button"`
	Terminator  string        `yaml:"terminator"`
	BounceInt   int           `yaml:"bouncetime"`
	BounceTime  time.Duration `yaml:"-"`
	HoldOffInt  int           `yaml:"holdoff"`
	HoldOff     time.Duration `yaml:"-"`
	ReadyLED    int           `yaml:"readyled"`
	CaptureLED  int           `yaml:"captureled"`
	ErrorLED    int           `yaml:"errorled"`
	DisableGpio bool          `yaml:"disable"`
}

// ADCConfig defines the light sensor.
// If ReplayFile is set, the samples are read from the file instead of the MCP3008.
type ADCConfig struct {
	Clk        int           `yaml:"clk"`
	Csz        int           `yaml:"csz"`
	Mosi       int           `yaml:"mosi"`
	Miso       int           `yaml:"miso"`
	Channel    int           `yaml:"channel"`
	ClockInt   int           `yaml:"clock"`
	Clock      time.Duration `yaml:"-"`
	RateInt    int           `yaml:"rate"`
	Interval   time.Duration `yaml:"-"`
	ReplayFile string        `yaml:"replayfile"`
	ReplayLoop bool          `yaml:"replayloop"`
}

// DecoderConfig defines the decoding of a session.
type DecoderConfig struct {
	Strategy    string        `yaml:"strategy"`
	Policy      string        `yaml:"policy"`
	Window      float64       `yaml:"window"`
	Margin      float64       `yaml:"margin"`
	Capacity    int           `yaml:"capacity"`
	StreamAfter int           `yaml:"streamafter"`
	PollInt     int           `yaml:"poll"`
	Poll        time.Duration `yaml:"-"`
}

// ArchiveConfig defines the sqlite history of decoded sessions. An empty file disables the archive.
type ArchiveConfig struct {
	File      string `yaml:"file"`
	Retention int    `yaml:"retention"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		Gpio: GpioConfig{
			Button:     17,
			Terminator: "pullup",
			BounceInt:  20,
			HoldOffInt: 500,
			ReadyLED:   22,
			CaptureLED: 23,
			ErrorLED:   24,
		},
		ADC: ADCConfig{
			Clk:      11,
			Csz:      8,
			Mosi:     10,
			Miso:     9,
			Channel:  0,
			ClockInt: 1,
			RateInt:  200,
		},
		Decoder: DecoderConfig{
			Strategy: calibrate.PreambleStrategy.String(),
			Policy:   morse.PolicySkip.String(),
			Window:   threshold.DefaultWindow,
			Margin:   calibrate.DefaultMargin,
			PollInt:  500,
		},
		Archive: ArchiveConfig{
			Retention: 1000,
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version":  true,
				"health":   true,
				"message":  true,
				"session":  true,
				"sessions": true,
				"control":  true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "/ldrmorse/message",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return c.convert()
}

// convert calculates the durations of the configured integers and validates the decoder section.
func (c *Config) convert() error {
	c.Gpio.BounceTime = time.Duration(c.Gpio.BounceInt) * time.Millisecond
	c.Gpio.HoldOff = time.Duration(c.Gpio.HoldOffInt) * time.Millisecond
	c.ADC.Clock = time.Duration(c.ADC.ClockInt) * time.Microsecond
	c.Decoder.Poll = time.Duration(c.Decoder.PollInt) * time.Millisecond

	if c.ADC.RateInt <= 0 {
		return fmt.Errorf("invalid sample rate %d Hz", c.ADC.RateInt)
	}
	c.ADC.Interval = time.Second / time.Duration(c.ADC.RateInt)

	_, err := c.SessionConfig()
	return err
}

// SessionConfig converts the decoder section to the session parameters.
func (c *Config) SessionConfig() (session.Config, error) {
	s := session.DefaultConfig()

	strategy, err := calibrate.ParseStrategy(c.Decoder.Strategy)
	if err != nil {
		return s, err
	}
	policy, err := morse.ParsePolicy(c.Decoder.Policy)
	if err != nil {
		return s, err
	}
	if c.Decoder.Window < 0 || c.Decoder.Window > 1 {
		return s, fmt.Errorf("invalid threshold window %v, expected (0,1]", c.Decoder.Window)
	}
	if c.Decoder.Margin != 0 && (c.Decoder.Margin < calibrate.MinMargin || c.Decoder.Margin > calibrate.MaxMargin) {
		return s, fmt.Errorf("invalid margin %v, expected [%v,%v]", c.Decoder.Margin, calibrate.MinMargin, calibrate.MaxMargin)
	}
	if c.Decoder.Capacity < 0 || c.Decoder.StreamAfter < 0 {
		return s, fmt.Errorf("invalid capacity %d or streamafter %d", c.Decoder.Capacity, c.Decoder.StreamAfter)
	}
	if c.Decoder.Capacity > 0 && (c.Decoder.StreamAfter == 0 || c.Decoder.StreamAfter > c.Decoder.Capacity) {
		return s, fmt.Errorf("a circular buffer of %d samples needs streaming with streamafter in (0,%d]",
			c.Decoder.Capacity, c.Decoder.Capacity)
	}

	s.Strategy = strategy
	s.Policy = policy
	if c.Decoder.Window > 0 {
		s.Window = c.Decoder.Window
	}
	if c.Decoder.Margin > 0 {
		s.Margin = c.Decoder.Margin
	}
	s.Capacity = c.Decoder.Capacity
	s.StreamAfter = c.Decoder.StreamAfter
	return s, nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown log level %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
