package raspberry

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpio/spi/mcp3w0c"
)

// ADC reads the light sensor from a MCP3008 connected by bit banged SPI.
type ADC struct {
	mu      sync.Mutex
	adc     *mcp3w0c.MCP3w0c
	channel int
}

// SPIPins are the BCM GPIO numbers of the SPI bus.
type SPIPins struct {
	Clk  int
	Csz  int
	Mosi int
	Miso int
}

// OpenADC maps the GPIO memory range from /dev/gpiomem and sets up the converter.
func OpenADC(p SPIPins, channel int, tclk time.Duration) (*ADC, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("%w: adc channel %d", ErrInvalidParam, channel)
	}
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	return &ADC{
		adc:     mcp3w0c.NewMCP3008(tclk, p.Clk, p.Csz, p.Mosi, p.Miso),
		channel: channel,
	}, nil
}

// Read returns the 10 bit value of the channel.
func (a *ADC) Read() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.adc == nil {
		return 0, fmt.Errorf("%w: adc closed", ErrInvalidParam)
	}
	return int(a.adc.Read(a.channel)), nil
}

// Close releases the SPI pins and unmaps GPIO memory.
func (a *ADC) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.adc == nil {
		return nil
	}
	a.adc.Close()
	a.adc = nil
	return gpio.Close()
}
