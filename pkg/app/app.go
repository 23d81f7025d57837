package app

import (
	"errors"
	"net/url"
	"os"
	"sync"

	"ldrmorse/pkg/app/config"
	"ldrmorse/pkg/archive"
	"ldrmorse/pkg/mqtt"
	"ldrmorse/pkg/port"
	"ldrmorse/pkg/raspberry"
	"ldrmorse/pkg/session"
	"ldrmorse/pkg/synth"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/womat/debug"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// session decodes the captured samples
	session *session.Session

	// archive is the history of decoded sessions, nil if disabled
	archive *archive.Archive

	// chip is the gpio character device, nil if gpio is disabled
	chip *raspberry.Chip
	// button toggles the capture session, nil if no button is configured
	button *raspberry.Button
	// sensor reads the light intensity
	sensor port.Sensor
	// status LEDs
	readyLED   port.Indicator
	captureLED port.Indicator
	errorLED   port.Indicator

	// toggle serializes begin and end of a session triggered by button and web requests
	toggle sync.Mutex

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
	// quit stops the acquisition loops
	quit     chan struct{}
	quitOnce sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	sc, err := config.SessionConfig()
	if err != nil {
		debug.ErrorLog.Printf("invalid decoder configuration: %v", err)
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web: fiber.New(fiber.Config{
			AppName:               MODULE,
			DisableStartupMessage: true,
			JSONEncoder:           json.Marshal,
			JSONDecoder:           json.Unmarshal,
		}),
		mqtt:    mqtt.New(MODULE),
		session: session.New(sc),

		readyLED:   &port.Memory{},
		captureLED: &port.Memory{},
		errorLED:   &port.Memory{},

		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
		quit:     make(chan struct{}),
	}, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.runSampler()
	go app.runPoller()
	if app.button != nil {
		go app.runButton()
	}

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.initSensor(); err != nil {
		debug.ErrorLog.Printf("can't open light sensor: %v", err)
		return err
	}

	if err = app.initGpio(); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	if app.config.Archive.File != "" {
		if app.archive, err = archive.Open(app.config.Archive.File, app.config.Archive.Retention); err != nil {
			debug.ErrorLog.Printf("can't open archive: %v", err)
			return err
		}
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	app.setLEDs(false, false)

	// initDefaultRoutes should be always called last because it may access things like app.archive
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// initSensor opens the MCP3008 or the replay file.
func (app *App) initSensor() error {
	c := app.config.ADC

	if c.ReplayFile != "" {
		f, err := os.Open(c.ReplayFile)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		samples, err := synth.ReadSamples(f)
		if err != nil {
			return err
		}

		debug.InfoLog.Printf("replay %d samples of %v", len(samples), c.ReplayFile)
		app.sensor = port.NewReplay(samples, c.ReplayLoop)
		return nil
	}

	adc, err := raspberry.OpenADC(raspberry.SPIPins{Clk: c.Clk, Csz: c.Csz, Mosi: c.Mosi, Miso: c.Miso}, c.Channel, c.Clock)
	if err != nil {
		return err
	}
	app.sensor = adc
	return nil
}

// initGpio requests the button and the LED lines. Lines with a negative number are unused.
func (app *App) initGpio() (err error) {
	c := app.config.Gpio
	if c.DisableGpio {
		debug.InfoLog.Print("gpio disabled, sessions are controlled by web services")
		return nil
	}

	if app.chip, err = raspberry.Open(); err != nil {
		return err
	}

	if c.Button >= 0 {
		if app.button, err = app.chip.NewButton(c.Button, c.Terminator, c.BounceTime, c.HoldOff); err != nil {
			return err
		}
	}

	leds := []struct {
		gpio int
		led  *port.Indicator
	}{
		{c.ReadyLED, &app.readyLED},
		{c.CaptureLED, &app.captureLED},
		{c.ErrorLED, &app.errorLED},
	}
	for _, l := range leds {
		if l.gpio < 0 {
			continue
		}
		led, err := app.chip.NewLED(l.gpio)
		if err != nil {
			return err
		}
		*l.led = led
	}
	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops the acquisition and releases all resources.
func (app *App) Close() error {
	var errs []error

	if app.quit != nil {
		app.quitOnce.Do(func() { close(app.quit) })
	}
	if app.session != nil {
		app.session.Terminate()
	}
	if app.web != nil {
		errs = append(errs, app.web.Shutdown())
	}
	if app.mqtt != nil {
		errs = append(errs, app.mqtt.Disconnect())
	}

	for _, c := range []interface{ Close() error }{app.readyLED, app.captureLED, app.errorLED} {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	if app.button != nil {
		errs = append(errs, app.button.Close())
	}
	if app.chip != nil {
		errs = append(errs, app.chip.Close())
	}
	if app.sensor != nil {
		errs = append(errs, app.sensor.Close())
	}
	if app.archive != nil {
		errs = append(errs, app.archive.Close())
	}

	return errors.Join(errs...)
}
