package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"ldrmorse/pkg/app"
	"ldrmorse/pkg/app/config"
	"ldrmorse/pkg/session"
	"ldrmorse/pkg/synth"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Morse code reader for a light dependent resistor",
		Version: app.VERSION,
		Description: "Capture the light intensity of a LDR over a MCP3008 ADC and decode the morse code" +
			"\n sent by a flashing light. A button (or the web service) starts and ends a capture session," +
			"\n the decoded messages are archived and published to mqtt.",
		UsageText: "ldrmorse [--config <file>] [--log standard|debug|trace] [command]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the reader and use the configuration file ldrmorse.yaml" +
			"\n\t\tldrmorse --config /opt/womat/ldrmorse.yaml" +
			"\n\tdecode a recorded sample file" +
			"\n\t\tldrmorse decode --file capture.txt" +
			"\n\tgenerate the samples of a message" +
			"\n\t\tldrmorse encode \"CQ DE DL1ABC\" | ldrmorse decode",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
		},
		Action: func(ctx *cli.Context) error {
			return runDaemon(cfg)
		},
		Commands: []*cli.Command{
			decodeCommand(),
			encodeCommand(),
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}

// runDaemon runs the reader until an os.Interrupt signal.
func runDaemon(cfg *config.Config) error {
	if err := cfg.LoadConfig(); err != nil {
		return err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	defer func() {
		debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
		_ = cfg.Debug.File.Close()
	}()

	a, err := app.New(cfg)
	defer func() {
		debug.InfoLog.Printf("closing app %s", app.Version())
		if err := a.Close(); err != nil {
			debug.ErrorLog.Printf("close app: %v", err)
		}
	}()

	if err != nil {
		return err
	}

	debug.InfoLog.Printf("starting app %s", app.Version())
	if err = a.Run(); err != nil {
		return err
	}

	// capture exit signals to ensure resources are released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// wait for am os.Interrupt signal (CTRL C)
	select {
	case sig := <-quit:
		debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
	case <-a.Shutdown():
		debug.InfoLog.Print("shutdown requested")
	}

	return nil
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode a sample file",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "read samples from `FILE` (- is stdin)"},
			&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Value: "preamble", Usage: "`STRATEGY` of the calibration (preamble|statistical)"},
			&cli.StringFlag{Name: "policy", Aliases: []string{"p"}, Value: "skip", Usage: "`POLICY` for unknown patterns (skip|abort)"},
			&cli.Float64Flag{Name: "window", Aliases: []string{"w"}, Value: 0.3, Usage: "`FRACTION` of samples scanned for the threshold"},
			&cli.Float64Flag{Name: "margin", Aliases: []string{"m"}, Value: 0.2, Usage: "class `MARGIN` of the statistical calibration"},
		},
		Action: func(ctx *cli.Context) error {
			debug.SetDebug(os.Stderr, logFlag(ctx))

			c := config.NewConfig()
			c.Decoder.Strategy = ctx.String("strategy")
			c.Decoder.Policy = ctx.String("policy")
			c.Decoder.Window = ctx.Float64("window")
			c.Decoder.Margin = ctx.Float64("margin")

			sc, err := c.SessionConfig()
			if err != nil {
				return err
			}

			samples, err := readSamples(ctx.String("file"))
			if err != nil {
				return err
			}

			s := session.New(sc)
			if err = s.Begin(); err != nil {
				return err
			}
			for _, v := range samples {
				if err = s.Record(v); err != nil {
					return err
				}
			}

			r, err := s.End()
			if err != nil {
				return err
			}

			debug.InfoLog.Printf("%s samples, threshold %d, %v", humanize.Comma(int64(r.Samples)), r.Level.Threshold, r.Units)
			for _, u := range r.Unmatched {
				fmt.Fprintf(ctx.App.ErrWriter, "warning: %v\n", u)
			}
			_, err = fmt.Fprintln(ctx.App.Writer, r.Text)
			return err
		},
	}
}

func encodeCommand() *cli.Command {
	o := synth.DefaultOptions()

	return &cli.Command{
		Name:      "encode",
		Usage:     "print the samples of a text",
		ArgsUsage: "TEXT",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "unit", Aliases: []string{"u"}, Value: o.Unit, Usage: "`SAMPLES` per dot"},
			&cli.IntFlag{Name: "mark", Value: o.Mark, Usage: "`INTENSITY` of blocked light"},
			&cli.IntFlag{Name: "space", Value: o.Space, Usage: "`INTENSITY` of visible light"},
			&cli.BoolFlag{Name: "no-preamble", Usage: "don't send the calibration preamble"},
			&cli.BoolFlag{Name: "end-marker", Usage: "append the end of session marker"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() == 0 {
				return fmt.Errorf("missing text")
			}

			o.Unit = ctx.Int("unit")
			o.Mark = ctx.Int("mark")
			o.Space = ctx.Int("space")
			o.Preamble = !ctx.Bool("no-preamble")
			o.EndMarker = ctx.Bool("end-marker")

			samples, err := synth.Encode(strings.Join(ctx.Args().Slice(), " "), o)
			if err != nil {
				return err
			}
			return synth.WriteSamples(ctx.App.Writer, samples)
		},
	}
}

// logFlag maps the global --log flag of the subcommands to the debug flags.
func logFlag(ctx *cli.Context) int {
	switch ctx.String("log") {
	case "trace", "full":
		return debug.Full
	case "debug":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	default:
		return debug.Error | debug.Fatal
	}
}

func readSamples(file string) ([]int, error) {
	var r io.Reader = os.Stdin

	if file != "-" && file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	return synth.ReadSamples(bufio.NewReader(r))
}
