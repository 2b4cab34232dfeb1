// Command midibridge plays Standard MIDI Files through one of the bridge
// backends and lists the MIDI output ports of the current platform.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/midibridge/internal/audio"
	"github.com/leandrodaf/midibridge/internal/config"
	"github.com/leandrodaf/midibridge/internal/logger"
	"github.com/leandrodaf/midibridge/internal/sequence"
	"github.com/leandrodaf/midibridge/internal/synth"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/leandrodaf/midibridge/sdk/midi"
)

const usage = `usage: midibridge <command> [flags]

commands:
  ports              list MIDI output ports
  play [flags] FILE  play a Standard MIDI File

run "midibridge play -h" for the play flags
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "ports":
		err = runPorts(stdout)
	case "play":
		err = runPlay(ctx, args[1:], stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	fmt.Fprintln(stderr, "midibridge:", err)
	return 1
}

var errUsage = errors.New("usage")

func runPorts(stdout io.Writer) error {
	log := logger.NewDevelopmentLogger()
	log.SetLevel(contracts.WarnLevel)
	devices, err := midi.ListPorts(contracts.WithLogger(log))
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.Manufacturer != "" {
			fmt.Fprintf(stdout, "%d\t%s\t(%s)\n", d.Number, d.Name, d.Manufacturer)
			continue
		}
		fmt.Fprintf(stdout, "%d\t%s\n", d.Number, d.Name)
	}
	return nil
}

// playFlags are the command line overrides of config.Config.
type playFlags struct {
	configPath string
	debug      bool
	file       string
}

func parsePlay(args []string, stderr io.Writer) (*config.Config, playFlags, error) {
	var pf playFlags
	defaultPath, _ := config.ConfigPath()

	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&pf.configPath, "config", defaultPath, "path to the JSON config file")
	fs.BoolVar(&pf.debug, "debug", false, "log every message at debug level")
	backend := fs.String("backend", "", "backend: null, port or synth")
	port := fs.String("port", "", "output port name (empty selects the first port)")
	virtual := fs.Bool("virtual", false, "create a virtual port named -port")
	autoreset := fs.Bool("autoreset", false, "reset all channels after opening the backend")
	soundfont := fs.String("soundfont", "", "SoundFont file for the synth backend")
	tempo := fs.Float64("tempo", 0, "tempo factor (2 plays twice as fast)")
	velocity := fs.Float64("velocity", 0, "note on velocity factor")
	logFile := fs.String("log-file", "", "also write logs to this file")
	if err := fs.Parse(args); err != nil {
		return nil, pf, err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "play expects exactly one MIDI file")
		fs.Usage()
		return nil, pf, errUsage
	}
	pf.file = fs.Arg(0)

	cfg, err := config.Load(pf.configPath)
	if err != nil {
		return nil, pf, err
	}
	// Explicitly set flags win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "port":
			cfg.Port = *port
		case "virtual":
			cfg.Virtual = *virtual
		case "autoreset":
			cfg.Autoreset = *autoreset
		case "soundfont":
			cfg.SoundFont = *soundfont
		case "tempo":
			cfg.Tempo = *tempo
		case "velocity":
			cfg.Velocity = *velocity
		case "log-file":
			cfg.LogFile = *logFile
		}
	})
	if pf.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, pf, err
	}
	return cfg, pf, nil
}

func runPlay(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, pf, err := parsePlay(args, stderr)
	if err != nil {
		return err
	}

	log := logger.NewDevelopmentLogger()
	opts := append([]contracts.Option{contracts.WithLogger(log)}, cfg.Options()...)

	if cfg.Backend == string(contracts.SynthBackend) {
		engine, sink, err := startSynth(ctx, cfg.SoundFont, log)
		if err != nil {
			log.Error("Failed to start the synthesizer", log.Field().Error("error", err))
			return err
		}
		defer sink.Close()
		opts = append(opts, contracts.WithSynthesizer(engine))
	}

	perf, err := sequence.LoadFile(pf.file, log)
	if err != nil {
		return err
	}
	player, err := sequence.NewPlayer(log,
		sequence.WithTempo(cfg.Tempo),
		sequence.WithVelocityFactor(cfg.Velocity))
	if err != nil {
		return err
	}

	d, err := midi.Open(ctx, opts...)
	if err != nil {
		log.Error("Failed to open backend",
			log.Field().String("backend", cfg.Backend),
			log.Field().String("port", cfg.Port),
			log.Field().Error("error", err))
		return err
	}
	defer d.Close()

	err = player.Play(ctx, perf, d)
	if errors.Is(err, context.Canceled) {
		log.Info("Interrupted; silencing all channels")
		if perr := d.Panic(); perr != nil {
			log.Warn("Panic sequence failed", log.Field().Error("error", perr))
		}
		return nil
	}
	if dropped := d.Dropped(); dropped > 0 {
		log.Warn("Some messages were dropped", log.Field().Uint64("dropped", dropped))
	}
	return err
}

func startSynth(ctx context.Context, soundfont string, log contracts.Logger) (*synth.Engine, *audio.Sink, error) {
	if soundfont == "" {
		return nil, nil, fmt.Errorf("%w: the synth backend needs -soundfont", contracts.ErrMalformedRequest)
	}
	data, err := os.ReadFile(soundfont)
	if err != nil {
		return nil, nil, err
	}
	engine := synth.NewEngine(log)
	if _, err := engine.LoadInstrument(data); err != nil {
		return nil, nil, err
	}
	sink, err := audio.NewSink(ctx, engine, synth.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrDeviceUnavailable, err)
	}
	return engine, sink, nil
}
