package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/fixture"
	"github.com/loqalabs/loqa-sam/internal/renderer"
)

var version = "0.1.0-dev"

const usage = "expected 'verify', 'record', 'speak' or 'version'"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New(usage)

func run(cmd string, args []string, stdout io.Writer) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	eng := engine.New(logger)

	switch cmd {
	case "verify":
		fs := flag.NewFlagSet("verify", flag.ContinueOnError)
		file := fs.String("file", "fixtures.yaml", "Path to a YAML or JSON fixture file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return runVerify(eng, *file, stdout)
	case "record":
		fs := flag.NewFlagSet("record", flag.ContinueOnError)
		voice := voiceFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return runRecord(eng, fs.Args(), voice, stdout)
	case "speak":
		fs := flag.NewFlagSet("speak", flag.ContinueOnError)
		out := fs.String("out", "sam.wav", "Output WAV path")
		voice := voiceFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return runSpeak(eng, strings.Join(fs.Args(), " "), *voice, *out, stdout)
	case "version":
		fmt.Fprintln(stdout, version)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func voiceFlags(fs *flag.FlagSet) *renderer.Options {
	v := renderer.DefaultOptions()
	fs.Func("pitch", "Voice pitch 0-255 (default 64)", byteFlag(&v.Pitch))
	fs.Func("speed", "Voice speed 1-255 (default 72)", byteFlag(&v.Speed))
	fs.Func("mouth", "Mouth formant scale 0-255 (default 128)", byteFlag(&v.Mouth))
	fs.Func("throat", "Throat formant scale 0-255 (default 128)", byteFlag(&v.Throat))
	fs.BoolVar(&v.Sing, "sing", false, "Keep stress pitch without formant contour")
	return &v
}

func byteFlag(target *uint8) func(string) error {
	return func(s string) error {
		var n int
		if _, err := fmt.Sscan(s, &n); err != nil || n < 0 || n > 255 {
			return fmt.Errorf("value %q must be between 0 and 255", s)
		}
		*target = uint8(n)
		return nil
	}
}

func runVerify(eng *engine.Engine, path string, stdout io.Writer) error {
	records, err := fixture.Load(path)
	if err != nil {
		return err
	}
	failed := 0
	for _, rec := range records {
		mismatches, err := fixture.Verify(eng, rec)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %q: %v\n", rec.Input, err)
			continue
		}
		if len(mismatches) > 0 {
			failed++
			fmt.Fprintf(stdout, "FAIL %q\n", rec.Input)
			for _, m := range mismatches {
				fmt.Fprintf(stdout, "  %s\n", m)
			}
			continue
		}
		fmt.Fprintf(stdout, "ok   %q\n", rec.Input)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, len(records))
	}
	return nil
}

func runRecord(eng *engine.Engine, inputs []string, voice *renderer.Options, stdout io.Writer) error {
	if len(inputs) == 0 {
		return fmt.Errorf("record needs at least one input text: %w", errUsage)
	}
	var v *renderer.Options
	if *voice != renderer.DefaultOptions() {
		v = voice
	}
	records := make([]fixture.Record, 0, len(inputs))
	for _, in := range inputs {
		rec, err := fixture.Capture(eng, in, v)
		if err != nil {
			return fmt.Errorf("record %q: %w", in, err)
		}
		records = append(records, rec)
	}
	return fixture.Write(stdout, records)
}

func runSpeak(eng *engine.Engine, text string, voice renderer.Options, out string, stdout io.Writer) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("speak needs input text: %w", errUsage)
	}
	sp, err := eng.Speak(text, voice)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := engine.WriteWAV(f, sp.Samples); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s, %d ms\n", out, sp.Phonemes, sp.DurationMillis())
	return nil
}
