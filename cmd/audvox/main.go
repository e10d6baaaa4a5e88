// SPDX-License-Identifier: EPL-2.0

// Command audvox is an interactive shell around the playback engine.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/ik5/audvox"
	"github.com/ik5/audvox/engine"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := audvox.NewConfig()

	sinkName := flag.String("sink", "oto", "output: null, wav, oto or beep")
	flag.StringVar(&cfg.WAVPath, "wav", cfg.WAVPath, "file written by the wav sink")
	flag.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "output sample rate")
	flag.IntVar(&cfg.Channels, "channels", cfg.Channels, "output channels")
	level := flag.String("log", "warning", "log level")
	flag.Parse()

	kind, err := audvox.ParseSinkKind(*sinkName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v: %s\n", err, *sinkName)
		os.Exit(2)
	}
	cfg.Sink = kind
	if cfg.Channels != 2 {
		cfg.ChannelMask = 0
	}

	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(2)
	}
	logger := logrus.New()
	logger.SetLevel(lvl)
	cfg.Logger = logger

	e, err := audvox.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer e.Release()

	if !e.StartEngine() {
		fmt.Fprintln(os.Stderr, "[ERROR] audio output did not start")
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "audvox> ",
		AutoComplete: completer(),
		HistoryFile:  historyFile(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return
	}
	defer rl.Close()
	logger.SetOutput(rl.Stderr())

	sh := newShell(e, audvox.DefaultRegistry(), rl.Stdout())
	e.SetOnFinished(func(id engine.VoiceID) {
		sh.printf("voice %d finished", id)
	})

	fmt.Fprintf(rl.Stdout(), "%s sink, %d Hz, %d channels. Type help.\n", kind, cfg.SampleRate, cfg.Channels)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			return
		}

		err = sh.exec(line)
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintf(rl.Stdout(), " [!] %v\n", err)
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".audvox_history")
}

func completer() *readline.PrefixCompleter {
	files := readline.PcItemDynamic(listFiles)

	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for name := range commands {
		switch name {
		case "load", "play", "decode":
			items = append(items, readline.PcItem(name, files))
		case "fx":
			items = append(items, readline.PcItem(name,
				readline.PcItem("reverb"), readline.PcItem("eq"), readline.PcItem("echo")))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// listFiles completes the last word of line as a path.
func listFiles(line string) []string {
	fields := strings.Fields(line)
	prefix := ""
	if len(fields) > 1 && !strings.HasSuffix(line, " ") {
		prefix = fields[len(fields)-1]
	}

	dir := filepath.Dir(prefix)
	if prefix == "" {
		dir = "."
	}

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names
}
