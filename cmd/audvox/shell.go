// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/engine"
)

var (
	errUsage   = errors.New("usage")
	errFailed  = errors.New("engine refused the request")
	errUnknown = errors.New("unknown command")
	errQuit    = errors.New("quit")
)

type command struct {
	args string
	help string
	run  func(sh *shell, args []string) error
}

// shell executes one command line at a time against an engine. Output
// may also come from engine callbacks, so writes are serialized.
type shell struct {
	e   *engine.Engine
	reg *audio.Registry

	mtx sync.Mutex
	out io.Writer
}

func newShell(e *engine.Engine, reg *audio.Registry, out io.Writer) *shell {
	return &shell{e: e, reg: reg, out: out}
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {"", "list commands", (*shell).help},
		"quit":      {"", "leave the shell", func(*shell, []string) error { return errQuit }},
		"load":      {"<path>", "load a file into a bank", (*shell).load},
		"unload":    {"<bank>", "remove a bank and its voices", (*shell).unload},
		"play":      {"<path> [bus]", "play a file once", (*shell).play},
		"voice":     {"<bank> [bus]", "create a voice on a bank", (*shell).voice},
		"start":     {"<voice> [sample]", "start a voice", (*shell).start},
		"stop":      {"<voice> [fade]", "stop a voice", (*shell).stop},
		"pause":     {"<voice> [fade]", "push the pause stack", (*shell).pause},
		"resume":    {"<voice> [fade]", "pop the pause stack", (*shell).resume},
		"protect":   {"<voice>", "exclude a voice from bulk commands", (*shell).protect},
		"volume":    {"<voice> <volume> [fade]", "set the voice volume", (*shell).volume},
		"speed":     {"<voice> <ratio> [fade]", "set the playback speed", (*shell).speed},
		"pan":       {"<voice> <panning> [fade]", "set the stereo position", (*shell).pan},
		"loop":      {"<voice> on|off [start end]", "toggle looping", (*shell).loop},
		"info":      {"<voice>", "show the voice state", (*shell).info},
		"bus":       {"", "create a bus", (*shell).bus},
		"rmbus":     {"<bus>", "remove a bus", (*shell).rmbus},
		"busvol":    {"<bus> <volume> [fade]", "set a bus volume", (*shell).busVolume},
		"master":    {"<volume> [fade]", "set the master volume", (*shell).master},
		"fx":        {"reverb|eq|echo <voice|bN> on|off [fade]", "toggle an effect", (*shell).effect},
		"pauseall":  {"[fade] [bus]", "pause every unprotected voice", (*shell).pauseAll},
		"resumeall": {"[fade] [bus]", "resume every unprotected voice", (*shell).resumeAll},
		"stopall":   {"[fade] [bus]", "stop every unprotected voice", (*shell).stopAll},
		"stats":     {"", "count banks and voices", (*shell).stats},
		"decode":    {"<path>", "decode a file and print its peak", (*shell).decode},
	}
}

// exec runs one line. Empty lines are ignored.
func (sh *shell) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknown, fields[0])
	}

	err := cmd.run(sh, fields[1:])
	if errors.Is(err, errUsage) {
		return fmt.Errorf("%w: %s %s", errUsage, fields[0], cmd.args)
	}
	return err
}

func (sh *shell) printf(format string, args ...any) {
	sh.mtx.Lock()
	defer sh.mtx.Unlock()

	fmt.Fprintf(sh.out, format+"\n", args...)
}

func (sh *shell) help([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		c := commands[name]
		sh.printf("  %-10s %-40s %s", name, c.args, c.help)
	}
	return nil
}

func argInt(args []string, i int, def int32) (int32, error) {
	if i >= len(args) {
		return def, nil
	}
	n, err := strconv.ParseInt(args[i], 10, 32)
	if err != nil {
		return 0, errUsage
	}
	return int32(n), nil
}

func argFloat(args []string, i int, def float32) (float32, error) {
	if i >= len(args) {
		return def, nil
	}
	f, err := strconv.ParseFloat(args[i], 32)
	if err != nil {
		return 0, errUsage
	}
	return float32(f), nil
}

// idAndFade parses "<id> [fade]".
func idAndFade(args []string) (int32, float32, error) {
	if len(args) < 1 {
		return 0, 0, errUsage
	}
	id, err := argInt(args, 0, 0)
	if err != nil {
		return 0, 0, err
	}
	fade, err := argFloat(args, 1, 0)
	return id, fade, err
}

// idValueFade parses "<id> <value> [fade]".
func idValueFade(args []string) (int32, float32, float32, error) {
	if len(args) < 2 {
		return 0, 0, 0, errUsage
	}
	id, err := argInt(args, 0, 0)
	if err != nil {
		return 0, 0, 0, err
	}
	value, err := argFloat(args, 1, 0)
	if err != nil {
		return 0, 0, 0, err
	}
	fade, err := argFloat(args, 2, 0)
	return id, value, fade, err
}

func (sh *shell) load(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id := sh.e.BankLoadFile(args[0], func(id engine.BankID, _ []byte) {
		sh.printf("bank %d decoded", id)
	})
	if id == 0 {
		return errFailed
	}
	sh.printf("bank %d", id)
	return nil
}

func (sh *shell) unload(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := argInt(args, 0, 0)
	if err != nil {
		return err
	}
	sh.e.BankRemove(engine.BankID(id))
	return nil
}

func (sh *shell) play(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	bus, err := argInt(args, 1, 0)
	if err != nil {
		return err
	}
	id := sh.e.PlayFile(args[0], engine.BusID(bus))
	if id == 0 {
		return errFailed
	}
	sh.printf("voice %d", id)
	return nil
}

func (sh *shell) voice(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	bank, err := argInt(args, 0, 0)
	if err != nil {
		return err
	}
	bus, err := argInt(args, 1, 0)
	if err != nil {
		return err
	}
	id := sh.e.CreateVoice(engine.BankID(bank), engine.BusID(bus), false)
	if id == 0 {
		return errFailed
	}
	sh.printf("voice %d", id)
	return nil
}

func (sh *shell) start(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	id, err := argInt(args, 0, 0)
	if err != nil {
		return err
	}
	sample, err := argInt(args, 1, 0)
	if err != nil || sample < 0 {
		return errUsage
	}
	if !sh.e.StartAtSample(engine.VoiceID(id), uint32(sample)) {
		return errFailed
	}
	return nil
}

func (sh *shell) stop(args []string) error {
	id, fade, err := idAndFade(args)
	if err != nil {
		return err
	}
	if !sh.e.Stop(engine.VoiceID(id), fade) {
		return errFailed
	}
	return nil
}

func (sh *shell) pause(args []string) error {
	id, fade, err := idAndFade(args)
	if err != nil {
		return err
	}
	sh.printf("pause stack %d", sh.e.Pause(engine.VoiceID(id), fade))
	return nil
}

func (sh *shell) resume(args []string) error {
	id, fade, err := idAndFade(args)
	if err != nil {
		return err
	}
	sh.printf("pause stack %d", sh.e.Resume(engine.VoiceID(id), fade))
	return nil
}

func (sh *shell) protect(args []string) error {
	id, _, err := idAndFade(args)
	if err != nil {
		return err
	}
	sh.e.Protect(engine.VoiceID(id))
	return nil
}

func (sh *shell) volume(args []string) error {
	id, v, fade, err := idValueFade(args)
	if err != nil {
		return err
	}
	sh.e.SetVolume(id, v, fade, false)
	return nil
}

func (sh *shell) speed(args []string) error {
	id, v, fade, err := idValueFade(args)
	if err != nil {
		return err
	}
	sh.e.SetSpeed(engine.VoiceID(id), v, fade)
	return nil
}

func (sh *shell) pan(args []string) error {
	id, v, fade, err := idValueFade(args)
	if err != nil {
		return err
	}
	sh.e.SetPanning(engine.VoiceID(id), v, fade)
	return nil
}

func (sh *shell) loop(args []string) error {
	if len(args) != 2 && len(args) != 4 {
		return errUsage
	}
	id, err := argInt(args, 0, 0)
	if err != nil {
		return err
	}

	var on bool
	switch args[1] {
	case "on":
		on = true
	case "off":
	default:
		return errUsage
	}

	if len(args) == 4 {
		start, err := argInt(args, 2, 0)
		if err != nil || start < 0 {
			return errUsage
		}
		end, err := argInt(args, 3, 0)
		if err != nil || end < 0 {
			return errUsage
		}
		sh.e.SetLoopPoints(engine.VoiceID(id), uint32(start), uint32(end))
	}
	sh.e.SetLooping(engine.VoiceID(id), on)
	return nil
}

func (sh *shell) info(args []string) error {
	id, _, err := idAndFade(args)
	if err != nil {
		return err
	}
	v := engine.VoiceID(id)
	if !sh.e.VoiceExists(v) {
		return errFailed
	}

	sh.printf("voice %d: %s, pause stack %d", v, sh.e.VoiceState(v), sh.e.PauseStack(v))
	sh.printf("  position %d/%d (%.3fs/%.3fs)",
		sh.e.PositionSample(v), sh.e.TotalSample(v), sh.e.PositionTime(v), sh.e.TotalTime(v))
	sh.printf("  %d Hz, %d channels", sh.e.SampleRate(v), sh.e.ChannelCount(v))
	sh.printf("  volume %.2f, speed %.2f, panning %.2f",
		sh.e.Volume(id, false), sh.e.Speed(v), sh.e.Panning(v))
	sh.printf("  looping %t [%d, %d)", sh.e.Looping(v), sh.e.LoopStart(v), sh.e.LoopEnd(v))
	return nil
}

func (sh *shell) bus([]string) error {
	id := sh.e.CreateBus()
	if id == 0 {
		return errFailed
	}
	sh.printf("bus %d", id)
	return nil
}

func (sh *shell) rmbus(args []string) error {
	id, _, err := idAndFade(args)
	if err != nil {
		return err
	}
	sh.e.RemoveBus(engine.BusID(id))
	return nil
}

func (sh *shell) busVolume(args []string) error {
	id, v, fade, err := idValueFade(args)
	if err != nil {
		return err
	}
	sh.e.SetVolume(id, v, fade, true)
	return nil
}

func (sh *shell) master(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	v, err := argFloat(args, 0, 1)
	if err != nil {
		return err
	}
	fade, err := argFloat(args, 1, 0)
	if err != nil {
		return err
	}
	sh.e.SetMasterVolume(v, fade)
	return nil
}

// target parses a voice ID or a bus written as bN.
func target(arg string) (int32, bool, error) {
	isBus := strings.HasPrefix(arg, "b")
	n, err := strconv.ParseInt(strings.TrimPrefix(arg, "b"), 10, 32)
	if err != nil {
		return 0, false, errUsage
	}
	return int32(n), isBus, nil
}

func (sh *shell) effect(args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	id, isBus, err := target(args[1])
	if err != nil {
		return err
	}
	fade, err := argFloat(args, 3, 0)
	if err != nil {
		return err
	}

	var on bool
	switch args[2] {
	case "on":
		on = true
	case "off":
	default:
		return errUsage
	}

	switch args[0] {
	case "reverb":
		if on {
			sh.e.SetReverb(id, engine.DefaultReverbParameters(), fade, isBus)
		} else {
			sh.e.RemoveReverb(id, fade, isBus)
		}
	case "eq":
		if on {
			sh.e.SetEq(id, engine.DefaultEQParameters(), fade, isBus)
		} else {
			sh.e.RemoveEq(id, fade, isBus)
		}
	case "echo":
		if on {
			sh.e.SetEcho(id, engine.DefaultEchoParameters(), fade, isBus)
		} else {
			sh.e.RemoveEcho(id, fade, isBus)
		}
	default:
		return errUsage
	}
	return nil
}

func fadeAndBus(args []string) (float32, engine.BusID, error) {
	fade, err := argFloat(args, 0, 0)
	if err != nil {
		return 0, 0, err
	}
	bus, err := argInt(args, 1, 0)
	return fade, engine.BusID(bus), err
}

func (sh *shell) pauseAll(args []string) error {
	fade, bus, err := fadeAndBus(args)
	if err != nil {
		return err
	}
	sh.e.PauseAll(fade, bus)
	return nil
}

func (sh *shell) resumeAll(args []string) error {
	fade, bus, err := fadeAndBus(args)
	if err != nil {
		return err
	}
	sh.e.ResumeAll(fade, bus)
	return nil
}

func (sh *shell) stopAll(args []string) error {
	fade, bus, err := fadeAndBus(args)
	if err != nil {
		return err
	}
	sh.e.StopAll(fade, bus)
	return nil
}

func (sh *shell) stats([]string) error {
	sh.printf("%d banks, %d voices, master volume %.2f",
		sh.e.BankCount(), sh.e.VoiceCount(), sh.e.MasterVolume())
	return nil
}

// decode reads a whole file without the engine, useful to check a file
// before loading it.
func (sh *shell) decode(args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(args[0]), "."))
	dec, ok := sh.reg.Get(format)
	if !ok {
		return fmt.Errorf("no decoder for %q", format)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return err
	}
	defer src.Close()

	samples, err := audio.ReadAll(src)
	if err != nil {
		return err
	}

	var peak float32
	for _, s := range samples {
		peak = max(peak, s, -s)
	}

	frames := len(samples) / src.Channels()
	sh.printf("%d frames, %d channels, %d Hz, peak %.3f",
		frames, src.Channels(), src.SampleRate(), peak)
	return nil
}
