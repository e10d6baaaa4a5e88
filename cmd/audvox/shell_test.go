// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ik5/audvox"
	"github.com/ik5/audvox/formats/wav"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by decode callbacks while the test reads it.
type lockedBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.buf.Reset()
}

func newTestShell(t *testing.T) (*shell, *lockedBuffer) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := audvox.NewConfig()
	cfg.Logger = log

	e, err := audvox.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(e.Release)

	out := new(lockedBuffer)
	return newShell(e, audvox.DefaultRegistry(), out), out
}

func writeTone(t *testing.T, frames int) string {
	t.Helper()

	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = -16384
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, wav.WriteWAV16(f, 22050, 1, samples))
	require.NoError(t, f.Close())
	return path
}

func TestExec_Errors(t *testing.T) {
	sh, _ := newTestShell(t)

	assert.NoError(t, sh.exec("   "))
	assert.ErrorIs(t, sh.exec("dance"), errUnknown)
	assert.ErrorIs(t, sh.exec("QUIT"), errQuit)
	assert.ErrorIs(t, sh.exec("volume 1"), errUsage)
	assert.ErrorIs(t, sh.exec("volume x 0.5"), errUsage)
	assert.ErrorIs(t, sh.exec("loop 1 maybe"), errUsage)
	assert.ErrorIs(t, sh.exec("fx chorus 1 on"), errUsage)
	assert.ErrorIs(t, sh.exec("voice 99"), errFailed)
	assert.ErrorIs(t, sh.exec("info 99"), errFailed)
	assert.ErrorIs(t, sh.exec("load "+filepath.Join(t.TempDir(), "none.wav")), errFailed)

	err := sh.exec("stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop <voice> [fade]")
}

func TestExec_VoiceControls(t *testing.T) {
	sh, out := newTestShell(t)
	path := writeTone(t, 2205)

	require.NoError(t, sh.exec("load "+path))
	assert.Contains(t, out.String(), "bank 1")

	require.NoError(t, sh.exec("bus"))
	assert.Contains(t, out.String(), "bus 1")

	require.NoError(t, sh.exec("voice 1 1"))
	assert.Contains(t, out.String(), "voice 1")

	for _, line := range []string{
		"volume 1 0.5",
		"speed 1 1.5",
		"pan 1 -0.25",
		"loop 1 on 100 200",
		"fx echo 1 on",
		"fx reverb b1 on 0.1",
		"busvol 1 0.8",
		"master 0.9",
		"protect 1",
	} {
		require.NoError(t, sh.exec(line), line)
	}

	out.Reset()
	require.NoError(t, sh.exec("info 1"))
	assert.Contains(t, out.String(), "22050 Hz, 1 channels")
	assert.Contains(t, out.String(), "volume 0.50, speed 1.50, panning -0.25")
	assert.Contains(t, out.String(), "looping true [100, 200)")

	out.Reset()
	require.NoError(t, sh.exec("pause 1"))
	require.NoError(t, sh.exec("pause 1"))
	assert.Contains(t, out.String(), "pause stack 2")

	out.Reset()
	require.NoError(t, sh.exec("stats"))
	assert.Contains(t, out.String(), "1 banks, 1 voices, master volume 0.90")

	require.NoError(t, sh.exec("unload 1"))
	assert.Equal(t, 0, sh.e.VoiceCount())
}

func TestExec_Decode(t *testing.T) {
	sh, out := newTestShell(t)
	path := writeTone(t, 441)

	require.NoError(t, sh.exec("decode "+path))
	assert.Equal(t, "441 frames, 1 channels, 22050 Hz, peak 0.500\n", out.String())

	assert.Error(t, sh.exec("decode notes.txt"))
}

func TestHelp(t *testing.T) {
	sh, out := newTestShell(t)

	require.NoError(t, sh.exec("help"))
	for name := range commands {
		assert.Contains(t, out.String(), "  "+name+" ")
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"kick.wav", "snare.wav", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	got := listFiles("load " + filepath.Join(dir, "s"))
	assert.Equal(t, []string{filepath.Join(dir, "snare.wav")}, got)
}
