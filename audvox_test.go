// SPDX-License-Identifier: EPL-2.0

package audvox

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/engine"
	"github.com/ik5/audvox/formats/wav"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig() *Config {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := NewConfig()
	cfg.Logger = log
	return cfg
}

func tone(t *testing.T, frames int) []byte {
	t.Helper()

	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = 8192
	}

	buf := new(bytes.Buffer)
	require.NoError(t, wav.WriteWAV16(buf, 48000, 1, samples))
	return buf.Bytes()
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	assert.Equal(t, []string{
		"aif", "aifc", "aiff", "mp3", "oga", "ogg", "opus", "vorbis", "wav", "wave",
	}, reg.Formats())

	_, ok := reg.Get("WAV")
	assert.True(t, ok)
}

func TestParseSinkKind(t *testing.T) {
	t.Parallel()

	for _, k := range []SinkKind{SinkNull, SinkWAV, SinkOto, SinkBeep} {
		got, err := ParseSinkKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseSinkKind("custom")
	assert.ErrorIs(t, err, ErrUnknownSink)
	assert.Equal(t, "unknown", SinkKind(42).String())
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tweak func(*Config)
		want  error
	}{
		{"wav without path", func(c *Config) { c.Sink, c.WAVPath = SinkWAV, "" }, ErrNoWAVPath},
		{"custom without sink", func(c *Config) { c.Sink = SinkCustom }, ErrUnknownSink},
		{"unknown kind", func(c *Config) { c.Sink = SinkKind(9) }, ErrUnknownSink},
		{"no channels", func(c *Config) { c.Channels = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := quietConfig()
			tt.tweak(cfg)

			e, err := Open(cfg)
			require.Error(t, err)
			assert.Nil(t, e)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestOpen_PlaysOnNullSink(t *testing.T) {
	t.Parallel()

	finished := make(chan engine.VoiceID, 1)
	cfg := quietConfig()
	cfg.OnFinished = func(id engine.VoiceID) { finished <- id }

	e, err := Open(cfg)
	require.NoError(t, err)
	defer e.Release()

	bank := e.BankAddWav(tone(t, 960))
	require.NotZero(t, bank)

	id := e.CreateVoice(bank, engine.MasterBus, false)
	require.NotZero(t, id)
	require.True(t, e.StartEngine())
	require.True(t, e.Start(id))

	select {
	case got := <-finished:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("voice never finished")
	}
}

func TestOpen_RecordsToWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mix.wav")
	cfg := quietConfig()
	cfg.Sink, cfg.WAVPath = SinkWAV, path

	e, err := Open(cfg)
	require.NoError(t, err)

	bank := e.BankAddWav(tone(t, 4800))
	id := e.CreateVoice(bank, engine.MasterBus, false)
	require.True(t, e.StartEngine())
	require.True(t, e.Start(id))
	time.Sleep(50 * time.Millisecond)
	e.Release()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Channels())

	samples, err := audio.ReadAll(src)
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	var peak float32
	for _, s := range samples {
		peak = max(peak, s)
	}
	assert.InDelta(t, 0.25*0.7071, peak, 0.01, "mono voice panned to the center")
}
