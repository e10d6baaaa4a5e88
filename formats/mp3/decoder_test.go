// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/ik5/audvox/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcmReader stands in for the go-mp3 decoder: 16-bit little endian stereo
// handed out in chunks of at most step bytes.
type pcmReader struct {
	rate    int
	pcm     []byte
	step    int
	failure error
}

func newPCMReader(rate, step int, samples ...int16) *pcmReader {
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}
	return &pcmReader{rate: rate, pcm: pcm, step: step}
}

func (r *pcmReader) SampleRate() int { return r.rate }

func (r *pcmReader) Read(buf []byte) (int, error) {
	if r.failure != nil {
		return 0, r.failure
	}
	if len(r.pcm) == 0 {
		return 0, io.EOF
	}

	n := copy(buf[:min(len(buf), r.step)], r.pcm)
	r.pcm = r.pcm[n:]
	return n, nil
}

func newTestSource(r *pcmReader, frames int) *source {
	return &source{
		dec:        r,
		sampleRate: r.rate,
		channels:   outChannels,
		frames:     frames,
		buf:        make([]byte, 64),
	}
}

func readAll(t *testing.T, src audio.Source, chunk int) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, chunk)
	for range 1000 {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
	t.Fatal("source never ended")
	return nil
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("ID3 but certainly not an mp3 stream"),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(data))
			assert.Error(t, err)
		})
	}
}

func TestSource_Conversion(t *testing.T) {
	t.Parallel()

	src := newTestSource(newPCMReader(8000, 1<<10, 0, 16384, 32767, -16384, -32768, 8192), 3)

	got := readAll(t, src, 6)
	assert.InDeltaSlice(t, []float32{0, 0.5, 1, -0.5, -1, 0.25}, got, 1e-4)
}

func TestSource_ShortReads(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 200)
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	tests := []struct {
		name  string
		step  int
		chunk int
	}{
		{"tiny decoder reads", 6, 64},
		{"tiny destination", 1 << 10, 2},
		{"buffer grows", 1 << 12, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newTestSource(newPCMReader(44100, tt.step, samples...), 100)
			got := readAll(t, src, tt.chunk)

			require.Len(t, got, len(samples))
			for i, s := range samples {
				assert.InDelta(t, float32(s)/32768, got[i], 1e-6)
			}
		})
	}
}

func TestSource_DecoderError(t *testing.T) {
	t.Parallel()

	r := newPCMReader(44100, 8, 1, 2)
	r.failure = io.ErrUnexpectedEOF

	n, err := newTestSource(r, 1).ReadSamples(make([]float32, 4))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := newTestSource(newPCMReader(22050, 8), 1152)

	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, 1152, audio.Frames(src))
	assert.Equal(t, 32, src.BufSize(), "samples, not bytes")
	assert.NoError(t, src.Close())
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	samples := make([]int16, 44100*2)
	buf := make([]float32, 4096)

	for b.Loop() {
		src := newTestSource(newPCMReader(44100, 8192, samples...), 44100)
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
