// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/utils"
)

// windowFrames is the number of PCM frames cached per read.
const windowFrames = 1024

// sourceVoice plays queued buffers with cubic interpolation.
type sourceVoice struct {
	*node

	format      backend.Format
	onBufferEnd func()

	buffers  []backend.Buffer
	running  bool
	ratio    float32
	pos      float64 // play head in PCM frames
	loops    uint32
	consumed float64

	out []float32

	// window caches PCM frames [winStart, winStart+winLen).
	win      []float32
	winPCM   backend.PCM
	winStart int
	winLen   int
}

func (s *sourceVoice) SubmitBuffer(buf backend.Buffer) error {
	if buf.PCM == nil {
		return backend.ErrNoBuffer
	}
	if buf.PCM.Channels() != s.format.Channels {
		return backend.ErrInvalidFormat
	}
	if total := buf.PCM.Frames(); int(buf.PlayBegin) >= total {
		return backend.ErrInvalidRegion
	}

	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	if s.destroyed {
		return backend.ErrVoiceDestroyed
	}
	if len(s.buffers) == 0 {
		s.pos = float64(buf.PlayBegin)
		s.loops = 0
	}
	s.buffers = append(s.buffers, buf)
	return nil
}

func (s *sourceVoice) Start() error {
	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	if s.destroyed {
		return backend.ErrVoiceDestroyed
	}
	s.running = true
	return nil
}

func (s *sourceVoice) Stop() error {
	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	s.running = false
	return nil
}

func (s *sourceVoice) FlushBuffers() error {
	s.dev.mtx.Lock()
	n := len(s.buffers)
	s.buffers = nil
	s.winLen = 0
	s.dev.mtx.Unlock()

	ends := make([]func(), n)
	for i := range ends {
		ends[i] = s.onBufferEnd
	}
	s.dev.notify.post(ends...)
	return nil
}

func (s *sourceVoice) SamplesPlayed() uint64 {
	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	return uint64(s.consumed)
}

func (s *sourceVoice) SetFrequencyRatio(ratio float32) error {
	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	s.ratio = max(backend.MinFrequencyRatio, min(ratio, backend.MaxFrequencyRatio))
	return nil
}

func (s *sourceVoice) FrequencyRatio() float32 {
	s.dev.mtx.Lock()
	defer s.dev.mtx.Unlock()

	return s.ratio
}

// render produces frames output frames into s.out and returns the number
// of buffers that finished. The device mutex is held.
func (s *sourceVoice) render(frames, outRate int) int {
	channels := s.format.Channels
	size := frames * channels
	if cap(s.out) < size {
		s.out = make([]float32, size)
	}
	s.out = s.out[:size]
	clear(s.out)

	// Decoding may have filled frames that read as silence last time.
	s.winLen = 0

	step := float64(s.ratio) * float64(s.format.SampleRate) / float64(outRate)
	ended := 0

	for f := range frames {
		if len(s.buffers) == 0 {
			break
		}
		buf := &s.buffers[0]
		total := buf.PCM.Frames()
		end := bufferEnd(buf, total)

		idx := int(s.pos)
		frac := float32(s.pos - float64(idx))
		for ch := range channels {
			y0 := s.sample(buf.PCM, total, idx-1, ch)
			y1 := s.sample(buf.PCM, total, idx, ch)
			y2 := s.sample(buf.PCM, total, idx+1, ch)
			y3 := s.sample(buf.PCM, total, idx+2, ch)
			s.out[f*channels+ch] = utils.CubicInterpolate(y0, y1, y2, y3, frac)
		}

		s.pos += step
		s.consumed += step
		s.wrapLoop(buf, end)

		if s.pos < float64(end) {
			continue
		}

		s.buffers = s.buffers[1:]
		ended++
		if len(s.buffers) > 0 {
			s.pos = float64(s.buffers[0].PlayBegin)
			s.loops = 0
			continue
		}
		// End of stream.
		s.pos = 0
		s.consumed = 0
	}

	return ended
}

// wrapLoop moves the play head back into the loop region while loops are
// left.
func (s *sourceVoice) wrapLoop(buf *backend.Buffer, end int) {
	if buf.LoopCount == 0 || (buf.LoopCount != backend.LoopInfinite && s.loops >= buf.LoopCount) {
		return
	}

	begin := int(buf.LoopBegin)
	loopEnd := end
	if buf.LoopLength > 0 {
		loopEnd = min(begin+int(buf.LoopLength), end)
	}
	length := float64(loopEnd - begin)
	if length <= 0 {
		return
	}

	for s.pos >= float64(loopEnd) {
		s.pos -= length
		if buf.LoopCount != backend.LoopInfinite {
			s.loops++
			if s.loops >= buf.LoopCount {
				return
			}
		}
	}
}

func bufferEnd(buf *backend.Buffer, total int) int {
	if buf.PlayLength == 0 {
		return total
	}
	return min(int(buf.PlayBegin+buf.PlayLength), total)
}

// sample returns channel ch of frame, clamped to the PCM bounds.
func (s *sourceVoice) sample(pcm backend.PCM, total, frame, ch int) float32 {
	if total <= 0 {
		return 0
	}
	frame = max(0, min(frame, total-1))

	if pcm != s.winPCM || frame < s.winStart || frame >= s.winStart+s.winLen {
		s.fill(pcm, max(frame-1, 0))
		if frame >= s.winStart+s.winLen {
			return 0
		}
	}

	return s.win[(frame-s.winStart)*s.format.Channels+ch]
}

func (s *sourceVoice) fill(pcm backend.PCM, frame int) {
	size := windowFrames * s.format.Channels
	if len(s.win) < size {
		s.win = make([]float32, size)
	}

	s.winPCM = pcm
	s.winStart = frame
	s.winLen = pcm.ReadFrames(s.win, frame)
}

func (s *sourceVoice) Destroy() {
	s.dev.mtx.Lock()
	s.destroyed = true
	s.running = false
	s.buffers = nil
	s.winPCM = nil
	s.dev.mtx.Unlock()

	s.dev.forget(s.node)
}
