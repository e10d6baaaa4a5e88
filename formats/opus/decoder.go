// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/utils"
	"github.com/pion/opus"
)

// SampleRate is the rate pion/opus decodes to.
const SampleRate = 48000

// maxPacketFrames is the longest Opus frame, 120 ms at 48 kHz.
const maxPacketFrames = SampleRate * 120 / 1000

// packetDecoder is the part of opus.Decoder the source needs.
type packetDecoder interface {
	Decode(in, out []byte) (opus.Bandwidth, bool, error)
}

type source struct {
	r      io.Reader
	dec    packetDecoder
	header Header

	packet  []byte
	pcm     []byte    // S16LE output of the last packet
	pending []float32 // decoded samples not handed out yet
	decoded []float32
	read    int
}

func (s *source) SampleRate() int { return s.header.SampleRate }
func (s *source) Channels() int   { return s.header.Channels }
func (s *source) Frames() int     { return s.header.Frames }
func (s *source) BufSize() int    { return s.header.FramesPerPacket * s.header.Channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	total := s.header.Frames * s.header.Channels
	n := 0

	for n < len(dst) && s.read < total {
		if len(s.pending) == 0 {
			if err := s.next(); err != nil {
				if err == io.EOF {
					break
				}
				return n, err
			}
			continue
		}

		c := copy(dst[n:min(len(dst), n+total-s.read)], s.pending)
		s.pending = s.pending[c:]
		n += c
		s.read += c
	}

	if s.read >= total || (n == 0 && len(dst) > 0) {
		return n, io.EOF
	}
	return n, nil
}

// next decodes the following packet into pending.
func (s *source) next() error {
	packet, err := readPacket(s.r, s.packet)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("reading opus packet: %w", err)
	}
	s.packet = packet

	if _, _, err := s.dec.Decode(packet, s.pcm); err != nil {
		return fmt.Errorf("decoding opus packet: %w", err)
	}

	samples := s.header.FramesPerPacket * s.header.Channels
	if cap(s.decoded) < samples {
		s.decoded = make([]float32, samples)
	}
	s.decoded = s.decoded[:samples]
	n := utils.PCM16LEToFloat32(s.decoded, s.pcm)
	s.pending = s.decoded[:n]
	return nil
}

// Decoder reads mono Opus packet streams with the pure Go pion/opus
// decoder.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	br := bufio.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	dec := opus.NewDecoder()
	return &source{
		r:      br,
		dec:    &dec,
		header: h,
		pcm:    make([]byte, maxPacketFrames*2),
	}, nil
}
