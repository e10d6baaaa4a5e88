// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Stream layout, all integers little endian:
//
//	magic            [4]byte "AVOP"
//	version          uint8
//	channels         uint8
//	sample rate      uint32
//	total frames     uint32
//	frames/packet    uint16
//	packets          { length uint16, payload [length]byte }...
const (
	magic      = "AVOP"
	version    = 1
	headerSize = 16
)

// Header describes an Opus packet stream.
type Header struct {
	Channels        int
	SampleRate      int
	Frames          int
	FramesPerPacket int
}

func (h Header) validate() error {
	switch {
	case h.Channels != 1:
		return fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, h.Channels)
	case h.SampleRate != SampleRate:
		return fmt.Errorf("%w: %d Hz", ErrUnsupportedLayout, h.SampleRate)
	case h.FramesPerPacket <= 0 || h.FramesPerPacket > maxPacketFrames:
		return fmt.Errorf("%w: %d frames per packet", ErrUnsupportedLayout, h.FramesPerPacket)
	case h.Frames < 0:
		return fmt.Errorf("%w: negative length", ErrUnsupportedLayout)
	}
	return nil
}

func readHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrNotOpusStream, err)
	}
	if string(buf[:4]) != magic {
		return Header{}, ErrNotOpusStream
	}
	if buf[4] != version {
		return Header{}, fmt.Errorf("%w: version %d", ErrUnsupportedLayout, buf[4])
	}

	h := Header{
		Channels:        int(buf[5]),
		SampleRate:      int(binary.LittleEndian.Uint32(buf[6:10])),
		Frames:          int(binary.LittleEndian.Uint32(buf[10:14])),
		FramesPerPacket: int(binary.LittleEndian.Uint16(buf[14:16])),
	}
	return h, h.validate()
}

// readPacket reads one length prefixed packet into buf, growing it when
// needed.
func readPacket(r io.Reader, buf []byte) ([]byte, error) {
	var size [2]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}

	n := int(binary.LittleEndian.Uint16(size[:]))
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteStream writes h followed by the already encoded packets.
func WriteStream(w io.Writer, h Header, packets [][]byte) error {
	if err := h.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)

	var hdr [headerSize]byte
	copy(hdr[:4], magic)
	hdr[4] = version
	hdr[5] = byte(h.Channels)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(h.SampleRate))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(h.Frames))
	binary.LittleEndian.PutUint16(hdr[14:16], uint16(h.FramesPerPacket))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	var size [2]byte
	for i, p := range packets {
		if len(p) > 0xFFFF {
			return fmt.Errorf("%w: packet %d is %d bytes", ErrPacketTooLarge, i, len(p))
		}
		binary.LittleEndian.PutUint16(size[:], uint16(len(p)))
		if _, err := bw.Write(size[:]); err != nil {
			return err
		}
		if _, err := bw.Write(p); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return nil
}
