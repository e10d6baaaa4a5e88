// SPDX-License-Identifier: EPL-2.0

// Package opus decodes mono Opus packet streams with the pure Go pion/opus
// decoder.
//
// Opus has no standard container short of Ogg, so packets are stored in a
// small length prefixed stream (see WriteStream) whose header carries the
// total frame count. That count is what lets banks be allocated before
// decoding starts.
//
//	var buf bytes.Buffer
//	_ = opus.WriteStream(&buf, opus.Header{
//	    Channels:        1,
//	    SampleRate:      opus.SampleRate,
//	    Frames:          48000,
//	    FramesPerPacket: 960,
//	}, packets)
//
//	src, err := opus.Decoder{}.Decode(&buf)
//
// # Limitations
//
//   - Mono only, pion/opus decodes SILK frames to a single channel
//   - Output is always 48 kHz
//   - Packets that fail to decode end the stream with an error
package opus
