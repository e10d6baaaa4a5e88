// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio file decoding.
//
// This package uses github.com/jfreymuth/oggvorbis to decode Ogg Vorbis files.
//
// # Decoding Vorbis Files
//
//	file, _ := os.Open("audio.ogg")
//	source, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// Samples are interleaved, [L0, R0, L1, R1, ...] for stereo. ReadSamples
// only decodes whole frames, so a dst whose length is not a multiple of the
// channel count is filled partially.
//
// The source implements audio.Sized. The length comes from the granule
// position of the last Ogg page, which oggvorbis can only find when the
// reader is seekable; it reports 0 otherwise.
//
// # Limitations
//
// Vorbis encoding is not supported.
package vorbis
