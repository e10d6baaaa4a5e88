// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files.
//
// # Supported Formats
//
//   - Signed PCM with 8, 16, 24 or 32 bits per sample
//   - Any channel count and sample rate
//
// # Decoding AIFF Files
//
//	file, _ := os.Open("audio.aif")
//	source, err := aiff.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// The source implements audio.Sized from the frame count of the COMM chunk,
// which lets the engine load AIFF files into banks.
//
// Readers that cannot seek are buffered in memory first, go-audio needs to
// walk the chunks.
//
// # Error Handling
//
//   - ErrNotAiffFile: The input is not a valid AIFF file
//   - ErrUnsupportedBitDepth: Sample size other than 8, 16, 24 or 32 bits
//   - ErrUnsupportedAiffLayout: Missing or empty COMM chunk
//
// # Limitations
//
// AIFF writing and AIFC compression are not supported.
package aiff
