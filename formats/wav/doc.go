// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding.
//
// Decoding goes through github.com/go-audio/wav, which walks the RIFF
// chunks so files carrying extra chunks before the sample data load as
// well.
//
// # Supported Formats
//
//   - Integer PCM with 8, 16, 24 or 32 bits per sample
//   - Any channel count and sample rate
//
// # Decoding WAV Files
//
//	file, _ := os.Open("audio.wav")
//	source, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// The source implements audio.Sized, reporting the frame count from the
// data chunk size.
//
// # Writing WAV Files
//
// WriteWAV16 writes a complete file from int16 samples to any io.Writer:
//
//	err := wav.WriteWAV16(buf, 8000, 1, []int16{100, -100, 200, -200})
//
// Writer streams float samples to a seekable target and fixes the header
// sizes on Close:
//
//	w, _ := wav.NewWriter(file, 48000, 2)
//	_ = w.Write(samples)
//	_ = w.Close()
//
// # Error Handling
//
//   - ErrNotWavFile: The input is not a RIFF/WAVE stream
//   - ErrOnlyPCMSupported: Compressed or float encodings
//   - ErrUnsupportedBitDepth: PCM depth other than 8, 16, 24 or 32
//   - ErrUnsupportedWavLayout: No data chunk was found
package wav
