// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decoder abstraction banks are filled from.
//
// # Source Interface
//
// Every format decoder produces a Source:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Sources that know their length up front also implement Sized. The engine
// allocates a bank from that length before the first chunk is decoded, so
// only sized sources can be loaded into a bank.
//
// # Format Registry
//
// The registry maps format keys to decoders. Keys are case insensitive and
// a decoder may be registered under aliases:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{}, "wave")
//	decoder, _ := registry.Get("WAV")
//
// # Sample Format
//
// Audio samples are represented as float32 in the range [-1.0, 1.0],
// interleaved by channel.
//
// # Error Handling
//
// ReadSamples returns io.EOF when no more data is available:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    // consume buf[:n] first, the last chunk may come with io.EOF
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
