// SPDX-License-Identifier: EPL-2.0

// Package backend declares the native voice backend the engine drives.
//
// A Device owns a mastering voice and creates submix voices (buses) and
// source voices. Source voices play Buffer regions of shared PCM data and
// report every finished or flushed buffer through an asynchronous
// OnBufferEnd notification:
//
//	src, err := dev.NewSourceVoice(dev.Master(), backend.VoiceOptions{
//	    Format:      backend.Format{Channels: 2, SampleRate: 44100},
//	    Effects:     backend.DefaultEffectChain,
//	    OnBufferEnd: func() { log.Println("done") },
//	})
//	_ = src.SubmitBuffer(backend.Buffer{PCM: pcm})
//	_ = src.Start()
//
// The soft subpackage implements Device in pure Go on top of a Sink.
package backend
