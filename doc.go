// SPDX-License-Identifier: EPL-2.0

// Package audvox assembles a ready to use sound playback engine.
//
// The engine itself lives in the engine package and talks to a
// backend.Device. This package wires the pieces together: a decoder
// registry with every bundled format, the software mixer from
// backend/soft, and one of the sinks under sink/.
//
// # Supported Formats
//
// Banks can be loaded from:
//   - WAV (PCM 8/16/24/32-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF via formats/aiff
//   - Opus packet streams via formats/opus
//
// # Quick Start
//
//	cfg := audvox.NewConfig()
//	cfg.Sink = audvox.SinkOto
//
//	e, err := audvox.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Release()
//
//	e.StartEngine()
//	id := e.PlayFile("intro.ogg", engine.MasterBus)
//
// # Sinks
//
// SinkNull advances playback in real time without producing sound, which
// is what tests and headless servers want. SinkWAV records the mix into
// Config.WAVPath. SinkOto and SinkBeep play through the sound card. A
// custom soft.Sink can be set in Config.Custom.
package audvox
