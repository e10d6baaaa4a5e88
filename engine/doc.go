// SPDX-License-Identifier: EPL-2.0

// Package engine plays decoded sound banks through a backend.Device.
//
// # Banks
//
// A bank holds the interleaved float32 samples of one file. Decoding runs
// in the background; voices may start before it completes and wait for
// the frames they need, bounded by Options.DecodeWaitTimeout.
//
//	bank := e.BankAddOgg(data, func(id engine.BankID, data []byte) {
//	    // data can be reused from here on
//	})
//
// # Voices
//
// A voice plays one bank on a bus. Every method takes plain IDs and
// reports failure through its return value, never through a panic:
//
//	id := e.CreateVoice(bank, engine.MasterBus, true)
//	e.SetVolume(int32(id), 0.5, 0, false)
//	e.Resume(id, 0.25) // fade in over 250 ms
//
// Pause and Resume nest. A voice paused twice needs two resumes.
//
// # Fades
//
// Volume, speed, panning, pause and effect transitions run on a shared
// fade scheduler ticking every Options.FadeInterval. A new fade on a
// property replaces the running one.
//
// # Buses
//
// Buses are submix voices routed to the master. Bus 0 is the master
// itself.
package engine
