// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"github.com/ik5/audvox/backend"
)

// VoiceExists reports whether id resolves to a live voice.
func (e *Engine) VoiceExists(id VoiceID) bool {
	v := e.lockVoice(id)
	if v == nil {
		return false
	}
	v.mtx.Unlock()
	return true
}

// VoiceState reports the playback state of a voice, StateIdle when unknown.
func (e *Engine) VoiceState(id VoiceID) State {
	v := e.lockVoice(id)
	if v == nil {
		return StateIdle
	}
	defer v.mtx.Unlock()

	return v.state()
}

// VoiceCount is the number of live voices.
func (e *Engine) VoiceCount() int {
	e.voiceMtx.Lock()
	defer e.voiceMtx.Unlock()

	return len(e.voices)
}

// Start plays the voice from its beginning.
func (e *Engine) Start(id VoiceID) bool {
	return e.StartAtSample(id, 0)
}

// StartAtSample plays the voice from frame sample.
func (e *Engine) StartAtSample(id VoiceID, sample uint32) bool {
	v := e.lockVoice(id)
	if v == nil {
		return false
	}

	ok, out := v.start(sample, true)
	bank := v.bank
	v.mtx.Unlock()

	e.settle(id, bank, out)
	return ok
}

// StartAtTime plays the voice from the given offset in seconds.
func (e *Engine) StartAtTime(id VoiceID, seconds float32) bool {
	rate := e.SampleRate(id)
	if rate == 0 {
		return false
	}
	return e.StartAtSample(id, uint32(max(seconds, 0)*float32(rate)))
}

// Stop stops the voice, fading out over fade seconds when fade > 0.
func (e *Engine) Stop(id VoiceID, fade float32) bool {
	v := e.lockVoice(id)
	if v == nil {
		return false
	}
	defer v.mtx.Unlock()

	return v.stop(fade)
}

// Pause pushes the pause stack and returns its new depth.
func (e *Engine) Pause(id VoiceID, fade float32) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()

	return v.pause(fade)
}

// Resume pops the pause stack and returns its new depth. Playback resumes
// when it reaches 0.
func (e *Engine) Resume(id VoiceID, fade float32) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}

	depth, out := v.resume(fade)
	bank := v.bank
	v.mtx.Unlock()

	e.settle(id, bank, out)
	return depth
}

// PauseStack returns the pause depth of the voice.
func (e *Engine) PauseStack(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()

	return v.pauseStack
}

// Protect excludes the voice from PauseAll, ResumeAll and StopAll.
func (e *Engine) Protect(id VoiceID) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}
	v.protected = true
	v.mtx.Unlock()
}

func (e *Engine) bulk(busID BusID) []VoiceID {
	return e.voicesWhere(func(v *Voice) bool {
		return !v.protected && (busID == MasterBus || v.busID == busID)
	})
}

// PauseAll pauses every unprotected voice, only those routed to busID
// unless it is the master bus.
func (e *Engine) PauseAll(fade float32, busID BusID) {
	for _, id := range e.bulk(busID) {
		e.Pause(id, fade)
	}
}

// ResumeAll resumes every unprotected voice.
func (e *Engine) ResumeAll(fade float32, busID BusID) {
	for _, id := range e.bulk(busID) {
		e.Resume(id, fade)
	}
}

// StopAll stops every unprotected voice.
func (e *Engine) StopAll(fade float32, busID BusID) {
	for _, id := range e.bulk(busID) {
		e.Stop(id, fade)
	}
}

// SetMasterVolume sets the mastering voice volume.
func (e *Engine) SetMasterVolume(volume, fade float32) {
	e.SetVolume(int32(MasterBus), volume, fade, true)
}

// MasterVolume returns the mastering voice volume.
func (e *Engine) MasterVolume() float32 {
	return e.Volume(int32(MasterBus), true)
}

// SetVolume sets the volume of a voice, or of a bus when isBus is set.
func (e *Engine) SetVolume(id int32, volume, fade float32, isBus bool) {
	if isBus {
		b := e.lockBus(BusID(id))
		if b == nil {
			return
		}
		b.setVolume(e, volume, fade)
		b.mtx.Unlock()
		return
	}

	v := e.lockVoice(VoiceID(id))
	if v == nil {
		return
	}
	v.setVolume(volume, fade)
	v.mtx.Unlock()
}

// Volume returns the voice volume, or the bus volume when isBus is set.
// Unknown IDs report 1.
func (e *Engine) Volume(id int32, isBus bool) float32 {
	if isBus {
		b := e.lockBus(BusID(id))
		if b == nil {
			return 1
		}
		defer b.mtx.Unlock()
		return b.node.Volume()
	}

	v := e.lockVoice(VoiceID(id))
	if v == nil {
		return 1
	}
	defer v.mtx.Unlock()
	return v.volume
}

// SetSpeed sets the playback speed as a frequency ratio.
func (e *Engine) SetSpeed(id VoiceID, speed, fade float32) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}
	v.setSpeed(speed, fade)
	v.mtx.Unlock()
}

// Speed returns the playback speed, 1 for unknown voices.
func (e *Engine) Speed(id VoiceID) float32 {
	v := e.lockVoice(id)
	if v == nil {
		return 1
	}
	defer v.mtx.Unlock()
	return v.speed
}

// SetPanning sets the stereo position in [-1, 1].
func (e *Engine) SetPanning(id VoiceID, panning, fade float32) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}
	v.setPanning(panning, fade)
	v.mtx.Unlock()
}

// Panning returns the stereo position.
func (e *Engine) Panning(id VoiceID) float32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return v.panning
}

// SetLooping enables or disables looping. A playing voice keeps its play
// head and is resubmitted with the new loop setting.
func (e *Engine) SetLooping(id VoiceID, looping bool) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}

	_, out := v.setLooping(looping)
	bank := v.bank
	v.mtx.Unlock()

	e.settle(id, bank, out)
}

// Looping reports whether the voice loops.
func (e *Engine) Looping(id VoiceID) bool {
	v := e.lockVoice(id)
	if v == nil {
		return false
	}
	defer v.mtx.Unlock()
	return v.looping
}

// SetLoopPoints changes the loop region. end 0 selects the last frame.
func (e *Engine) SetLoopPoints(id VoiceID, start, end uint32) {
	v := e.lockVoice(id)
	if v == nil {
		return
	}

	_, out := v.changeLoopPoints(start, end)
	bank := v.bank
	v.mtx.Unlock()

	e.settle(id, bank, out)
}

// LoopStart returns the first frame of the loop region.
func (e *Engine) LoopStart(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return v.loopStart
}

// LoopEnd returns the end frame of the loop region.
func (e *Engine) LoopEnd(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return v.loopEnd
}

// PositionSample returns the play head in frames, 0 when not playing.
func (e *Engine) PositionSample(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return v.getPosition()
}

// PositionTime returns the play head in seconds.
func (e *Engine) PositionTime(id VoiceID) float32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()

	rate := v.bank.SampleRate()
	if rate == 0 {
		return 0
	}
	return float32(v.getPosition()) / float32(rate)
}

// TotalSample returns the frame count of the voice's bank.
func (e *Engine) TotalSample(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return uint32(v.bank.Frames())
}

// TotalTime returns the duration of the voice's bank in seconds.
func (e *Engine) TotalTime(id VoiceID) float32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()

	rate := v.bank.SampleRate()
	if rate == 0 {
		return 0
	}
	return float32(v.bank.Frames()) / float32(rate)
}

// SampleRate returns the sample rate of the voice's bank.
func (e *Engine) SampleRate(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return uint32(v.bank.SampleRate())
}

// ChannelCount returns the channel count of the voice's bank.
func (e *Engine) ChannelCount(id VoiceID) uint32 {
	v := e.lockVoice(id)
	if v == nil {
		return 0
	}
	defer v.mtx.Unlock()
	return uint32(v.bank.Channels())
}

// SetReverb enables the reverb slot of a voice or bus.
func (e *Engine) SetReverb(id int32, params ReverbParameters, fade float32, isBus bool) {
	e.setEffect(id, isBus, backend.EffectReverb, params, fade)
}

// RemoveReverb disables the reverb slot, fading it out first when fade > 0.
func (e *Engine) RemoveReverb(id int32, fade float32, isBus bool) {
	e.removeEffect(id, isBus, backend.EffectReverb, fade)
}

// SetEq enables the equalizer slot of a voice or bus.
func (e *Engine) SetEq(id int32, params EQParameters, fade float32, isBus bool) {
	e.setEffect(id, isBus, backend.EffectEQ, params, fade)
}

// RemoveEq disables the equalizer slot.
func (e *Engine) RemoveEq(id int32, fade float32, isBus bool) {
	e.removeEffect(id, isBus, backend.EffectEQ, fade)
}

// SetEcho enables the echo slot of a voice or bus.
func (e *Engine) SetEcho(id int32, params EchoParameters, fade float32, isBus bool) {
	e.setEffect(id, isBus, backend.EffectEcho, params, fade)
}

// RemoveEcho disables the echo slot.
func (e *Engine) RemoveEcho(id int32, fade float32, isBus bool) {
	e.removeEffect(id, isBus, backend.EffectEcho, fade)
}
