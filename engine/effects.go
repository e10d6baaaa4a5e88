// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/fader"
	"github.com/sirupsen/logrus"
)

type effectSlot struct {
	enabled bool
	params  effectParams
	fade    fader.JobID
}

// effectChain is indexed by backend.EffectKind.
type effectChain [3]effectSlot

// effectTarget is a locked voice or bus owning an effect chain.
type effectTarget struct {
	mtx   *sync.Mutex
	node  backend.Voice
	chain *effectChain
	log   *logrus.Entry
}

func (t effectTarget) unlock() { t.mtx.Unlock() }

// lockEffectTarget resolves and locks the voice or bus id.
func (e *Engine) lockEffectTarget(id int32, isBus bool) (effectTarget, bool) {
	if isBus {
		b := e.lockBus(BusID(id))
		if b == nil {
			return effectTarget{}, false
		}
		return effectTarget{mtx: &b.mtx, node: b.node, chain: &b.effects, log: e.log.WithField("bus_id", b.id)}, true
	}

	v := e.lockVoice(VoiceID(id))
	if v == nil {
		return effectTarget{}, false
	}
	return effectTarget{mtx: &v.mtx, node: v.source, chain: &v.effects, log: v.logger()}, true
}

func (e *Engine) setEffect(id int32, isBus bool, kind backend.EffectKind, params effectParams, fade float32) {
	t, ok := e.lockEffectTarget(id, isBus)
	if !ok {
		return
	}
	defer t.unlock()

	log := t.log.WithFields(logrus.Fields{
		"function": "SetEffect",
		"effect":   kind.String(),
		"fade":     fade,
	})

	slot := &t.chain[kind]
	e.fader.StopFade(slot.fade)
	slot.fade = 0

	from := slot.params
	if !slot.enabled || from == nil {
		from = params.silent()
	}

	if fade > 0 {
		if err := t.node.SetEffectParameters(int(kind), from); err != nil {
			log.WithField("error", err.Error()).Warn("effect parameters rejected")
		}
		slot.params = from
		slot.fade = e.fader.StartFade(from.lanes(), params.lanes(), fade, e.effectFade(id, isBus, kind, params, false))
	} else {
		if err := t.node.SetEffectParameters(int(kind), params); err != nil {
			log.WithField("error", err.Error()).Warn("effect parameters rejected")
		}
		slot.params = params
	}

	if !slot.enabled {
		if err := t.node.EnableEffect(int(kind)); err != nil {
			log.WithField("error", err.Error()).Warn("enable effect failed")
			return
		}
		slot.enabled = true
	}

	log.Debug("effect set")
}

func (e *Engine) removeEffect(id int32, isBus bool, kind backend.EffectKind, fade float32) {
	t, ok := e.lockEffectTarget(id, isBus)
	if !ok {
		return
	}
	defer t.unlock()

	slot := &t.chain[kind]
	if !slot.enabled {
		return
	}

	e.fader.StopFade(slot.fade)
	slot.fade = 0

	if fade > 0 && slot.params != nil {
		target := slot.params.silent()
		slot.fade = e.fader.StartFade(slot.params.lanes(), target.lanes(), fade, e.effectFade(id, isBus, kind, target, true))
		return
	}

	disableEffect(t, kind)
}

func disableEffect(t effectTarget, kind backend.EffectKind) {
	slot := &t.chain[kind]
	if err := t.node.DisableEffect(int(kind)); err != nil {
		t.log.WithFields(logrus.Fields{
			"function": "RemoveEffect",
			"effect":   kind.String(),
			"error":    err.Error(),
		}).Warn("disable effect failed")
	}
	slot.enabled = false
	slot.params = nil
}

// effectFade animates base toward its lanes. With disable set the slot is
// switched off once the fade completes.
func (e *Engine) effectFade(id int32, isBus bool, kind backend.EffectKind, base effectParams, disable bool) fader.Callback {
	return func(job fader.JobID, values []float32, finished bool) {
		t, ok := e.lockEffectTarget(id, isBus)
		if !ok {
			return
		}
		defer t.unlock()

		slot := &t.chain[kind]
		if slot.fade != job {
			return
		}

		p := base.withLanes(values)
		_ = t.node.SetEffectParameters(int(kind), p)
		slot.params = p

		if !finished {
			return
		}
		slot.fade = 0
		if disable {
			disableEffect(t, kind)
		}
	}
}
