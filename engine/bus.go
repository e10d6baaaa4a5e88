// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/fader"
	"github.com/sirupsen/logrus"
)

// MasterBus addresses the mastering voice.
const MasterBus BusID = 0

// Bus is a submix voices route into. Bus 0 wraps the mastering voice.
type Bus struct {
	mtx sync.Mutex

	id      BusID
	node    backend.Voice
	volume  float32
	fade    fader.JobID
	effects effectChain
	removed bool
}

func (b *Bus) setVolume(e *Engine, volume, fade float32) {
	volume = max(volume, 0)

	e.fader.StopFade(b.fade)
	b.fade = 0

	if fade > 0 {
		b.fade = e.fader.StartFade([]float32{b.node.Volume()}, []float32{volume}, fade, e.busFade(b.id))
	} else if err := b.node.SetVolume(volume); err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "SetBusVolume",
			"bus_id":   b.id,
			"error":    err.Error(),
		}).Warn("set volume failed")
	}
	b.volume = volume
}

func (e *Engine) busFade(id BusID) fader.Callback {
	return func(job fader.JobID, values []float32, finished bool) {
		b := e.lockBus(id)
		if b == nil {
			return
		}
		defer b.mtx.Unlock()

		if b.fade != job {
			return
		}
		_ = b.node.SetVolume(values[0])
		if finished {
			b.fade = 0
		}
	}
}

// lockBus returns the locked bus or nil.
func (e *Engine) lockBus(id BusID) *Bus {
	b := e.bus(id)
	if b == nil {
		return nil
	}

	b.mtx.Lock()
	if b.removed {
		b.mtx.Unlock()
		return nil
	}
	return b
}

func (e *Engine) bus(id BusID) *Bus {
	if id == MasterBus {
		return e.master
	}

	e.busMtx.Lock()
	defer e.busMtx.Unlock()

	return e.buses[id]
}

// CreateBus adds a submix routed to the master bus. It returns 0 on
// failure.
func (e *Engine) CreateBus() BusID {
	if e.released.Load() {
		return 0
	}

	node, err := e.dev.NewSubmixVoice(e.dev.OutputChannels(), e.dev.SampleRate(), backend.DefaultEffectChain)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "CreateBus",
			"error":    err.Error(),
		}).Error("submix creation failed")
		return 0
	}

	e.busMtx.Lock()
	e.lastBusID++
	id := e.lastBusID
	e.buses[id] = &Bus{id: id, node: node, volume: 1}
	e.busMtx.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "CreateBus",
		"bus_id":   id,
	}).Debug("bus created")

	return id
}

// RemoveBus removes every voice routed to the bus and destroys it. The
// master bus cannot be removed.
func (e *Engine) RemoveBus(id BusID) {
	if id == MasterBus {
		return
	}

	e.busMtx.Lock()
	b := e.buses[id]
	delete(e.buses, id)
	e.busMtx.Unlock()
	if b == nil {
		return
	}

	for _, v := range e.voicesWhere(func(v *Voice) bool { return v.busID == id }) {
		e.RemoveVoice(v)
	}

	b.mtx.Lock()
	b.removed = true
	e.fader.StopFade(b.fade)
	for i := range b.effects {
		e.fader.StopFade(b.effects[i].fade)
	}
	b.node.Destroy()
	b.mtx.Unlock()
}
