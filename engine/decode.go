// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ik5/audvox/audio"
	"github.com/sirupsen/logrus"
)

// maxEmptyReads ends a decode whose source keeps returning nothing.
const maxEmptyReads = 8

// addBankEntry registers an empty bank.
func (e *Engine) addBankEntry(onDecoded DecodedFunc) *Bank {
	e.bankMtx.Lock()
	defer e.bankMtx.Unlock()

	e.lastBankID++
	b := newBank(e.lastBankID, onDecoded)
	e.banks[b.id] = b
	return b
}

func (e *Engine) dropBankEntry(id BankID) {
	e.bankMtx.Lock()
	b := e.banks[id]
	delete(e.banks, id)
	e.bankMtx.Unlock()

	if b != nil {
		b.markRemoved()
	}
}

// startDecode opens data with the decoder registered for format and fills
// the bank, in the background when async is set.
func (e *Engine) startDecode(b *Bank, data []byte, format string, async bool) error {
	if len(data) == 0 {
		return ErrEmptyData
	}

	dec, ok := e.registry.Get(format)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("opening %s stream: %w", format, err)
	}

	frames := audio.Frames(src)
	if frames <= 0 || src.Channels() <= 0 || src.SampleRate() <= 0 {
		_ = src.Close()
		return fmt.Errorf("%w: %s stream", ErrUnknownLength, format)
	}

	b.prepare(src.Channels(), src.SampleRate(), frames)

	e.log.WithFields(logrus.Fields{
		"function":      "StartDecode",
		"bank_id":       b.id,
		"format":        format,
		"channels":      src.Channels(),
		"sample_rate":   src.SampleRate(),
		"total_samples": frames,
	}).Debug("decode started")

	if !async {
		e.decode(b, src, data)
		return nil
	}

	e.spawn(func() {
		if err := e.decodeSlots.Acquire(e.ctx, 1); err != nil {
			_ = src.Close()
			e.finishDecode(b, data)
			return
		}
		defer e.decodeSlots.Release(1)

		e.decode(b, src, data)
	})
	return nil
}

// decode pulls chunks from src into the bank until the stream ends or the
// bank is removed.
func (e *Engine) decode(b *Bank, src audio.Source, data []byte) {
	defer src.Close()

	log := e.log.WithFields(logrus.Fields{
		"function": "Decode",
		"bank_id":  b.id,
	})

	channels := src.Channels()
	chunk := make([]float32, e.opts.DecodeChunkFrames*channels)
	empty := 0

	for {
		n, err := src.ReadSamples(chunk)
		if frames := n / channels; frames > 0 {
			empty = 0
			if b.appendFrames(chunk[:frames*channels]) {
				break
			}
		} else if err == nil {
			empty++
			if empty >= maxEmptyReads {
				break
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.WithField("error", err.Error()).Warn("decoder failed, keeping decoded part")
			break
		}
	}

	e.finishDecode(b, data)
}

func (e *Engine) finishDecode(b *Bank, data []byte) {
	truncated, notify := b.finishDecode()

	log := e.log.WithFields(logrus.Fields{
		"function":      "Decode",
		"bank_id":       b.id,
		"total_samples": b.Frames(),
	})
	if truncated {
		log.Warn("stream shorter than announced, total corrected")
	}
	log.Info("bank decoded")

	if notify && b.onDecoded != nil {
		b.onDecoded(b.id, data)
	}
}

// BankAdd loads encoded audio of the given format and decodes it in the
// background. onDecoded may be nil. It returns 0 on failure.
func (e *Engine) BankAdd(data []byte, format string, onDecoded DecodedFunc) BankID {
	return e.bankAdd(data, format, onDecoded, true)
}

// BankAddOgg loads an Ogg Vorbis stream. data must stay untouched until
// onDecoded is called.
func (e *Engine) BankAddOgg(data []byte, onDecoded DecodedFunc) BankID {
	return e.bankAdd(data, "ogg", onDecoded, true)
}

// BankAddWav loads a WAV file synchronously. data is not retained.
func (e *Engine) BankAddWav(data []byte) BankID {
	return e.bankAdd(bytes.Clone(data), "wav", nil, false)
}

// BankLoadFile reads path and picks the decoder from its extension.
func (e *Engine) BankLoadFile(path string, onDecoded DecodedFunc) BankID {
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "BankLoadFile",
			"path":     path,
			"error":    err.Error(),
		}).Error("read failed")
		return 0
	}
	return e.bankAdd(data, formatFromPath(path), onDecoded, true)
}

func (e *Engine) bankAdd(data []byte, format string, onDecoded DecodedFunc, async bool) BankID {
	if e.released.Load() {
		return 0
	}

	b := e.addBankEntry(onDecoded)
	if err := e.startDecode(b, data, format, async); err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "BankAdd",
			"bank_id":  b.id,
			"format":   format,
			"error":    err.Error(),
		}).Error("bank not loaded")
		e.dropBankEntry(b.id)
		return 0
	}
	return b.id
}

// BankRemove removes every voice playing the bank and forgets it. Memory is
// released once decoding stopped and no voice reads it anymore.
func (e *Engine) BankRemove(id BankID) {
	for _, v := range e.voicesWhere(func(v *Voice) bool { return v.bank != nil && v.bank.id == id }) {
		e.RemoveVoice(v)
	}
	e.dropBankEntry(id)
}

// BankAutoRemove removes the bank once the last voice using it finished.
func (e *Engine) BankAutoRemove(id BankID) {
	e.bankMtx.Lock()
	b := e.banks[id]
	e.bankMtx.Unlock()

	if b != nil {
		b.setAutoRemove()
	}
}

// BankCount is the number of registered banks.
func (e *Engine) BankCount() int {
	e.bankMtx.Lock()
	defer e.bankMtx.Unlock()

	return len(e.banks)
}

// PlayFile loads path, plays it once on busID and discards the bank when
// done. It returns 0 on failure.
func (e *Engine) PlayFile(path string, busID BusID) VoiceID {
	bankID := e.BankLoadFile(path, nil)
	if bankID == 0 {
		return 0
	}
	e.BankAutoRemove(bankID)

	id := e.CreateVoice(bankID, busID, false)
	if id == 0 {
		e.BankRemove(bankID)
		return 0
	}
	if !e.Start(id) {
		return 0
	}
	return id
}

func formatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
