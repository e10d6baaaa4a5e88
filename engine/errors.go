// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrUnknownBank       = errors.New("unknown bank")
	ErrUnknownBus        = errors.New("unknown bus")
	ErrUnknownVoice      = errors.New("unknown voice")
	ErrBankNotReady      = errors.New("bank has no decoded format yet")
	ErrDecodeTimeout     = errors.New("timed out waiting for decoded samples")
	ErrUnsupportedFormat = errors.New("no decoder registered for format")
	ErrUnknownLength     = errors.New("decoder does not report a total length")
	ErrEngineReleased    = errors.New("engine released")
	ErrEmptyData         = errors.New("empty audio data")
)
