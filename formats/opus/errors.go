// SPDX-License-Identifier: EPL-2.0

package opus

import "errors"

var (
	ErrNotOpusStream     = errors.New("not an Opus packet stream")
	ErrUnsupportedLayout = errors.New("unsupported Opus stream layout")
	ErrPacketTooLarge    = errors.New("Opus packet too large")
)
