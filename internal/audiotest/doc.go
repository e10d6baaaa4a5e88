// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides test doubles for sources and devices.
package audiotest
