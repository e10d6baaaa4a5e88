// SPDX-License-Identifier: EPL-2.0

package audvox

import (
	"fmt"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend/soft"
	"github.com/ik5/audvox/engine"
	"github.com/ik5/audvox/formats/aiff"
	"github.com/ik5/audvox/formats/mp3"
	"github.com/ik5/audvox/formats/opus"
	"github.com/ik5/audvox/formats/vorbis"
	"github.com/ik5/audvox/formats/wav"
	"github.com/ik5/audvox/sink/beepsink"
	"github.com/ik5/audvox/sink/otosink"
	"github.com/ik5/audvox/sink/wavsink"
	"github.com/sirupsen/logrus"
)

// DefaultRegistry returns a registry holding every bundled decoder. Keys
// match file extensions.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{}, "wave")
	reg.Register("ogg", vorbis.Decoder{}, "oga", "vorbis")
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("aiff", aiff.Decoder{}, "aif", "aifc")
	reg.Register("opus", opus.Decoder{})
	return reg
}

func newSink(cfg *Config, logger *logrus.Logger) (soft.Sink, error) {
	switch cfg.Sink {
	case SinkNull:
		return soft.NewNullSink(), nil
	case SinkWAV:
		if cfg.WAVPath == "" {
			return nil, ErrNoWAVPath
		}
		return wavsink.New(cfg.WAVPath, 0), nil
	case SinkOto:
		return otosink.New(0, logger), nil
	case SinkBeep:
		return beepsink.New(0), nil
	case SinkCustom:
		if cfg.Custom == nil {
			return nil, fmt.Errorf("%w: custom sink not set", ErrUnknownSink)
		}
		return cfg.Custom, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownSink, cfg.Sink)
}

// Open creates a software device for cfg and an engine on top of it. The
// engine is not started. Release closes the device and its sink.
func Open(cfg *Config) (*engine.Engine, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	opts := cfg.Options
	if opts == nil {
		opts = engine.NewOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	sink, err := newSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	dev, err := soft.New(&soft.Config{
		SampleRate:  cfg.SampleRate,
		Channels:    cfg.Channels,
		ChannelMask: cfg.ChannelMask,
		Sink:        sink,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating device: %w", err)
	}

	e, err := engine.New(dev, DefaultRegistry(), opts)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"function":    "Open",
		"sink":        cfg.Sink.String(),
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
	}).Debug("engine opened")
	return e, nil
}
