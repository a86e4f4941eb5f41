// Package config loads registry and link settings from TOML or XML files.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/andaru/sdll/check"
	"github.com/andaru/sdll/dispatch"
	"github.com/andaru/sdll/framing"
	"github.com/andaru/sdll/registry"
	"github.com/andaru/sdll/session"
)

// Config describes a registry and the links to open on it.
type Config struct {
	// Capacity is the number of link slots
	Capacity int
	// Concurrent enables per-session locking
	Concurrent bool
	// LockTimeout bounds the wait for a session lock
	LockTimeout time.Duration
	Async       Async
	Links       []Link
}

// Async configures the worker queue for asynchronous operations.
// Zero Workers disables asynchronous operations.
type Async struct {
	Workers    int
	QueueDepth int
}

// Link describes one link. A zero buffer size disables that direction.
type Link struct {
	Name           string
	ReceiveBuffer  int
	TransmitBuffer int
	// CRC adds and checks a CRC-32 trailer on every payload
	CRC bool
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Capacity:    4,
		Concurrent:  true,
		LockTimeout: 100 * time.Millisecond,
		Async:       Async{QueueDepth: 64},
	}
}

// Load reads the file at path, chosen by extension (.toml or .xml), over
// the defaults and validates the result.
func Load(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		cfg, err = loadTOML(path)
	case ".xml":
		cfg, err = loadXML(path)
	default:
		return Config{}, errors.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate returns every problem found in c.
func (c Config) Validate() (err error) {
	if c.Capacity < 1 || c.Capacity > 1<<16-1 {
		err = multierr.Append(err, errors.Errorf("capacity %d out of range 1..65535", c.Capacity))
	}
	if c.LockTimeout < 0 {
		err = multierr.Append(err, errors.Errorf("negative lock timeout %s", c.LockTimeout))
	}
	if c.Async.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("negative async workers %d", c.Async.Workers))
	}
	if c.Async.Workers > 0 && c.Async.QueueDepth < 1 {
		err = multierr.Append(err, errors.Errorf("async queue depth %d must be positive", c.Async.QueueDepth))
	}
	if len(c.Links) > c.Capacity {
		err = multierr.Append(err, errors.Errorf("%d links exceed capacity %d", len(c.Links), c.Capacity))
	}
	seen := make(map[string]bool, len(c.Links))
	for i, l := range c.Links {
		if l.Name == "" {
			err = multierr.Append(err, errors.Errorf("link %d: missing name", i))
		} else if seen[l.Name] {
			err = multierr.Append(err, errors.Errorf("link %q: duplicate name", l.Name))
		}
		seen[l.Name] = true
		err = multierr.Append(err, l.validate())
	}
	return err
}

func (l Link) validate() (err error) {
	switch {
	case l.ReceiveBuffer < 0:
		err = multierr.Append(err, errors.Errorf("link %q: negative receive buffer", l.Name))
	case l.CRC && l.ReceiveBuffer > 0 && l.ReceiveBuffer < check.Size:
		err = multierr.Append(err, errors.Errorf("link %q: receive buffer %d cannot hold a checksum", l.Name, l.ReceiveBuffer))
	}
	if l.TransmitBuffer != 0 && l.TransmitBuffer < framing.MinTransmitBufferSize {
		err = multierr.Append(err, errors.Errorf("link %q: transmit buffer %d below minimum %d",
			l.Name, l.TransmitBuffer, framing.MinTransmitBufferSize))
	}
	if l.ReceiveBuffer == 0 && l.TransmitBuffer == 0 {
		err = multierr.Append(err, errors.Errorf("link %q: no receive or transmit buffer", l.Name))
	}
	return err
}

// Link returns the link named name.
func (c Config) Link(name string) (Link, bool) {
	for _, l := range c.Links {
		if l.Name == name {
			return l, true
		}
	}
	return Link{}, false
}

// RegistryOptions returns the registry options for c. A dispatcher is
// started when asynchronous operations are enabled; the registry
// closes it on Shutdown.
func (c Config) RegistryOptions(logger *zap.Logger, reg prometheus.Registerer) []registry.Option {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []registry.Option{registry.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, registry.WithMetrics(reg))
	}
	if c.Concurrent {
		opts = append(opts, registry.WithConcurrency(c.LockTimeout))
	}
	if c.Async.Workers > 0 {
		d := dispatch.New(c.Async.Workers, c.Async.QueueDepth, dispatch.WithLogger(logger.Named("dispatch")))
		opts = append(opts, registry.WithDispatcher(d))
	}
	return opts
}

// NewRegistry returns a registry configured by c.
func (c Config) NewRegistry(logger *zap.Logger, reg prometheus.Registerer) *registry.Registry {
	return registry.New(c.Capacity, c.RegistryOptions(logger, reg)...)
}

// ReceiverConfig returns a receive configuration for l delivering to h,
// or nil if l has no receive buffer. With CRC, frames are checked and
// h sees the payload without the trailer.
func (l Link) ReceiverConfig(h session.Handler) *session.ReceiverConfig {
	if l.ReceiveBuffer == 0 {
		return nil
	}
	rc := &session.ReceiverConfig{Buffer: make([]byte, l.ReceiveBuffer), Handler: h}
	if l.CRC {
		rc.Validator = check.Validator
		rc.Handler = check.StripHandler(h)
	}
	return rc
}

// TransmitterConfig returns a transmit configuration for l writing to
// t, or nil if l has no transmit buffer.
func (l Link) TransmitterConfig(t session.Transport) *session.TransmitterConfig {
	if l.TransmitBuffer == 0 {
		return nil
	}
	return &session.TransmitterConfig{Buffer: make([]byte, l.TransmitBuffer), Transport: t}
}

// Payload returns p as sent on l, with a trailer if l uses CRC.
func (l Link) Payload(p []byte) []byte {
	if l.CRC {
		return check.Append(nil, p)
	}
	return p
}

func (l Link) String() string {
	return fmt.Sprintf("%s(rx=%d tx=%d crc=%t)", l.Name, l.ReceiveBuffer, l.TransmitBuffer, l.CRC)
}
