package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type fileConfig struct {
	Capacity    int        `toml:"capacity"`
	Concurrent  bool       `toml:"concurrent"`
	LockTimeout string     `toml:"lock_timeout"`
	Async       fileAsync  `toml:"async"`
	Links       []fileLink `toml:"link"`
}

type fileAsync struct {
	Workers    int `toml:"workers"`
	QueueDepth int `toml:"queue_depth"`
}

type fileLink struct {
	Name           string `toml:"name"`
	ReceiveBuffer  int    `toml:"receive_buffer"`
	TransmitBuffer int    `toml:"transmit_buffer"`
	CRC            bool   `toml:"crc"`
}

func loadTOML(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("capacity") {
		cfg.Capacity = raw.Capacity
	}
	if meta.IsDefined("concurrent") {
		cfg.Concurrent = raw.Concurrent
	}
	if meta.IsDefined("lock_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.LockTimeout))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse lock_timeout")
		}
		cfg.LockTimeout = d
	}
	if meta.IsDefined("async", "workers") {
		cfg.Async.Workers = raw.Async.Workers
	}
	if meta.IsDefined("async", "queue_depth") {
		cfg.Async.QueueDepth = raw.Async.QueueDepth
	}
	for _, l := range raw.Links {
		cfg.Links = append(cfg.Links, Link{
			Name:           strings.TrimSpace(l.Name),
			ReceiveBuffer:  l.ReceiveBuffer,
			TransmitBuffer: l.TransmitBuffer,
			CRC:            l.CRC,
		})
	}
	return cfg, nil
}
