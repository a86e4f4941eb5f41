package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/pkg/errors"
)

var (
	xpRoot        = xpath.MustCompile(`/sdll`)
	xpCapacity    = xpath.MustCompile(`/sdll/capacity`)
	xpConcurrent  = xpath.MustCompile(`/sdll/concurrent`)
	xpLockTimeout = xpath.MustCompile(`/sdll/lock-timeout`)
	xpWorkers     = xpath.MustCompile(`/sdll/async/workers`)
	xpQueueDepth  = xpath.MustCompile(`/sdll/async/queue-depth`)
	xpLink        = xpath.MustCompile(`/sdll/link`)

	// relative to a link
	xpName           = xpath.MustCompile(`name`)
	xpReceiveBuffer  = xpath.MustCompile(`receive-buffer`)
	xpTransmitBuffer = xpath.MustCompile(`transmit-buffer`)
	xpCRC            = xpath.MustCompile(`crc`)
)

// xmlReader extracts typed values, keeping the first error.
type xmlReader struct{ err error }

func (x *xmlReader) text(top *xmlquery.Node, expr *xpath.Expr) (string, bool) {
	n := xmlquery.QuerySelector(top, expr)
	if n == nil {
		return "", false
	}
	return strings.TrimSpace(n.InnerText()), true
}

func (x *xmlReader) int(top *xmlquery.Node, expr *xpath.Expr, name string, dst *int) {
	if s, ok := x.text(top, expr); ok && x.err == nil {
		v, err := strconv.Atoi(s)
		if err != nil {
			x.err = errors.Wrapf(err, "parse %s", name)
			return
		}
		*dst = v
	}
}

func (x *xmlReader) bool(top *xmlquery.Node, expr *xpath.Expr, name string, dst *bool) {
	if s, ok := x.text(top, expr); ok && x.err == nil {
		v, err := strconv.ParseBool(s)
		if err != nil {
			x.err = errors.Wrapf(err, "parse %s", name)
			return
		}
		*dst = v
	}
}

func (x *xmlReader) duration(top *xmlquery.Node, expr *xpath.Expr, name string, dst *time.Duration) {
	if s, ok := x.text(top, expr); ok && x.err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			x.err = errors.Wrapf(err, "parse %s", name)
			return
		}
		*dst = v
	}
}

func loadXML(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	defer f.Close()
	doc, err := xmlquery.Parse(f)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if xmlquery.QuerySelector(doc, xpRoot) == nil {
		return Config{}, errors.New("load config: missing <sdll> root element")
	}

	cfg := Default()
	x := &xmlReader{}
	x.int(doc, xpCapacity, "capacity", &cfg.Capacity)
	x.bool(doc, xpConcurrent, "concurrent", &cfg.Concurrent)
	x.duration(doc, xpLockTimeout, "lock-timeout", &cfg.LockTimeout)
	x.int(doc, xpWorkers, "async/workers", &cfg.Async.Workers)
	x.int(doc, xpQueueDepth, "async/queue-depth", &cfg.Async.QueueDepth)
	for _, n := range xmlquery.QuerySelectorAll(doc, xpLink) {
		var l Link
		l.Name, _ = x.text(n, xpName)
		x.int(n, xpReceiveBuffer, "link/receive-buffer", &l.ReceiveBuffer)
		x.int(n, xpTransmitBuffer, "link/transmit-buffer", &l.TransmitBuffer)
		x.bool(n, xpCRC, "link/crc", &l.CRC)
		cfg.Links = append(cfg.Links, l)
	}
	if x.err != nil {
		return Config{}, x.err
	}
	return cfg, nil
}
