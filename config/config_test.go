package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/andaru/sdll/check"
	"github.com/andaru/sdll/framing"
	"github.com/andaru/sdll/linkerr"
	"github.com/andaru/sdll/session"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var wantLoaded = Config{
	Capacity:    8,
	Concurrent:  false,
	LockTimeout: 250 * time.Millisecond,
	Async:       Async{Workers: 2, QueueDepth: 64},
	Links: []Link{
		{Name: "uart0", ReceiveBuffer: 256, TransmitBuffer: 512, CRC: true},
		{Name: "probe", ReceiveBuffer: 64},
	},
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "sdll.toml", `
capacity = 8
concurrent = false
lock_timeout = "250ms"

[async]
workers = 2

[[link]]
name = "uart0"
receive_buffer = 256
transmit_buffer = 512
crc = true

[[link]]
name = " probe "
receive_buffer = 64
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, wantLoaded, cfg)
}

func TestLoadXML(t *testing.T) {
	path := writeFile(t, "sdll.xml", `<?xml version="1.0"?>
<sdll>
  <capacity>8</capacity>
  <concurrent>false</concurrent>
  <lock-timeout>250ms</lock-timeout>
  <async><workers>2</workers></async>
  <link>
    <name>uart0</name>
    <receive-buffer>256</receive-buffer>
    <transmit-buffer>512</transmit-buffer>
    <crc>true</crc>
  </link>
  <link>
    <name> probe </name>
    <receive-buffer>64</receive-buffer>
  </link>
</sdll>`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, wantLoaded, cfg)
}

func TestLoadDefaults(t *testing.T) {
	ck := assert.New(t)
	cfg, err := Load(writeFile(t, "empty.toml", ""))
	ck.NoError(err)
	ck.Equal(Default(), cfg)

	cfg, err = Load(writeFile(t, "empty.xml", "<sdll/>"))
	ck.NoError(err)
	ck.Equal(Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name, file, content string
	}{
		{"unknown extension", "sdll.yaml", "capacity: 1"},
		{"toml syntax", "bad.toml", "capacity = "},
		{"toml unknown key", "bad.toml", "capacity = 1\nspeed = 9600"},
		{"toml duration", "bad.toml", `lock_timeout = "soon"`},
		{"xml syntax", "bad.xml", "<sdll><capacity>"},
		{"xml root", "bad.xml", "<config/>"},
		{"xml number", "bad.xml", "<sdll><capacity>many</capacity></sdll>"},
		{"xml bool", "bad.xml", "<sdll><concurrent>maybe</concurrent></sdll>"},
		{"xml duration", "bad.xml", "<sdll><lock-timeout>soon</lock-timeout></sdll>"},
		{"invalid values", "bad.toml", "capacity = 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.content))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ck := assert.New(t)
	ck.NoError(Default().Validate())

	cfg := Config{
		Capacity:    1,
		LockTimeout: -time.Second,
		Async:       Async{Workers: 1},
		Links: []Link{
			{Name: "a", ReceiveBuffer: 2, CRC: true},
			{Name: "a", TransmitBuffer: framing.MinTransmitBufferSize - 1},
			{ReceiveBuffer: -1},
			{Name: "c"},
		},
	}
	err := cfg.Validate()
	ck.Error(err)
	// lock timeout, queue depth, link count, crc buffer, duplicate name,
	// short transmit buffer, missing name, negative receive buffer and
	// a link without buffers
	ck.Len(multierr.Errors(err), 9)
}

func TestNewRegistry(t *testing.T) {
	ck := assert.New(t)
	cfg := wantLoaded
	preg := prometheus.NewPedanticRegistry()
	r := cfg.NewRegistry(zaptest.NewLogger(t), preg)
	ck.Equal(8, r.Cap())

	l, ok := cfg.Link("uart0")
	require.True(t, ok)
	var wire []byte
	var got [][]byte
	h, err := r.Open(
		l.ReceiverConfig(session.HandlerFunc(func(p []byte) { got = append(got, append([]byte(nil), p...)) })),
		l.TransmitterConfig(session.TransportFunc(func(p []byte) (int, error) {
			wire = append(wire, p...)
			return len(p), nil
		})),
	)
	require.NoError(t, err)

	payload := l.Payload([]byte("ping"))
	ck.Len(payload, 4+check.Size)
	n, err := r.Send(h, payload)
	ck.NoError(err)
	ck.Equal(len(payload), n)
	_, err = r.Receive(h, wire)
	ck.NoError(err)
	ck.Equal([][]byte{[]byte("ping")}, got)

	// asynchronous operations are enabled by the config
	ck.NoError(r.SendAsync(h, payload))
	ck.NoError(r.Shutdown())

	probe, ok := cfg.Link("probe")
	require.True(t, ok)
	ck.Nil(probe.TransmitterConfig(nil))
	ck.Equal([]byte("x"), probe.Payload([]byte("x")))
	_, ok = cfg.Link("none")
	ck.False(ok)
	ck.Equal("probe(rx=64 tx=0 crc=false)", probe.String())
}

func TestRegistryOptionsSync(t *testing.T) {
	cfg := Default()
	r := cfg.NewRegistry(nil, nil)
	h, err := r.Open(nil, Link{Name: "x", TransmitBuffer: 8}.TransmitterConfig(session.TransportFunc(func(p []byte) (int, error) {
		return len(p), nil
	})))
	require.NoError(t, err)
	assert.True(t, linkerr.Is(r.SendAsync(h, []byte{0x01}), linkerr.InvalidArgument))
}
