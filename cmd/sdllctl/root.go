package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andaru/sdll/config"
)

// globals holds state shared by all commands, set up before each run.
type globals struct {
	cfgFile  string
	logLevel string

	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "sdllctl",
		Short: "Frame and unframe byte streams with the simple data link layer",
		Long: `sdllctl encodes payloads into boundary delimited, byte escaped frames
and decodes such streams back into payloads, using the same engine as
links opened by applications.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = g.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (.toml or .xml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.AddCommand(newEncodeCmd(g), newDecodeCmd(g))
	return root
}

func (g *globals) setup() error {
	level, err := zapcore.ParseLevel(g.logLevel)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(level)
	if g.log, err = zc.Build(); err != nil {
		return errors.Wrap(err, "build logger")
	}

	g.cfg = config.Default()
	if g.cfgFile != "" {
		if g.cfg, err = config.Load(g.cfgFile); err != nil {
			return err
		}
		g.log.Debug("loaded config", zap.String("path", g.cfgFile), zap.Int("links", len(g.cfg.Links)))
	}
	return nil
}

// link returns the configured link named name, or an unbounded link
// when name is empty. crc forces checksums on.
func (g *globals) link(name string, crc bool) (config.Link, error) {
	l := config.Link{Name: "stdio"}
	if name != "" {
		var ok bool
		if l, ok = g.cfg.Link(name); !ok {
			return config.Link{}, errors.Errorf("no link %q in config", name)
		}
	}
	if crc {
		l.CRC = true
	}
	return l, nil
}
