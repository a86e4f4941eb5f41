package main

import (
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andaru/sdll/framing"
	"github.com/andaru/sdll/transport"
)

func newEncodeCmd(g *globals) *cobra.Command {
	var (
		hexIn    bool
		crc      bool
		linkName string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Frame standard input as a single payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errors.Wrap(err, "read payload")
			}
			if hexIn {
				if in, err = hex.DecodeString(strings.TrimSpace(string(in))); err != nil {
					return errors.Wrap(err, "decode hex payload")
				}
			}
			l, err := g.link(linkName, crc)
			if err != nil {
				return err
			}
			payload := l.Payload(in)
			if l.TransmitBuffer == 0 {
				l.TransmitBuffer = framing.EncodedLen(payload)
				if l.TransmitBuffer < framing.MinTransmitBufferSize {
					l.TransmitBuffer = framing.MinTransmitBufferSize
				}
			}

			reg := g.cfg.NewRegistry(g.log, nil)
			defer func() {
				if err := reg.Shutdown(); err != nil {
					g.log.Warn("shutdown", zap.Error(err))
				}
			}()
			h, err := reg.Open(nil, l.TransmitterConfig(transport.NewWriter(cmd.OutOrStdout())))
			if err != nil {
				return err
			}
			n, err := reg.Send(h, payload)
			if err != nil {
				return err
			}
			g.log.Info("frame sent", zap.Stringer("link", l), zap.Int("payload", n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexIn, "hex", false, "read the payload as hexadecimal text")
	cmd.Flags().BoolVar(&crc, "crc", false, "append a CRC-32 trailer to the payload")
	cmd.Flags().StringVar(&linkName, "link", "", "use the buffer sizes and options of a configured link")
	return cmd
}
