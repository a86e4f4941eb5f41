package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andaru/sdll/session"
	"github.com/andaru/sdll/transport"
)

type frameRecord struct {
	Index   int    `yaml:"index"`
	Length  int    `yaml:"length"`
	Payload string `yaml:"payload"`
}

type decodeReport struct {
	Frames    []frameRecord `yaml:"frames"`
	Overflows int           `yaml:"overflows"`
}

func newDecodeCmd(g *globals) *cobra.Command {
	var (
		output   string
		crc      bool
		linkName string
		bufsize  int
	)
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Extract frame payloads from standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "hex" && output != "yaml" {
				return errors.Errorf("unknown output format %q", output)
			}
			l, err := g.link(linkName, crc)
			if err != nil {
				return err
			}
			if l.ReceiveBuffer == 0 {
				l.ReceiveBuffer = bufsize
			}

			var report decodeReport
			reg := g.cfg.NewRegistry(g.log, nil)
			defer func() {
				if err := reg.Shutdown(); err != nil {
					g.log.Warn("shutdown", zap.Error(err))
				}
			}()
			h, err := reg.Open(l.ReceiverConfig(session.HandlerFunc(func(p []byte) {
				report.Frames = append(report.Frames, frameRecord{
					Index:   len(report.Frames),
					Length:  len(p),
					Payload: hex.EncodeToString(p),
				})
			})), nil)
			if err != nil {
				return err
			}

			pump := transport.NewPump(reg, h, cmd.InOrStdin(), transport.WithOverflowHandler(func(err error) {
				report.Overflows++
				g.log.Warn("frame dropped", zap.Error(err))
			}))
			if err := pump.Run(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "yaml" {
				enc := yaml.NewEncoder(out)
				if err := enc.Encode(report); err != nil {
					return err
				}
				return enc.Close()
			}
			for _, f := range report.Frames {
				fmt.Fprintln(out, f.Payload)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "hex", "output format: hex, yaml")
	cmd.Flags().BoolVar(&crc, "crc", false, "check and strip a CRC-32 trailer")
	cmd.Flags().StringVar(&linkName, "link", "", "use the buffer sizes and options of a configured link")
	cmd.Flags().IntVar(&bufsize, "buffer", 4096, "receive buffer size when no link is configured")
	return cmd
}
