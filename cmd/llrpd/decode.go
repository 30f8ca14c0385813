package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/llrpd/internal/protocol"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reading"
	"github.com/spf13/cobra"
)

type decodeOutput struct {
	Chunk        int                    `json:"chunk"`
	Messages     []protocol.Message     `json:"messages"`
	Commands     []string               `json:"commands,omitempty"`
	Readings     []reading.Reading      `json:"readings,omitempty"`
	StatusErrors []protocol.StatusError `json:"statusErrors,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	var (
		origin  string
		legacy  bool
		allTags bool
	)
	cmd := &cobra.Command{
		Use:   "decode [hex-chunk...]",
		Short: "Decode captured LLRP bytes to JSON",
		Long: `Decode treats each argument as one transport chunk from the same reader,
in order. With no arguments it reads one hex chunk per line from stdin.
Whitespace inside a chunk is ignored.

Examples:
  llrpd decode 043e0000000a00000001
  llrpd decode 043e000000 0a00000001
  cat capture.hex | llrpd decode --all-tags`,
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks := args
			if len(chunks) == 0 {
				lines, err := readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
				chunks = lines
			}
			opts := session.DefaultOptions()
			opts.Stitch = !legacy
			opts.ReportAllTags = allTags
			return runDecode(cmd.OutOrStdout(), chunks, origin, opts)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "capture", "origin the chunks are attributed to")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "drop partial frames instead of stitching chunks")
	cmd.Flags().BoolVar(&allTags, "all-tags", false, "emit one reading per TagReportData")
	return cmd
}

func runDecode(w io.Writer, chunks []string, origin string, opts session.Options) error {
	state := session.NewState(origin, opts)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for i, raw := range chunks {
		chunk, err := hex.DecodeString(strings.Join(strings.Fields(raw), ""))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		res := state.Decode(chunk, time.Now())
		out := decodeOutput{
			Chunk:        i,
			Messages:     res.Messages,
			Readings:     res.Readings,
			StatusErrors: res.StatusErrors,
		}
		if out.Messages == nil {
			out.Messages = []protocol.Message{}
		}
		for _, c := range res.Commands {
			out.Commands = append(out.Commands, hex.EncodeToString(c))
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
