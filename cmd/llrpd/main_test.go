package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/testutil/testlog"
)

type decodedChunk struct {
	Chunk    int `json:"chunk"`
	Messages []struct {
		Name   string `json:"name"`
		Origin string `json:"origin"`
	} `json:"messages"`
	Commands []string `json:"commands"`
	Error    string   `json:"error"`
}

func readChunks(t *testing.T, out *bytes.Buffer) []decodedChunk {
	t.Helper()
	var got []decodedChunk
	dec := json.NewDecoder(out)
	for {
		var c decodedChunk
		if err := dec.Decode(&c); err == io.EOF {
			return got
		} else if err != nil {
			t.Fatalf("decode output: %v", err)
		}
		got = append(got, c)
	}
}

func TestDecodeKeepaliveRepliesWithAck(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := runDecode(&out, []string{"043e0000000a00000001"}, "capture", session.DefaultOptions()); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	got := readChunks(t, &out)
	if len(got) != 1 || len(got[0].Messages) != 1 {
		t.Fatalf("unexpected output: %+v", got)
	}
	if got[0].Messages[0].Name != "KEEPALIVE" || got[0].Messages[0].Origin != "capture" {
		t.Fatalf("unexpected message: %+v", got[0].Messages[0])
	}
	if len(got[0].Commands) != 1 || got[0].Commands[0] != "04480000000a00000000" {
		t.Fatalf("expected keepalive ack, got %v", got[0].Commands)
	}
}

func TestDecodeStitchesArguments(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := runDecode(&out, []string{"043e 0000 00", "0a00000001"}, "capture", session.DefaultOptions()); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	got := readChunks(t, &out)
	if len(got) != 2 {
		t.Fatalf("expected two chunk records, got %d", len(got))
	}
	if len(got[0].Messages) != 0 || len(got[1].Messages) != 1 {
		t.Fatalf("expected the frame on the second chunk: %+v", got)
	}

	out.Reset()
	legacy := session.DefaultOptions()
	legacy.Stitch = false
	if err := runDecode(&out, []string{"043e000000", "0a00000001"}, "capture", legacy); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	got = readChunks(t, &out)
	if len(got) != 2 || got[0].Error == "" || len(got[1].Messages) != 0 {
		t.Fatalf("legacy mode should drop both halves: %+v", got)
	}
}

func TestDecodeRejectsBadHex(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	if err := runDecode(&out, []string{"zz"}, "capture", session.DefaultOptions()); err == nil {
		t.Fatalf("expected hex error")
	}
}

func TestReadLinesSkipsCommentsAndBlanks(t *testing.T) {
	testlog.Start(t)
	lines, err := readLines(strings.NewReader("# capture\n\n043e0000000a00000001\n  0a0b \n"))
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 2 || lines[1] != "0a0b" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestRootCommandRunsDecode(t *testing.T) {
	testlog.Start(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"decode", "--origin", "bench", "043e0000000a00000001"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := readChunks(t, &out)
	if len(got) != 1 || got[0].Messages[0].Origin != "bench" {
		t.Fatalf("unexpected output: %+v", got)
	}
}
