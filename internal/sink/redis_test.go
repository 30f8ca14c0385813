package sink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/llrpd/internal/reading"
	"github.com/danmuck/llrpd/internal/testutil/testlog"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	mu         sync.Mutex
	published  map[string][]string
	lists      map[string][]string
	publishErr error
	closed     bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		published: make(map[string][]string),
		lists:     make(map[string][]string),
	}
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if f.publishErr != nil {
		cmd.SetErr(f.publishErr)
		return cmd
	}
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		f.lists[key] = append([]string{string(v.([]byte))}, f.lists[key]...)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedis) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	if stop+1 < int64(len(list)) {
		list = list[:stop+1]
	}
	f.lists[key] = list[start:]
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.lists[key]
	end := stop + 1
	if end > int64(len(list)) {
		end = int64(len(list))
	}
	cmd := redis.NewStringSliceCmd(ctx)
	if start >= end {
		cmd.SetVal([]string{})
		return cmd
	}
	cmd.SetVal(append([]string(nil), list[start:end]...))
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisPublishesAndKeepsHistory(t *testing.T) {
	testlog.Start(t)
	client := newFakeRedis()
	s := newRedis(client, RedisConfig{History: 2})
	ctx := context.Background()
	for _, id := range []string{"a1", "a2", "a3"} {
		if err := s.Emit(ctx, sampleReading(id)); err != nil {
			t.Fatalf("emit %s: %v", id, err)
		}
	}
	if got := len(client.published[DefaultRedisChannel]); got != 3 {
		t.Fatalf("expected 3 publishes, got %d", got)
	}
	key := HistoryKey(sampleReading("x"))
	if key != "llrpd:aabbccddeeff0011:readings" {
		t.Fatalf("unexpected key %q", key)
	}
	recent, err := s.Recent(ctx, key, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].TransmitterID != "a3" || recent[1].TransmitterID != "a2" {
		t.Fatalf("unexpected history: %+v", recent)
	}
	if recent[0].RSSI == nil || *recent[0].RSSI != -50 {
		t.Fatalf("rssi lost in history: %+v", recent[0])
	}
	if err := s.Close(); err != nil || !client.closed {
		t.Fatalf("close: %v", err)
	}
}

func TestRedisHistoryKeyFallsBackToOrigin(t *testing.T) {
	testlog.Start(t)
	if got := HistoryKey(reading.Reading{Origin: "host:5084"}); got != "llrpd:host:5084:readings" {
		t.Fatalf("got %q", got)
	}
	if got := HistoryKey(reading.Reading{}); got != "llrpd:unknown:readings" {
		t.Fatalf("got %q", got)
	}
}

func TestRedisPublishFailure(t *testing.T) {
	testlog.Start(t)
	client := newFakeRedis()
	client.publishErr = errors.New("connection refused")
	s := newRedis(client, RedisConfig{Channel: "custom", History: 5})
	if err := s.Emit(context.Background(), sampleReading("a1")); err == nil {
		t.Fatalf("expected publish error")
	}
	if len(client.lists) != 0 {
		t.Fatalf("history must not be written after a failed publish")
	}
}
