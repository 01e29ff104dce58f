package hooks

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/youssefsiam38/contextgc/compaction"
	"github.com/youssefsiam38/contextgc/types"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
}

func TestOnBeforeCollect(t *testing.T) {
	r := NewRegistry()
	var capturedSessionID string
	var capturedUsage *compaction.Usage

	r.OnBeforeCollect(func(ctx context.Context, sessionID string, usage *compaction.Usage) error {
		capturedSessionID = sessionID
		capturedUsage = usage
		return nil
	})

	usage := &compaction.Usage{TotalTokens: 1000}
	if err := r.TriggerBeforeCollect(context.Background(), "session-123", usage); err != nil {
		t.Errorf("TriggerBeforeCollect returned error: %v", err)
	}
	if capturedSessionID != "session-123" {
		t.Errorf("expected sessionID 'session-123', got '%s'", capturedSessionID)
	}
	if capturedUsage != usage {
		t.Error("usage was not passed to hook")
	}
}

func TestOnAfterCollect(t *testing.T) {
	r := NewRegistry()
	var capturedResult *compaction.Result

	r.OnAfterCollect(func(ctx context.Context, result *compaction.Result) error {
		capturedResult = result
		return nil
	})

	testResult := &compaction.Result{
		OriginalTokens:  1000,
		CompactedTokens: 500,
	}

	if err := r.TriggerAfterCollect(context.Background(), testResult); err != nil {
		t.Errorf("TriggerAfterCollect returned error: %v", err)
	}
	if capturedResult != testResult {
		t.Error("result was not passed to hook")
	}
}

func TestOnExternalize(t *testing.T) {
	r := NewRegistry()
	var capturedMessageID string
	var capturedBrainID int

	r.OnExternalize(func(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
		capturedMessageID = messageID
		capturedBrainID = brainID
		return nil
	})

	if err := r.TriggerExternalize(context.Background(), "s", "msg_1", 42, nil); err != nil {
		t.Errorf("TriggerExternalize returned error: %v", err)
	}
	if capturedMessageID != "msg_1" || capturedBrainID != 42 {
		t.Errorf("captured %s / %d, want msg_1 / 42", capturedMessageID, capturedBrainID)
	}
}

func TestHookStopsOnError(t *testing.T) {
	r := NewRegistry()
	called := []int{}
	expectedErr := errors.New("stop here")

	r.OnBeforeCollect(func(ctx context.Context, sessionID string, usage *compaction.Usage) error {
		called = append(called, 1)
		return nil
	})

	r.OnBeforeCollect(func(ctx context.Context, sessionID string, usage *compaction.Usage) error {
		called = append(called, 2)
		return expectedErr // This should stop execution
	})

	r.OnBeforeCollect(func(ctx context.Context, sessionID string, usage *compaction.Usage) error {
		called = append(called, 3) // This should NOT be called
		return nil
	})

	err := r.TriggerBeforeCollect(context.Background(), "s", &compaction.Usage{})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if len(called) != 2 {
		t.Errorf("expected 2 hooks to be called before error, got %d", len(called))
	}
}

func TestMultipleHooks(t *testing.T) {
	r := NewRegistry()
	callOrder := []int{}

	for i := 1; i <= 3; i++ {
		n := i
		r.OnAfterCollect(func(ctx context.Context, result *compaction.Result) error {
			callOrder = append(callOrder, n)
			return nil
		})
	}

	if err := r.TriggerAfterCollect(context.Background(), &compaction.Result{}); err != nil {
		t.Errorf("TriggerAfterCollect returned error: %v", err)
	}

	if len(callOrder) != 3 {
		t.Fatalf("expected 3 hooks to be called, got %d", len(callOrder))
	}
	for i, v := range callOrder {
		if v != i+1 {
			t.Errorf("expected call order %d at index %d, got %d", i+1, i, v)
		}
	}
}

func TestConcurrentRegistrationAndTrigger(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		r.OnExternalize(func(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
			return nil
		})
	}

	wg.Add(200)
	for i := 0; i < 100; i++ {
		go func() {
			defer wg.Done()
			r.OnExternalize(func(ctx context.Context, sessionID, messageID string, brainID int, err error) error {
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = r.TriggerExternalize(context.Background(), "s", "m", 1, nil)
		}()
	}
	wg.Wait()
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry()
	NewLoggingHooks(log.New(&buf, "", 0)).Register(r)

	ctx := context.Background()
	_ = r.TriggerBeforeCollect(ctx, "s1", &compaction.Usage{TotalTokens: 160000, Ratio: 0.8, Zone: compaction.PressureExtreme})
	_ = r.TriggerAfterCollect(ctx, &compaction.Result{OriginalTokens: 1000, CompactedTokens: 250})
	_ = r.TriggerExternalize(ctx, "s1", "msg_1", 7, nil)
	_ = r.TriggerExternalize(ctx, "s1", "msg_2", 0, errors.New("down"))

	out := buf.String()
	for _, want := range []string{
		"Starting GC for session s1: 160000 tokens (80% of window, extreme pressure)",
		"1000 → 250 tokens (75.0% reduction",
		"Message msg_1 externalized as brain#7",
		"Write-through of message msg_2 failed: down",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestVerboseLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry()
	NewVerboseLoggingHooks(log.New(&buf, "", 0)).Register(r)

	_ = r.TriggerAfterCollect(context.Background(), &compaction.Result{
		Budget: compaction.Budget{HotTurns: 3, WarmTurns: 4, ColdTurns: 8, GoneTurns: 10},
		Tiers:  map[types.Tier]int{types.TierHot: 4, types.TierGone: 2},
	})

	out := buf.String()
	if !strings.Contains(out, "Budget: hot=3 warm=4 cold=8 gone=10") || !strings.Contains(out, "Tiers: hot=4 warm=0 cold=0 gone=2") {
		t.Errorf("unexpected verbose output:\n%s", out)
	}
}

func TestMetricsHooks(t *testing.T) {
	metrics := map[string]float64{}
	h := NewMetricsHooks(func(name string, value float64, tags map[string]string) {
		metrics[name] = value
	})
	r := NewRegistry()
	h.Register(r)

	_ = r.TriggerAfterCollect(context.Background(), &compaction.Result{
		Zone:            compaction.PressureHigh,
		OriginalTokens:  200,
		CompactedTokens: 150,
		Stats:           compaction.Stats{MessagesRemoved: 2},
	})
	_ = r.TriggerExternalize(context.Background(), "s", "m", 0, errors.New("x"))

	if metrics["contextgc.tokens.original"] != 200 || metrics["contextgc.messages.removed"] != 2 {
		t.Errorf("metrics = %v", metrics)
	}
	if metrics["contextgc.reduction_pct"] != 25 {
		t.Errorf("reduction_pct = %v, want 25", metrics["contextgc.reduction_pct"])
	}
	if metrics["contextgc.externalize.error"] != 1 {
		t.Error("externalize error not recorded")
	}
}

func TestRegistryDrivesCollector(t *testing.T) {
	r := NewRegistry()
	var after *compaction.Result
	r.OnAfterCollect(func(ctx context.Context, result *compaction.Result) error {
		after = result
		return nil
	})

	collector, err := compaction.NewCollector(nil, compaction.WithHooks(r))
	if err != nil {
		t.Fatal(err)
	}

	messages := []*types.Message{
		{ID: "a", SessionID: "s", Role: types.RoleAssistant, Parts: []types.Part{{Type: types.PartTypeText, Text: "hi"}}},
	}
	if _, _, err := collector.Collect(context.Background(), "s", messages); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if after == nil || after.SessionID != "s" {
		t.Errorf("after hook saw %+v", after)
	}
}
