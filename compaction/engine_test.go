package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/youssefsiam38/contextgc/brainstore"
	"github.com/youssefsiam38/contextgc/cache"
	"github.com/youssefsiam38/contextgc/types"
)

func TestCompress_HotUntouched(t *testing.T) {
	output := strings.Repeat("x", 1000)
	messages := []*types.Message{
		newMessage("msg_1", types.RoleAssistant, toolPart("bash", "c1", output), thinkingPart("hmm")),
	}

	got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, classifications(types.TierHot), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.Changed() {
		t.Errorf("stats = %+v, want zero", *stats)
	}
	if len(got) != 1 || len(got[0].Parts) != 2 || got[0].Parts[0].Output() != output {
		t.Error("hot message was modified")
	}
}

func TestCompress_Warm(t *testing.T) {
	messages := []*types.Message{
		newMessage("msg_1", types.RoleAssistant,
			toolPart("bash", "c1", "ok\nFAIL happened\nnext\nlast"),
			textPart("keep this text"),
		),
	}

	_, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, classifications(types.TierWarm), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	out := messages[0].Parts[0].Output()
	if !strings.Contains(out, "FAIL happened") || !strings.Contains(out, "... [3 more lines]") {
		t.Errorf("tool output = %q", out)
	}
	if messages[0].Parts[1].Text != "keep this text" {
		t.Errorf("text = %q, want unchanged", messages[0].Parts[1].Text)
	}
	if stats.ToolOutputsCompressed != 1 {
		t.Errorf("ToolOutputsCompressed = %d, want 1", stats.ToolOutputsCompressed)
	}
}

func TestCompress_Cold(t *testing.T) {
	messages := []*types.Message{
		newMessage("msg_1", types.RoleAssistant,
			toolPart("bash", "c1", strings.Repeat("x", 500)),
			thinkingPart("private reasoning"),
			textPart("short answer"),
		),
	}

	_, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, classifications(types.TierCold), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	parts := messages[0].Parts
	if len(parts) != 2 || parts[0].Type != types.PartTypeTool || parts[1].Type != types.PartTypeText {
		t.Fatalf("parts = %+v, want [tool, text]", parts)
	}
	if !strings.Contains(parts[0].Output(), "[compressed:") {
		t.Errorf("tool output = %q", parts[0].Output())
	}
	if stats.ToolOutputsCompressed != 1 || stats.ThinkingBlocksRemoved != 1 {
		t.Errorf("stats = %+v", *stats)
	}
}

func TestCompress_MixedTiers(t *testing.T) {
	messages := []*types.Message{
		newMessage("msg_1", types.RoleAssistant, toolPart("bash", "c1", "FAIL warm\nline2")),
		newMessage("msg_2", types.RoleAssistant,
			toolPart("bash", "c2", strings.Repeat("x", 500)),
			thinkingPart("reasoning"),
			textPart(strings.Repeat("b", 500)),
		),
		newMessage("msg_3", types.RoleUser,
			toolPart("webfetch", "c3", strings.Repeat("x", 500)),
			types.Part{Type: types.PartTypeText, Text: strings.Repeat("c", 1000), Synthetic: true},
		),
	}

	_, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages,
		classifications(types.TierWarm, types.TierCold, types.TierCold), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	want := Stats{
		ToolOutputsCompressed: 3,
		ThinkingBlocksRemoved: 1,
		TextPartsCompressed:   1,
		SystemPartsRemoved:    1,
	}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestCompress_GoneRemoval(t *testing.T) {
	tests := []struct {
		name        string
		roles       []types.Role
		tiers       []types.Tier
		wantRemoved int
		wantIDs     []string
	}{
		{
			name:        "trailing assistant allows removal",
			roles:       []types.Role{types.RoleAssistant, types.RoleUser, types.RoleAssistant},
			tiers:       []types.Tier{types.TierGone, types.TierGone, types.TierHot},
			wantRemoved: 2,
			wantIDs:     []string{"m2"},
		},
		{
			name:        "trailing user stays trailing",
			roles:       []types.Role{types.RoleAssistant, types.RoleUser, types.RoleAssistant, types.RoleUser},
			tiers:       []types.Tier{types.TierGone, types.TierGone, types.TierGone, types.TierHot},
			wantRemoved: 3,
			wantIDs:     []string{"m3"},
		},
		{
			name:        "removal that would end on assistant is trimmed",
			roles:       []types.Role{types.RoleAssistant, types.RoleUser, types.RoleAssistant, types.RoleUser},
			tiers:       []types.Tier{types.TierHot, types.TierGone, types.TierGone, types.TierGone},
			wantRemoved: 2,
			wantIDs:     []string{"m0", "m3"},
		},
		{
			name:        "everything gone",
			roles:       []types.Role{types.RoleAssistant, types.RoleUser},
			tiers:       []types.Tier{types.TierGone, types.TierGone},
			wantRemoved: 2,
			wantIDs:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := make([]*types.Message, len(tt.roles))
			for i, role := range tt.roles {
				messages[i] = newMessage("m"+string(rune('0'+i)), role, textPart("x"))
			}

			got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, classifications(tt.tiers...), Unlimited)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			if stats.MessagesRemoved != tt.wantRemoved {
				t.Errorf("MessagesRemoved = %d, want %d", stats.MessagesRemoved, tt.wantRemoved)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
			if len(messages) != len(tt.roles) {
				t.Error("input slice length changed")
			}
		})
	}
}

func TestCompress_GoneCap(t *testing.T) {
	messages := assistantTurns(9, nil)
	tiers := make([]types.Tier, 9)
	for i := range tiers {
		tiers[i] = types.TierGone
	}
	tiers[8] = types.TierHot

	got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, classifications(tiers...), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.MessagesRemoved != DefaultMaxGonePerCycle {
		t.Errorf("MessagesRemoved = %d, want %d", stats.MessagesRemoved, DefaultMaxGonePerCycle)
	}
	if got[0].ID != "msg_6" {
		t.Errorf("first survivor = %s, want msg_6", got[0].ID)
	}
}

func TestCompress_GoneRemovesToolPairsTogether(t *testing.T) {
	messages := []*types.Message{
		newMessage("call", types.RoleAssistant, toolPart("bash", "call_1", "")),
		newMessage("result", types.RoleUser, toolPart("bash", "call_1", "done")),
		newMessage("a", types.RoleAssistant, textPart("next")),
		newMessage("u", types.RoleUser, textPart("more")),
	}

	got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages,
		classifications(types.TierGone, types.TierWarm, types.TierHot, types.TierHot), 0)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.MessagesRemoved != 2 {
		t.Errorf("MessagesRemoved = %d, want 2", stats.MessagesRemoved)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "u" {
		t.Errorf("survivors = %v", ids(got))
	}
}

func TestCompress_CapNeverSplitsPair(t *testing.T) {
	messages := []*types.Message{
		newMessage("call", types.RoleAssistant, toolPart("bash", "call_1", "")),
		newMessage("result", types.RoleUser, toolPart("bash", "call_1", "done")),
		newMessage("a", types.RoleAssistant, textPart("next")),
	}

	e := NewEngine(&Config{MaxGonePerCycle: 1}, nil, nil, nil)
	got, stats, err := e.Compress(context.Background(), messages,
		classifications(types.TierGone, types.TierGone, types.TierHot), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.MessagesRemoved != 0 || len(got) != 3 {
		t.Errorf("removed %d, survivors %v; a pair must not be split", stats.MessagesRemoved, ids(got))
	}
}

func TestCompress_CappedPairDeferred(t *testing.T) {
	messages := []*types.Message{
		newMessage("old", types.RoleAssistant, textPart("old")),
		newMessage("call", types.RoleAssistant, toolPart("bash", "call_1", "")),
		newMessage("result", types.RoleUser, toolPart("bash", "call_1", "done")),
		newMessage("a", types.RoleAssistant, textPart("next")),
	}
	e := NewEngine(&Config{MaxGonePerCycle: 2}, nil, nil, nil)

	got, stats, err := e.Compress(context.Background(), messages,
		classifications(types.TierGone, types.TierGone, types.TierGone, types.TierHot), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.MessagesRemoved != 1 || len(got) != 3 || got[0].ID != "call" {
		t.Fatalf("first cycle removed %d, survivors %v; want only old removed", stats.MessagesRemoved, ids(got))
	}

	got, stats, err = e.Compress(context.Background(), got,
		classifications(types.TierGone, types.TierGone, types.TierHot), Unlimited)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if stats.MessagesRemoved != 2 || len(got) != 1 || got[0].ID != "a" {
		t.Errorf("second cycle removed %d, survivors %v; want the pair removed", stats.MessagesRemoved, ids(got))
	}
}

func TestCompress_Budget(t *testing.T) {
	t.Run("zero budget skips warm and cold but removes gone", func(t *testing.T) {
		output := strings.Repeat("x", 500)
		messages := []*types.Message{
			newMessage("m0", types.RoleAssistant, textPart("old")),
			newMessage("m1", types.RoleAssistant, toolPart("bash", "c1", output)),
			newMessage("m2", types.RoleAssistant, textPart("new")),
		}

		got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages,
			classifications(types.TierGone, types.TierCold, types.TierHot), 0)
		if err != nil {
			t.Fatalf("Compress() error = %v", err)
		}
		if stats.ToolOutputsCompressed != 0 || got[0].Parts[0].Output() != output {
			t.Error("cold message compressed with a zero budget")
		}
		if stats.MessagesRemoved != 1 {
			t.Errorf("MessagesRemoved = %d, want 1", stats.MessagesRemoved)
		}
	})

	t.Run("stops once the budget is spent", func(t *testing.T) {
		messages := []*types.Message{
			newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", strings.Repeat("x", 500))),
			newMessage("m1", types.RoleAssistant, toolPart("bash", "c1", strings.Repeat("x", 500))),
		}

		_, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages,
			classifications(types.TierCold, types.TierCold), 1)
		if err != nil {
			t.Fatalf("Compress() error = %v", err)
		}
		if stats.ToolOutputsCompressed != 1 {
			t.Errorf("ToolOutputsCompressed = %d, want 1", stats.ToolOutputsCompressed)
		}
	})

	t.Run("unlimited survives growth", func(t *testing.T) {
		ctx := context.Background()
		brains := brainstore.NewMemory()
		messages := []*types.Message{
			newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", "panic: boom")),
			newMessage("m1", types.RoleAssistant, toolPart("bash", "c1", "panic: again")),
		}
		_ = brains.SetBrainID(ctx, testSession, "m0", 4)

		_, stats, err := NewEngine(nil, nil, brains, nil).Compress(ctx, messages,
			classifications(types.TierWarm, types.TierWarm), Unlimited)
		if err != nil {
			t.Fatalf("Compress() error = %v", err)
		}
		if stats.ToolOutputsCompressed != 2 {
			t.Errorf("ToolOutputsCompressed = %d, want 2", stats.ToolOutputsCompressed)
		}
		if want := "panic: boom\n [brain#4: bash]"; messages[0].Parts[0].Output() != want {
			t.Errorf("output = %q, want %q", messages[0].Parts[0].Output(), want)
		}
	})
}

func TestCompress_Idempotent(t *testing.T) {
	store := cache.New()
	e := NewEngine(nil, store, nil, nil)
	messages := []*types.Message{
		newMessage("m0", types.RoleAssistant,
			toolPart("bash", "c0", strings.Repeat("line\n", 200)),
			thinkingPart("hmm"),
			textPart(strings.Repeat("t", 600)),
		),
	}
	cls := classifications(types.TierCold)

	_, first, err := e.Compress(context.Background(), messages, cls, Unlimited)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Changed() {
		t.Fatal("first pass changed nothing")
	}
	if !store.IsCompressedAt(testSession, "m0", types.TierCold) {
		t.Error("tier not recorded")
	}

	snapshot := messages[0].Parts[0].Output() + messages[0].Parts[1].Text
	_, second, err := e.Compress(context.Background(), messages, cls, Unlimited)
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed() {
		t.Errorf("second pass stats = %+v, want zero", *second)
	}
	if messages[0].Parts[0].Output()+messages[0].Parts[1].Text != snapshot {
		t.Error("second pass modified the message")
	}
}

func TestCompress_WarmAfterColdSkipped(t *testing.T) {
	store := cache.New()
	store.SetTier(testSession, "m0", types.TierCold)
	output := "FAIL\n" + strings.Repeat("x\n", 10)
	messages := []*types.Message{newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", output))}

	_, stats, err := NewEngine(nil, store, nil, nil).Compress(context.Background(), messages, classifications(types.TierWarm), Unlimited)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Changed() || messages[0].Parts[0].Output() != output {
		t.Error("message compressed at a shallower tier than recorded")
	}
}

func TestCompress_BrainMarkers(t *testing.T) {
	ctx := context.Background()
	brains := brainstore.NewMemory()
	_ = brains.SetBrainID(ctx, testSession, "m0", 42)

	messages := []*types.Message{newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", strings.Repeat("x", 500)))}
	if _, _, err := NewEngine(nil, nil, brains, nil).Compress(ctx, messages, classifications(types.TierCold), Unlimited); err != nil {
		t.Fatal(err)
	}
	if want := "[brain#42: bash (1 lines, 500 chars)]"; messages[0].Parts[0].Output() != want {
		t.Errorf("output = %q, want %q", messages[0].Parts[0].Output(), want)
	}
}

func TestCompress_LookupFailure(t *testing.T) {
	messages := []*types.Message{newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", strings.Repeat("x", 500)))}

	_, _, err := NewEngine(nil, nil, failingLookup{}, nil).Compress(context.Background(), messages, classifications(types.TierCold), Unlimited)
	if !errors.Is(err, ErrBrainLookupFailed) {
		t.Errorf("error = %v, want ErrBrainLookupFailed", err)
	}

	var gcErr *Error
	if !errors.As(err, &gcErr) || gcErr.SessionID != testSession {
		t.Errorf("error %v does not carry the session", err)
	}
}

type canceledLookup struct{}

func (canceledLookup) BrainID(context.Context, string, string) (int, bool, error) {
	return 0, false, context.Canceled
}

func TestCompress_LookupFailureKeepsCause(t *testing.T) {
	messages := []*types.Message{newMessage("m0", types.RoleAssistant, toolPart("bash", "c0", strings.Repeat("x", 500)))}

	_, _, err := NewEngine(nil, nil, canceledLookup{}, nil).Compress(context.Background(), messages, classifications(types.TierCold), Unlimited)
	if !errors.Is(err, ErrBrainLookupFailed) {
		t.Errorf("error = %v, want ErrBrainLookupFailed", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in the chain", err)
	}
}

func TestCompress_SkipsSystemRoleAndBadIndices(t *testing.T) {
	text := strings.Repeat("s", 2000)
	messages := []*types.Message{
		newMessage("sys", types.RoleSystem, types.Part{Type: types.PartTypeText, Text: text, Synthetic: true}),
	}
	cls := []TierClassification{
		{Tier: types.TierCold, MessageIndex: 0},
		{Tier: types.TierGone, MessageIndex: 7},
		{Tier: types.TierCold, MessageIndex: -1},
	}

	got, stats, err := NewEngine(nil, nil, nil, nil).Compress(context.Background(), messages, cls, Unlimited)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Changed() || len(got) != 1 || got[0].Parts[0].Text != text {
		t.Errorf("stats = %+v, want nothing touched", *stats)
	}
}

func ids(messages []*types.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}
