// Package contextgc keeps an LLM conversation inside its context window by
// garbage-collecting old history in tiers.
//
// Every message is classified by turn age into one of four tiers. Hot
// messages are left alone. Warm messages lose hidden reasoning and large tool
// output shrinks to its key lines. Cold messages have tool output reduced to a
// one-line summary and long assistant text truncated. Gone messages are
// removed outright, a few per cycle. Tier boundaries stretch or shrink with
// context-window pressure, and any message a recent turn still references by
// a [brain#id: description] marker or by a shared tool call is kept warm.
//
// # Packages
//
//   - compaction: configuration, classification, compression and the Collector cycle driver
//   - compressor: per-role, per-tier rewrite policies
//   - cache: session-scoped idempotence state
//   - brainstore: (session, message) to long-term memory id lookup, with Postgres backends
//   - recall: hints that tell the model how to recall compressed content
//   - convert: Anthropic SDK message params to and from the engine's message model
//   - hooks: logging and metrics observers for GC cycles
//
// # Quick Start
//
// Drive the engine directly:
//
//	cfg := compaction.DefaultConfig()
//	engine := compaction.NewEngine(cfg, cache.New(), brainstore.NewMemory(), slog.Default())
//
//	budget := compaction.ComputeDynamicBudget(cfg, usageRatio)
//	classes, err := engine.Classify(ctx, messages, budget)
//	if err != nil {
//	    return err
//	}
//	messages, stats, err := engine.Compress(ctx, messages, classes, compaction.Unlimited)
//
// Or let a Collector decide when to run a cycle and how much to free:
//
//	registry := hooks.NewRegistry()
//	hooks.NewLoggingHooks(nil).Register(registry)
//
//	collector, err := compaction.NewCollector(cfg,
//	    compaction.WithLogger(slog.Default()),
//	    compaction.WithHooks(registry),
//	)
//	messages, result, err := collector.CollectIfNeeded(ctx, sessionID, messages)
//
// Postgres-backed brain-id stores live in brainstore/pgxv5 (pgx) and
// brainstore/databasesql (database/sql with lib/pq).
package contextgc
