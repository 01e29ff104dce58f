// Package compaction keeps long LLM conversations inside the model's context
// window by compressing old messages in tiers instead of summarizing them.
//
// # Tiers
//
// Every message gets a turn age from a scan that runs from the last message
// to the first counting assistant messages. An assistant message's age is the
// number of assistant messages before it; any other message shares the age of
// the closest assistant message after it. Ages are bucketed against a Budget:
//
//   - Hot (age < HotTurns): untouched.
//   - Warm (age < WarmTurns): hidden reasoning is dropped and tool outputs
//     shrink to their key lines.
//   - Cold (age < GoneTurns): tool outputs become one-line placeholders, long
//     assistant text is truncated and bulky synthetic text is removed.
//   - Gone: the message is removed, a few per cycle.
//
// A cold or gone message that a hot message still references, through a
// [brain#ID: ...] marker or a shared tool call ID, is treated as warm.
//
// # Pressure
//
// The budget shrinks as the context fills. ComputeDynamicBudget maps the
// usage ratio to a PressureZone and scales the configured boundaries by that
// zone's multipliers, never letting HotTurns fall below MinHotTurns.
//
// # Usage
//
// The Engine does one classification and one compression pass:
//
//	engine := compaction.NewEngine(cfg, cache.New(), brainstore.NewMemory(), slog.Default())
//	budget := compaction.ComputeDynamicBudget(cfg, 0.8)
//	classes, err := engine.Classify(ctx, messages, budget)
//	if err != nil {
//	    return err
//	}
//	messages, stats, err := engine.Compress(ctx, messages, classes, compaction.Unlimited)
//
// The Collector wraps the Engine with usage measurement, cooldown, optional
// write-through to long-term memory, recall hints and hooks:
//
//	collector, err := compaction.NewCollector(cfg,
//	    compaction.WithClient(&client),
//	    compaction.WithLogger(slog.Default()),
//	)
//	messages, result, err := collector.CollectIfNeeded(ctx, sessionID, messages)
//	if result != nil {
//	    log.Printf("GC: %d -> %d tokens", result.OriginalTokens, result.CompactedTokens)
//	}
//
// Compression is idempotent: the tier each message was compressed at is
// recorded in the cache, and a message is never compressed twice at the same
// tier.
package compaction
