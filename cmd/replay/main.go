package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"tickflow/internal/model"
	"tickflow/internal/obs"
	"tickflow/internal/recorder"
	"tickflow/internal/tick"
)

func main() {
	dir := flag.String("dir", "testdata/captures", "Capture directory")
	prefix := flag.String("prefix", "", "Capture file prefix (default: feed)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	printTicks := flag.Bool("print-ticks", false, "Log each emitted event")
	flag.Parse()

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	store := tick.NewStore()
	liveness := tick.NewLiveness()
	metrics := obs.NewMetrics()
	normalizer := tick.NewNormalizer(store, liveness, nil, metrics).
		WithTickPrint(*printTicks)

	if err := pb.Run(context.Background(), normalizer.Process); err != nil {
		log.Fatalf("playback run failed: %v", err)
	}

	records := store.Snapshot()
	tokens := make([]string, 0, len(records))
	for token := range records {
		tokens = append(tokens, string(token))
	}
	sort.Strings(tokens)

	fmt.Printf("replayed %d tokens\n", len(tokens))
	for _, token := range tokens {
		rec := records[model.Token(token)]
		price := "-"
		if rec.HasPrice {
			price = rec.Price.String()
		}
		fmt.Printf("%-12s %-20s price=%-12s fields=%d\n", token, rec.DisplayName, price, len(rec.Fields))
	}

	snap := metrics.Read()
	fmt.Printf("messages=%d snapshots=%d deltas=%d violations=%d unknown=%d\n",
		snap.Messages, snap.Snapshots, snap.Deltas, snap.ProtocolViolations, snap.UnknownTypes)
}
