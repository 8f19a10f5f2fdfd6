package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/yanun0323/logs"

	"tickflow/internal/instrument"
	"tickflow/internal/ops"
)

// scripmaster seeds the instrument master from a JSON file, typically a
// trimmed export of the broker's scrip list. Rows are upserted so the
// tool can be re-run against newer exports.

type entry struct {
	Token       string `json:"token"`
	Exchange    string `json:"exchange"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
}

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config (postgres section required)")
	input := flag.String("input", "scrips.json", "Path to instrument JSON array")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if loaded.Postgres == nil {
		log.Fatalf("config %s has no postgres section", *configPath)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read %s failed: %v", *input, err)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("parse %s failed: %v", *input, err)
	}

	repo, err := instrument.Open(*loaded.Postgres)
	if err != nil {
		log.Fatalf("open instrument master failed: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	for i, e := range entries {
		err := repo.Upsert(ctx, instrument.Instrument{
			Token:       e.Token,
			Exchange:    e.Exchange,
			Symbol:      e.Symbol,
			DisplayName: e.DisplayName,
		})
		if err != nil {
			log.Fatalf("upsert entry %d (%s) failed: %v", i, e.Token, err)
		}
	}
	logs.Infof("seeded %d instruments from %s", len(entries), *input)
}
