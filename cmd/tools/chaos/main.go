package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/yanun0323/logs"

	"tickflow/internal/chaos"
	"tickflow/internal/recorder"
)

// chaos rewrites a capture directory into a degraded copy: frames are
// dropped, duplicated, and reordered per the configured rates. Replaying
// the degraded copy shows how the pipeline behaves under a misbehaving
// feed without needing one.

func main() {
	inDir := flag.String("in", "testdata/captures", "Input capture directory")
	inPrefix := flag.String("in-prefix", "feed", "Input capture file prefix")
	outDir := flag.String("out", "testdata/captures-chaos", "Output capture directory")
	outPrefix := flag.String("out-prefix", "chaos", "Output capture file prefix")
	seed := flag.Int64("seed", 0, "Random seed (0=time-based)")
	dropRate := flag.Float64("drop", 0.05, "Frame drop probability [0,1]")
	dupRate := flag.Float64("dup", 0.05, "Frame duplicate probability [0,1]")
	reorder := flag.Int("reorder", 4, "Reorder window size (1=no reordering)")
	flag.Parse()

	engine, err := chaos.NewEngine(chaos.Config{
		Seed:          *seed,
		DropRate:      *dropRate,
		DuplicateRate: *dupRate,
		ReorderWindow: *reorder,
	})
	if err != nil {
		log.Fatalf("chaos config invalid: %v", err)
	}

	files, err := recorder.ListCaptures(*inDir, *inPrefix)
	if err != nil {
		log.Fatalf("list captures failed: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no captures found under %s with prefix %q", *inDir, *inPrefix)
	}

	writer, err := recorder.NewWriter(recorder.Config{
		Dir:        *outDir,
		FilePrefix: *outPrefix,
	})
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	if err := writer.Start(context.Background()); err != nil {
		log.Fatalf("writer start failed: %v", err)
	}

	var read, written int
	emit := func(frames [][]byte) {
		for _, frame := range frames {
			if err := writer.TryAppend(frame); err != nil {
				log.Fatalf("write frame failed: %v", err)
			}
			written++
		}
	}

	for _, path := range files {
		n, err := processFile(path, engine, emit)
		if err != nil {
			log.Fatalf("process %s failed: %v", path, err)
		}
		read += n
	}
	emit(engine.Flush())

	if err := writer.Close(); err != nil {
		log.Fatalf("writer close failed: %v", err)
	}
	logs.Infof("chaos rewrite done: read=%d written=%d out=%s", read, written, *outDir)
}

func processFile(path string, engine *chaos.Engine, emit func([][]byte)) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := recorder.NewReader(file, recorder.ReaderOptions{})
	count := 0
	for {
		_, payload, err := reader.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++

		// payload is reused by the reader, copy before buffering
		frame := make([]byte, len(payload))
		copy(frame, payload)
		emit(engine.Process(frame))
	}
}
