package chaos

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEngine(t *testing.T, cfg Config, frames [][]byte) [][]byte {
	t.Helper()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	var out [][]byte
	for _, frame := range frames {
		out = append(out, engine.Process(frame)...)
	}
	return append(out, engine.Flush()...)
}

func makeFrames(n int) [][]byte {
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, []byte(fmt.Sprintf("frame-%03d", i)))
	}
	return frames
}

func TestNoChaosIsPassthrough(t *testing.T) {
	frames := makeFrames(20)
	out := runEngine(t, Config{Seed: 1}, frames)
	assert.Equal(t, frames, out)
}

func TestSeededRunsAreDeterministic(t *testing.T) {
	cfg := Config{Seed: 42, DropRate: 0.2, DuplicateRate: 0.2, ReorderWindow: 4}
	frames := makeFrames(100)

	first := runEngine(t, cfg, frames)
	second := runEngine(t, cfg, frames)
	assert.Equal(t, first, second)
}

func TestDropRateOneDropsEverything(t *testing.T) {
	out := runEngine(t, Config{Seed: 1, DropRate: 1}, makeFrames(50))
	assert.Empty(t, out)
}

func TestDuplicateRateOneDoublesEverything(t *testing.T) {
	frames := makeFrames(10)
	out := runEngine(t, Config{Seed: 1, DuplicateRate: 1}, frames)
	require.Len(t, out, 20)
	for i, frame := range frames {
		assert.Equal(t, frame, out[2*i])
		assert.Equal(t, frame, out[2*i+1])
	}
}

func TestReorderKeepsEveryFrame(t *testing.T) {
	frames := makeFrames(50)
	out := runEngine(t, Config{Seed: 7, ReorderWindow: 5}, frames)

	require.Len(t, out, len(frames))
	seen := make(map[string]int, len(out))
	for _, frame := range out {
		seen[string(frame)]++
	}
	for _, frame := range frames {
		assert.Equal(t, 1, seen[string(frame)], "frame %s lost or duplicated", frame)
	}
}

func TestConfigValidation(t *testing.T) {
	_, err := NewEngine(Config{DropRate: 1.5})
	assert.Error(t, err)

	_, err = NewEngine(Config{DuplicateRate: -0.1})
	assert.Error(t, err)

	assert.Error(t, Config{ReorderWindow: 0}.Validate())
}

func TestNilEngineIsPassthrough(t *testing.T) {
	var engine *Engine
	frame := []byte("x")
	assert.Equal(t, [][]byte{frame}, engine.Process(frame))
	assert.Nil(t, engine.Flush())
}
