package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"
)

// mockfeed serves a Shoonya-style touchline feed for local runs: a
// connect ack on dial, then snapshots and deltas for every subscribed
// scrip. Price action is scripted per mode so strategies can be
// exercised against known regimes.

type priceMode string

const (
	modeNormal    priceMode = "normal"
	modeMomentum  priceMode = "momentum"
	modeCrash     priceMode = "crash"
	modeOscillate priceMode = "oscillate"
	modeFlat      priceMode = "flat"
)

type symbolState struct {
	lp     float64
	open   float64
	high   float64
	low    float64
	volume int
	t0     time.Time
	sent   int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	mode := flag.String("mode", "normal", "Price mode: normal|momentum|crash|oscillate|flat")
	interval := flag.Duration("interval", 900*time.Millisecond, "Tick interval")
	snapshotEvery := flag.Int("snapshot-every", 25, "Resend a full snapshot every N ticks")
	omitPriceEvery := flag.Int("omit-price-every", 7, "Send a priceless delta every N ticks (0=never)")
	flag.Parse()

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logs.Errorf("upgrade failed, err: %+v", err)
			return
		}
		go serve(conn, priceMode(*mode), *interval, *snapshotEvery, *omitPriceEvery)
	})

	logs.Infof("mockfeed listening at %s mode=%s", *addr, *mode)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatalf("mockfeed failed: %v", err)
	}
}

func serve(conn *websocket.Conn, mode priceMode, interval time.Duration, snapshotEvery, omitPriceEvery int) {
	defer conn.Close()

	var (
		mu    sync.Mutex
		state = make(map[string]*symbolState)
		subs  []string
	)

	// connect ack, mirroring the broker handshake
	if err := conn.WriteJSON(map[string]string{"t": "ck", "s": "OK"}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req["t"] == "t" {
				keys, _ := req["k"].(string)
				mu.Lock()
				subs = strings.Split(keys, "#")
				mu.Unlock()
				logs.Infof("subscribed: %v", subs)
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			logs.Info("client disconnected")
			return
		case <-ticker.C:
			mu.Lock()
			scrips := append([]string(nil), subs...)
			mu.Unlock()
			for _, scrip := range scrips {
				if scrip == "" {
					continue
				}
				frame := nextFrame(state, scrip, mode, snapshotEvery, omitPriceEvery)
				data, err := json.Marshal(frame)
				if err != nil {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}
}

func nextFrame(states map[string]*symbolState, scrip string, mode priceMode, snapshotEvery, omitPriceEvery int) map[string]string {
	exchange, token := splitScrip(scrip)

	st, ok := states[scrip]
	if !ok {
		base := 100 + rand.Float64()*400
		st = &symbolState{lp: base, open: base, high: base, low: base, t0: time.Now()}
		states[scrip] = st
	}

	st.lp = nextPrice(st, mode)
	st.high = math.Max(st.high, st.lp)
	st.low = math.Min(st.low, st.lp)
	st.volume += 10 + rand.Intn(290)
	st.sent++

	// first frame per scrip is the establishing snapshot; later ones
	// are deltas with a periodic snapshot refresh
	snapshot := st.sent == 1 || (snapshotEvery > 0 && st.sent%snapshotEvery == 0)
	if snapshot {
		return map[string]string{
			"t":   "tk",
			"e":   exchange,
			"tk":  token,
			"ts":  "MOCK" + token,
			"lp":  formatPrice(st.lp),
			"o":   formatPrice(st.open),
			"h":   formatPrice(st.high),
			"l":   formatPrice(st.low),
			"v":   strconv.Itoa(st.volume),
			"ft":  strconv.FormatInt(time.Now().UnixMilli(), 10),
			"bp1": formatPrice(st.lp - 0.5),
			"sp1": formatPrice(st.lp + 0.5),
		}
	}

	delta := map[string]string{
		"t":  "tf",
		"e":  exchange,
		"tk": token,
		"v":  strconv.Itoa(st.volume),
		"ft": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if omitPriceEvery <= 0 || st.sent%omitPriceEvery != 0 {
		delta["lp"] = formatPrice(st.lp)
	}
	return delta
}

func nextPrice(st *symbolState, mode priceMode) float64 {
	var next float64
	switch mode {
	case modeMomentum:
		next = st.lp + 0.4 + rand.Float64()*1.6
	case modeCrash:
		next = st.lp - 0.4 - rand.Float64()*1.6
	case modeOscillate:
		t := time.Since(st.t0).Seconds()
		next = st.open + math.Sin(t*2)*3
	case modeFlat:
		next = st.lp + (rand.Float64()-0.5)*0.2
	default:
		next = st.lp + (rand.Float64()-0.5)*4
	}
	return math.Max(next, 1)
}

func splitScrip(scrip string) (exchange, token string) {
	parts := strings.SplitN(scrip, "|", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "NSE", parts[0]
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(math.Round(p*100)/100, 'f', 2, 64)
}
