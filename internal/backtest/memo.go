package backtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"tradedash/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// Memo 缓存已算出的指标。相同输入（含参数）的并发请求通过 singleflight 合并，
// 超出容量时按写入顺序淘汰最早的条目。错误结果不缓存。
type Memo struct {
	size  int
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]metrics.Metrics
	order   []string
}

// NewMemo returns a memo holding at most size results; size <= 0 disables storage
// but still collapses concurrent identical computations.
func NewMemo(size int) *Memo {
	return &Memo{size: size, entries: make(map[string]metrics.Metrics)}
}

type memoInput struct {
	Trades         []metrics.Trade       `json:"t"`
	Curve          []metrics.EquityPoint `json:"c"`
	InitialCapital float64               `json:"k"`
	PeriodDays     float64               `json:"d"`
	Options        metrics.Options       `json:"o"`
}

// MemoKey hashes the canonical JSON encoding of every computation input.
func MemoKey(trades []metrics.Trade, curve []metrics.EquityPoint, capital, periodDays float64, opts metrics.Options) (string, error) {
	raw, err := json.Marshal(memoInput{Trades: trades, Curve: curve, InitialCapital: capital, PeriodDays: periodDays, Options: opts})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Do 返回 key 对应的缓存结果，未命中时调用 fn；cached 表示结果来自缓存。
func (m *Memo) Do(key string, fn func() (metrics.Metrics, error)) (out metrics.Metrics, cached bool, err error) {
	if got, ok := m.get(key); ok {
		return got, true, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		if got, ok := m.get(key); ok {
			return got, nil
		}
		res, err := fn()
		if err != nil {
			return nil, err
		}
		m.put(key, res)
		return res, nil
	})
	if err != nil {
		return metrics.Metrics{}, false, err
	}
	return v.(metrics.Metrics), false, nil
}

// Len reports the number of stored results.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) get(key string) (metrics.Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Memo) put(key string, v metrics.Metrics) {
	if m.size <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	for len(m.order) >= m.size {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = v
	m.order = append(m.order, key)
}
