package config

import (
	"fmt"
	"strings"
	"sync"

	"tradedash/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeListener 在配置文件变更并重新校验通过后被调用。
type ChangeListener func(*Config)

// Watcher 监听主配置文件，变更时重新 Load 并广播新快照。
// 校验失败的修改会被丢弃，继续沿用上一份配置。
type Watcher struct {
	path string
	v    *viper.Viper
	log  logger.Component

	mu        sync.RWMutex
	current   *Config
	listeners []ChangeListener
	closed    bool
}

// NewWatcher 读取配置文件并开始监听 FS 事件。
func NewWatcher(path string, initial *Config) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	if initial == nil {
		cfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		initial = cfg
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{path: path, v: v, current: initial, log: logger.With("config")}
	v.OnConfigChange(w.handle)
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) handle(evt fsnotify.Event) {
	if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
		return
	}
	if w.isClosed() {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Errorf("config reload failed (%s): %v", evt.Name, err)
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.current = cfg
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.Unlock()
	w.log.Infof("config reloaded: annualization_factor=%.2f min_period_days=%.2f target_return=%.4f",
		cfg.Metrics.AnnualizationFactor, cfg.Metrics.MinPeriodDays, cfg.Metrics.TargetReturn)
	for _, fn := range listeners {
		notify(w.log, fn, cfg)
	}
}

// Current 返回最近一次成功加载的配置。
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe registers fn for future reloads.
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	if !w.closed {
		w.listeners = append(w.listeners, fn)
	}
	w.mu.Unlock()
}

// Close 解除所有监听者，之后的文件事件都会被忽略。
// viper 未提供停止 WatchConfig 的接口，其 fsnotify goroutine 会保留到进程退出。
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.closed = true
	w.listeners = nil
	w.mu.Unlock()
}

func (w *Watcher) isClosed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

func notify(log logger.Component, fn ChangeListener, cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("config listener panic: %v", r)
		}
	}()
	fn(cfg)
}
