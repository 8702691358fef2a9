// Package audit periodically cross-checks the world state against the
// transaction log: the hash chain must verify, and every stored value must
// hash to the data hash of the last transaction recorded for its key.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"github.com/jmerrifield20/AuctionLedger/internal/worldstate"
	"go.uber.org/zap"
)

// Config holds auditor configuration.
type Config struct {
	Interval    time.Duration
	Concurrency int
}

// Mismatch is a key whose stored value disagrees with its history.
type Mismatch struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Report is the outcome of one audit pass.
type Report struct {
	CheckedAt  time.Time  `json:"checked_at"`
	ChainValid bool       `json:"chain_valid"`
	ChainError string     `json:"chain_error,omitempty"`
	Keys       int        `json:"keys"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether the pass found nothing wrong.
func (r *Report) OK() bool { return r.ChainValid && len(r.Mismatches) == 0 }

// MetricsRecordFunc is an optional callback invoked after each pass.
type MetricsRecordFunc func(ok bool)

// WebhookDispatchFunc is an optional callback for announcing failed passes.
type WebhookDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// EventAuditFailed is dispatched after a pass that found a problem.
const EventAuditFailed = "ledger.audit_failed"

// Auditor runs audit passes over a store and its transaction log.
type Auditor struct {
	store     worldstate.Store
	log       txlog.Log
	cfg       Config
	onMetrics MetricsRecordFunc
	onWebhook WebhookDispatchFunc
	logger    *zap.Logger

	mu   sync.RWMutex
	last *Report
}

// New creates a new Auditor.
func New(store worldstate.Store, log txlog.Log, cfg Config, logger *zap.Logger) *Auditor {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Auditor{store: store, log: log, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (a *Auditor) SetMetricsRecord(fn MetricsRecordFunc) {
	a.onMetrics = fn
}

// SetWebhookDispatch configures the webhook dispatch callback.
func (a *Auditor) SetWebhookDispatch(fn WebhookDispatchFunc) {
	a.onWebhook = fn
}

// Start runs an audit pass immediately and then every interval until ctx is done.
func (a *Auditor) Start(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		runCtx, cancel := context.WithTimeout(ctx, a.cfg.Interval)
		a.Run(runCtx)
		cancel()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Last returns the most recent report, or nil before the first pass.
func (a *Auditor) Last() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Run performs one audit pass and returns its report.
func (a *Auditor) Run(ctx context.Context) *Report {
	rep := &Report{CheckedAt: time.Now().UTC(), ChainValid: true, Mismatches: []Mismatch{}}

	if err := a.log.Verify(ctx); err != nil {
		rep.ChainValid = false
		rep.ChainError = err.Error()
	}

	keys, err := a.store.Keys(ctx, "")
	if err != nil {
		a.logger.Error("audit: list keys", zap.Error(err))
		rep.Mismatches = append(rep.Mismatches, Mismatch{Reason: "list keys: " + err.Error()})
		return a.finish(ctx, rep)
	}
	rep.Keys = len(keys)

	sem := make(chan struct{}, a.cfg.Concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if reason := a.checkKey(ctx, key); reason != "" {
				mu.Lock()
				rep.Mismatches = append(rep.Mismatches, Mismatch{Key: key, Reason: reason})
				mu.Unlock()
			}
		}(key)
	}
	wg.Wait()

	return a.finish(ctx, rep)
}

// checkKey returns a non-empty reason when key's value disagrees with its history.
func (a *Auditor) checkKey(ctx context.Context, key string) string {
	v, err := a.store.Get(ctx, key)
	if errors.Is(err, worldstate.ErrNotFound) {
		return "" // deleted mid-pass
	}
	if err != nil {
		return "read: " + err.Error()
	}

	hist, err := a.log.History(ctx, key)
	if err != nil {
		return "history: " + err.Error()
	}
	if len(hist) == 0 {
		return "no recorded transaction"
	}
	if got, want := txlog.DataHash(v.Data), hist[len(hist)-1].DataHash; got != want {
		return fmt.Sprintf("stored value hash %.12s does not match last transaction %.12s", got, want)
	}
	return ""
}

func (a *Auditor) finish(ctx context.Context, rep *Report) *Report {
	if rep.OK() {
		a.logger.Info("audit: passed", zap.Int("keys", rep.Keys))
	} else {
		a.logger.Warn("audit: FAILED",
			zap.Bool("chain_valid", rep.ChainValid),
			zap.String("chain_error", rep.ChainError),
			zap.Int("mismatches", len(rep.Mismatches)),
		)
		if a.onWebhook != nil {
			payload := map[string]string{
				"checked_at":  rep.CheckedAt.Format(time.RFC3339),
				"chain_valid": strconv.FormatBool(rep.ChainValid),
				"chain_error": rep.ChainError,
				"mismatches":  strconv.Itoa(len(rep.Mismatches)),
			}
			if len(rep.Mismatches) > 0 {
				payload["first_key"] = rep.Mismatches[0].Key
			}
			a.onWebhook(ctx, EventAuditFailed, payload)
		}
	}
	if a.onMetrics != nil {
		a.onMetrics(rep.OK())
	}

	a.mu.Lock()
	a.last = rep
	a.mu.Unlock()
	return rep
}
