package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"nhanhsync/internal/logger"
	"nhanhsync/internal/models"
	"nhanhsync/internal/services/nhanh"
)

// Sync run types, used to key logs, stats and scheduled jobs.
const (
	TypeProducts  = "products"
	TypeInventory = "inventory"
	TypeOrders    = "orders"
	TypeWebhook   = "webhook"
)

// Log entry statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

const logRingSize = 100

var frequencySpecs = map[string]string{
	"hourly":     "@every 1h",
	"twicedaily": "@every 12h",
	"daily":      "@every 24h",
}

// LogEntry is one line of the bounded activity trail.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// Coordinator owns the cross-cutting state of the engine: the activity log,
// per-type run statistics, the shared rate-limit gate and the cron schedule.
// All methods are safe for concurrent use.
type Coordinator struct {
	mu         gosync.Mutex
	logs       []LogEntry // newest first
	stats      map[string]*models.SyncStat
	unlockedAt time.Time

	scheduler  *cron.Cron
	jobEntries map[string]cron.EntryID
	jobSpecs   map[string]string
	runners    map[string]func(context.Context)

	settings SettingsStore
	state    StateStore
	log      *logger.Logger
}

func NewCoordinator(settings SettingsStore, state StateStore, log *logger.Logger) *Coordinator {
	c := &Coordinator{
		stats:      make(map[string]*models.SyncStat),
		scheduler:  cron.New(),
		jobEntries: make(map[string]cron.EntryID),
		jobSpecs:   make(map[string]string),
		runners:    make(map[string]func(context.Context)),
		settings:   settings,
		state:      state,
		log:        log,
	}
	c.restore()
	return c
}

// restore reloads persisted stats, recent logs and the rate-limit gate so a
// restart does not reset counters or reopen a closed window.
func (c *Coordinator) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if stats, err := c.state.LoadStats(ctx); err == nil {
		for i := range stats {
			s := stats[i]
			c.stats[s.Type] = &s
		}
	}
	if rows, err := c.state.RecentLogs(ctx, logRingSize); err == nil {
		for _, row := range rows {
			c.logs = append(c.logs, LogEntry{Time: row.Time, Type: row.Type, Status: row.Status, Message: row.Message})
		}
	}
	if raw, err := c.settings.Get(ctx, SettingRateLimitUnlockedAt); err == nil && raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			at := time.Unix(unix, 0)
			if time.Now().Before(at) {
				c.unlockedAt = at
			}
		}
	}
}

// Record appends an entry to the activity trail and persists it. The
// in-memory ring keeps the newest 100 entries.
func (c *Coordinator) Record(ctx context.Context, typ, status, message string) {
	entry := LogEntry{Time: time.Now(), Type: typ, Status: status, Message: message}

	c.mu.Lock()
	c.logs = append([]LogEntry{entry}, c.logs...)
	if len(c.logs) > logRingSize {
		c.logs = c.logs[:logRingSize]
	}
	c.mu.Unlock()

	if err := c.state.AppendLog(ctx, &models.SyncLog{Time: entry.Time, Type: typ, Status: status, Message: message}); err != nil {
		c.log.Error("Failed to persist sync log entry: %v", err)
	}
	switch status {
	case StatusError:
		c.log.Error("[%s] %s", typ, message)
	case StatusWarning:
		c.log.Warn("[%s] %s", typ, message)
	default:
		c.log.Info("[%s] %s", typ, message)
	}
}

// Logs returns a copy of the activity trail, newest first.
func (c *Coordinator) Logs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

func (c *Coordinator) ClearLogs(ctx context.Context) error {
	c.mu.Lock()
	c.logs = nil
	c.mu.Unlock()
	return c.state.ClearLogs(ctx)
}

// ReportRun records the outcome of one run: the last-run snapshot is
// overwritten each time while the all-time counters only accumulate.
func (c *Coordinator) ReportRun(ctx context.Context, typ string, res Results) {
	now := time.Now()

	c.mu.Lock()
	stat, ok := c.stats[typ]
	if !ok {
		stat = &models.SyncStat{Type: typ}
		c.stats[typ] = stat
	}
	stat.LastTotal = res.Total
	stat.LastSynced = res.Synced
	stat.LastFailed = res.Failed
	stat.LastRunAt = &now
	stat.AllSynced += res.Synced
	stat.AllFailed += res.Failed
	snapshot := *stat
	c.mu.Unlock()

	if err := c.state.SaveStat(ctx, &snapshot); err != nil {
		c.log.Error("Failed to persist sync stats for %s: %v", typ, err)
	}
}

// Stats returns a copy of the per-type statistics.
func (c *Coordinator) Stats() map[string]models.SyncStat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.SyncStat, len(c.stats))
	for typ, stat := range c.stats {
		out[typ] = *stat
	}
	return out
}

// RateLimitWait reports how long until the rate-limit window reopens, or
// zero when requests are allowed.
func (c *Coordinator) RateLimitWait() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := time.Until(c.unlockedAt); wait > 0 {
		return wait
	}
	return 0
}

// RateLimited returns a ready-made error when the window is closed, nil
// otherwise. Callers short-circuit on it before touching the remote API.
func (c *Coordinator) RateLimited() error {
	c.mu.Lock()
	at := c.unlockedAt
	c.mu.Unlock()
	if time.Now().Before(at) {
		return &nhanh.RateLimitError{UnlockedAt: at}
	}
	return nil
}

// HandleRemoteError inspects an error from the remote API and, when it is a
// rate limit, closes the shared window for every caller. Returns true when
// the error was a rate limit.
func (c *Coordinator) HandleRemoteError(ctx context.Context, err error) bool {
	var rle *nhanh.RateLimitError
	if !errors.As(err, &rle) {
		return false
	}
	c.mu.Lock()
	c.unlockedAt = rle.UnlockedAt
	c.mu.Unlock()

	if err := c.settings.Set(ctx, SettingRateLimitUnlockedAt, strconv.FormatInt(rle.UnlockedAt.Unix(), 10)); err != nil {
		c.log.Error("Failed to persist rate limit window: %v", err)
	}
	c.Record(ctx, TypeWebhook, StatusWarning, fmt.Sprintf("Nhanh.vn rate limit reached, paused until %s", rle.UnlockedAt.Format(time.RFC3339)))
	return true
}

// SetRunner registers the function a scheduled job of the given type runs.
func (c *Coordinator) SetRunner(typ string, fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runners[typ] = fn
}

// ApplySchedule reconciles the cron jobs with the current settings:
// registering a job twice is a no-op, disabling removes it, and a frequency
// change replaces the entry. Safe to call on every settings update.
func (c *Coordinator) ApplySchedule(ctx context.Context) error {
	freq, _ := c.settings.Get(ctx, SettingSyncFrequency)
	spec, ok := frequencySpecs[freq]
	if !ok {
		spec = frequencySpecs["hourly"]
	}

	toggles := map[string]string{
		TypeProducts:  SettingSyncProducts,
		TypeInventory: SettingSyncInventory,
	}
	for typ, key := range toggles {
		enabled, _ := c.settings.Get(ctx, key)
		if err := c.reconcileJob(typ, spec, enabled == "1"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) reconcileJob(typ, spec string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entryID, registered := c.jobEntries[typ]
	if !enabled {
		if registered {
			c.scheduler.Remove(entryID)
			delete(c.jobEntries, typ)
			delete(c.jobSpecs, typ)
			c.log.Info("Unscheduled %s sync", typ)
		}
		return nil
	}
	if registered && c.jobSpecs[typ] == spec {
		return nil
	}
	if registered {
		c.scheduler.Remove(entryID)
	}
	runner, ok := c.runners[typ]
	if !ok {
		return fmt.Errorf("no runner registered for %s", typ)
	}
	id, err := c.scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		runner(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s sync: %w", typ, err)
	}
	c.jobEntries[typ] = id
	c.jobSpecs[typ] = spec
	c.log.Info("Scheduled %s sync (%s)", typ, spec)
	return nil
}

func (c *Coordinator) Start() {
	c.scheduler.Start()
}

func (c *Coordinator) Stop() {
	c.scheduler.Stop()
}
