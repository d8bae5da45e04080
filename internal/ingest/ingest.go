// Package ingest drives the upstream SBS feed: it dials the source, reads
// lines, and fans every parsed point out to the history buffer and the
// broadcaster. The loop is the only writer of both.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/curbz/skyscope/internal/history"
	"github.com/curbz/skyscope/internal/sbs"
	"github.com/curbz/skyscope/internal/watch"
)

// Config is the feed section of the service configuration.
type Config struct {
	Addr              string `yaml:"addr"`
	Reconnect         *bool  `yaml:"reconnect"`
	DialTimeoutSecs   int    `yaml:"dial_timeout_secs"`
	StatsIntervalSecs int    `yaml:"stats_interval_secs"`
}

// Loop states, reported through Status.
const (
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateStopped    = "stopped"
)

// Status is a point-in-time view of ingestion health.
type Status struct {
	State       string    `json:"state"`
	Connects    int       `json:"connects"`
	Lines       uint64    `json:"lines"`
	Points      uint64    `json:"points"`
	Dropped     uint64    `json:"dropped_lines"`
	LastError   string    `json:"last_error,omitempty"`
	LastPointAt time.Time `json:"last_point_at"`
}

// Loop owns the upstream connection. Run is the only mutator of the history
// buffer and broadcaster it was built with.
type Loop struct {
	cfg       Config
	reconnect bool
	hist      *history.Buffer
	bc        *watch.Broadcaster
	log       *logrus.Entry
	printer   *message.Printer

	backoffMin time.Duration
	backoffMax time.Duration

	mu     sync.Mutex
	status Status
}

// New builds an ingestion loop. Zero config fields get defaults: the dump1090
// BaseStation port on localhost, reconnect enabled, 10s dial timeout, stats
// every 60s.
func New(cfg Config, hist *history.Buffer, bc *watch.Broadcaster) *Loop {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:30003"
	}
	if cfg.DialTimeoutSecs <= 0 {
		cfg.DialTimeoutSecs = 10
	}
	if cfg.StatsIntervalSecs <= 0 {
		cfg.StatsIntervalSecs = 60
	}
	reconnect := true
	if cfg.Reconnect != nil {
		reconnect = *cfg.Reconnect
	}
	return &Loop{
		cfg:        cfg,
		reconnect:  reconnect,
		hist:       hist,
		bc:         bc,
		log:        logrus.WithField("component", "ingest"),
		printer:    message.NewPrinter(language.English),
		backoffMin: time.Second,
		backoffMax: 30 * time.Second,
		status:     Status{State: StateConnecting},
	}
}

// Run connects to the feed and streams until the context is cancelled.
// Connection loss is logged and, with reconnect enabled, retried with capped
// exponential backoff; otherwise it is returned as a terminal error. Either
// way the history buffer and broadcaster are left intact.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	backoff := l.backoffMin
	for {
		l.setState(StateConnecting)
		conn, err := l.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.recordError(err)
			l.log.WithError(err).Error("feed connect failed")
			if !l.reconnect {
				return fmt.Errorf("connect to feed %s: %w", l.cfg.Addr, err)
			}
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, l.backoffMax)
			continue
		}
		backoff = l.backoffMin
		l.connected()
		l.log.WithField("addr", l.cfg.Addr).Info("feed connected")

		err = l.stream(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// an orderly stream end still means the feed is gone
			err = io.EOF
		}
		l.recordError(err)
		l.log.WithError(err).Error("feed stream ended")
		if !l.reconnect {
			return fmt.Errorf("feed %s: %w", l.cfg.Addr, err)
		}
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = min(backoff*2, l.backoffMax)
	}
}

// Status returns an independent copy of the current ingestion status.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *deepcopy.Copy(&l.status).(*Status)
}

func (l *Loop) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: time.Duration(l.cfg.DialTimeoutSecs) * time.Second}
	return d.DialContext(ctx, "tcp", l.cfg.Addr)
}

func (l *Loop) stream(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	// unblock the read when the context goes away
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	statsEvery := time.Duration(l.cfg.StatsIntervalSecs) * time.Second
	lastStats := time.Now()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		p, ok := sbs.ParseLine(sc.Text())
		l.count(ok)
		if !ok {
			continue
		}
		// history first, so a subscriber reacting to the broadcast always
		// finds this point in a concurrent snapshot
		l.hist.Append(p)
		l.bc.Publish(p)

		if time.Since(lastStats) >= statsEvery {
			l.logStats()
			lastStats = time.Now()
		}
	}
	return sc.Err()
}

func (l *Loop) count(parsed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.Lines++
	if parsed {
		l.status.Points++
		l.status.LastPointAt = time.Now()
	} else {
		l.status.Dropped++
	}
}

func (l *Loop) connected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.State = StateStreaming
	l.status.Connects++
}

func (l *Loop) setState(state string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.State = state
}

func (l *Loop) recordError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status.LastError = err.Error()
}

func (l *Loop) logStats() {
	st := l.Status()
	l.log.Infof("feed stats: %s lines, %s points, %s dropped",
		l.printer.Sprintf("%d", st.Lines),
		l.printer.Sprintf("%d", st.Points),
		l.printer.Sprintf("%d", st.Dropped))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
