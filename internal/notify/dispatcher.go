package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDispatcherStopped is returned by Enqueue before Start or after Shutdown.
	ErrDispatcherStopped = errors.New("notification dispatcher is not running")
	// ErrQueueFull is returned by Enqueue when MaxPending messages are already waiting.
	ErrQueueFull = errors.New("notification queue is full")
)

// Dispatcher sends messages in the background with bounded concurrency.
type Dispatcher interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(msg Message) error
}

type Config struct {
	MaxConcurrent int
	MaxPending    int
	SendTimeout   time.Duration
	Logger        *logrus.Logger
}

type dispatcher struct {
	cfg    Config
	sender Sender

	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	pending int
}

func NewDispatcher(cfg Config, sender Sender) Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &dispatcher{
		cfg:    cfg,
		sender: sender,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (d *dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	// sends already queued at shutdown still get to finish, so this context
	// is detached from ctx cancellation and only cancelled by Shutdown.
	d.ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	d.running = true
	d.cfg.Logger.Infof("notification dispatcher started, workers: %d", d.cfg.MaxConcurrent)
	return nil
}

// Shutdown stops accepting messages and waits for queued sends to finish.
// Each send is bounded by SendTimeout.
func (d *dispatcher) Shutdown() {
	d.mu.Lock()
	wasRunning := d.running
	d.running = false
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
	if wasRunning {
		d.cfg.Logger.Info("notification dispatcher stopped")
	}
}

func (d *dispatcher) Enqueue(msg Message) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	if d.pending >= d.cfg.MaxPending {
		d.mu.Unlock()
		return ErrQueueFull
	}
	d.pending++
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			d.pending--
			d.mu.Unlock()
		}()

		select {
		case <-d.ctx.Done():
			return
		case d.sem <- struct{}{}:
			defer func() { <-d.sem }()
			d.send(msg)
		}
	}()
	return nil
}

func (d *dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
	defer cancel()

	logger := d.cfg.Logger.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	})
	if err := d.sender.Send(ctx, msg); err != nil {
		logger.Warnf("send notification failed: %v", err)
		return
	}
	logger.Debug("notification sent")
}
