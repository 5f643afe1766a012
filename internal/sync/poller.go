package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/goal-guardian/internal/ingest"
	"github.com/nhle/goal-guardian/internal/model"
	"github.com/nhle/goal-guardian/internal/source"
)

// SyncState represents the current state of an account's ingestion.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the ingestion state for a single account.
type SyncStatus struct {
	AccountID string
	State     SyncState
	LastSync  time.Time
	LastNew   int
	Error     error
}

// IngestResultMsg is a tea.Msg sent when an ingestion pass completes.
type IngestResultMsg struct {
	AccountID string
	Result    ingest.Result
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when a mailbox rejects its credentials.
type AuthErrorMsg struct {
	AccountID string
	Message   string
}

// Runner performs one ingestion pass.
type Runner interface {
	Run(ctx context.Context, account model.Account) (ingest.Result, error)
}

// AccountLister supplies the accounts to ingest.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
}

const (
	defaultInterval    = time.Hour
	defaultPassTimeout = 2 * time.Minute
	listTimeout        = 10 * time.Second
	queueSize          = 64
)

// Poller schedules ingestion passes: every account once per interval and
// single accounts on demand. It never runs two passes for the same account
// at once.
type Poller struct {
	accounts    AccountLister
	runner      Runner
	interval    time.Duration
	passTimeout time.Duration
	workers     int
	log         zerolog.Logger

	statuses map[string]*SyncStatus
	inFlight map[string]bool
	jobs     chan string
	resultCh chan IngestResultMsg
	stopCh   chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       gosync.WaitGroup
	mu       gosync.Mutex
	running  bool
}

// New creates a Poller over the given accounts.
func New(
	accounts AccountLister,
	runner Runner,
	cfg model.IngestConfig,
	log zerolog.Logger,
) *Poller {
	p := &Poller{
		accounts:    accounts,
		runner:      runner,
		interval:    cfg.Interval(),
		passTimeout: cfg.PassTimeout(),
		workers:     cfg.Workers,
		log:         log.With().Str("component", "poller").Logger(),
		statuses:    make(map[string]*SyncStatus),
		inFlight:    make(map[string]bool),
		jobs:        make(chan string, queueSize),
		resultCh:    make(chan IngestResultMsg, 16),
		stopCh:      make(chan struct{}),
	}
	if p.interval <= 0 {
		p.interval = defaultInterval
	}
	if p.passTimeout <= 0 {
		p.passTimeout = defaultPassTimeout
	}
	if p.workers < 1 {
		p.workers = 1
	}
	return p
}

// Start launches the workers and the interval loop, which queues every
// account immediately and then once per interval. The returned command
// waits for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.wg.Add(1)
	go p.loop()

	return p.waitForResult()
}

// Stop halts the loop and workers, cancelling passes in progress, and
// waits for them to exit. A stopped Poller cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Trigger queues an immediate pass for one account. It reports false when a
// pass for that account is already queued or running, or the queue is full.
func (p *Poller) Trigger(accountID string) bool {
	if !p.claim(accountID) {
		return false
	}

	select {
	case p.jobs <- accountID:
		return true
	default:
		p.release(accountID)
		p.log.Warn().Str("account", accountID).Msg("ingest queue full, dropping pass")
		return false
	}
}

// TriggerAll queues a pass for every account, waiting for queue space so
// that no account is skipped. Accounts with a pass already in flight are
// left alone. It returns early once the poller stops.
func (p *Poller) TriggerAll() {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	accounts, err := p.accounts.ListAccounts(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("listing accounts")
		return
	}

	queued := 0
	for _, a := range accounts {
		if !p.claim(a.ID) {
			continue
		}
		select {
		case p.jobs <- a.ID:
			queued++
		case <-p.stopCh:
			p.release(a.ID)
			return
		}
	}
	p.log.Debug().Int("accounts", len(accounts)).Int("queued", queued).Msg("scheduled round queued")
}

// claim marks an account in flight. It fails when the poller is stopped or
// the account already has a pass queued or running.
func (p *Poller) claim(accountID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.inFlight[accountID] {
		return false
	}
	p.inFlight[accountID] = true
	return true
}

// Results exposes completed passes for callers outside Bubble Tea.
func (p *Poller) Results() <-chan IngestResultMsg {
	return p.resultCh
}

// GetStatuses returns the ingestion status of every account seen so far,
// ordered by account id.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].AccountID < statuses[j].AccountID
	})
	return statuses
}

// WaitForNextResult returns a tea.Cmd that waits for the next ingestion
// result. Call it after handling each IngestResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

func (p *Poller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.TriggerAll()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.TriggerAll()
		}
	}
}

func (p *Poller) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case id := <-p.jobs:
			p.process(id)
		}
	}
}

// process runs one pass. Failures are reported on the result channel and
// never stop the poller.
func (p *Poller) process(accountID string) {
	p.setStatus(accountID, SyncRunning, 0, nil)

	ctx, cancel := context.WithTimeout(p.ctx, p.passTimeout)
	defer cancel()

	msg := IngestResultMsg{AccountID: accountID}
	account, err := p.accounts.GetAccount(ctx, accountID)
	if err == nil {
		msg.Result, err = p.runner.Run(ctx, *account)
	}
	msg.Error = err

	log := p.log.With().Str("account", accountID).Logger()
	switch {
	case err == nil:
		p.setStatus(accountID, SyncIdle, msg.Result.NewCount, nil)
	case source.IsAuthError(err):
		p.setStatus(accountID, SyncError, 0, err)
		msg.AuthError = &AuthErrorMsg{
			AccountID: accountID,
			Message:   fmt.Sprintf("mailbox login failed: %v. Press 'l' to relink.", err),
		}
		log.Warn().Err(err).Msg("mailbox rejected credentials")
	default:
		p.setStatus(accountID, SyncError, 0, err)
		log.Error().Err(err).Msg("ingestion pass failed")
	}

	p.release(accountID)
	p.sendResult(msg)
}

func (p *Poller) release(accountID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, accountID)
}

// setStatus updates the ingestion status for an account.
func (p *Poller) setStatus(accountID string, state SyncState, newCount int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[accountID]
	if !ok {
		status = &SyncStatus{AccountID: accountID}
		p.statuses[accountID] = status
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
		status.LastNew = newCount
	}
}

// sendResult sends a result without blocking.
func (p *Poller) sendResult(msg IngestResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the workers
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}
