package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"afunding/internal/campaigns"
	"afunding/internal/ledger"
	"afunding/internal/models"
	"afunding/internal/store"
	"afunding/internal/submit"

	"github.com/ethereum/go-ethereum/common"
)

// Mount is one view mount. Its work runs in the background until it
// finishes or Unmount is called.
type Mount struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func start(parent context.Context, work func(ctx context.Context) error) *Mount {
	ctx, cancel := context.WithCancel(parent)
	m := &Mount{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(m.done)
		defer cancel()
		m.err = work(ctx)
	}()
	return m
}

// Unmount cancels the mount's in-flight work. Nothing is published after it
// returns unless publishing had already started.
func (m *Mount) Unmount() {
	m.cancel()
}

// Done is closed once the mount's work has returned
func (m *Mount) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the work has returned or ctx is done
func (m *Mount) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session is the state of one browser session: the campaign snapshot, the
// home view block number and the last submission status
type Session struct {
	id       string
	contract *ledger.Contract
	config   campaigns.SequenceConfig

	campaigns *store.Store[[]models.Campaign]
	block     *store.Store[*uint64]
	submitter *submit.Submitter

	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a session reading from contract and submitting as sender
func New(id string, contract *ledger.Contract, sender common.Address, config campaigns.SequenceConfig) *Session {
	return &Session{
		id:        id,
		contract:  contract,
		config:    config,
		campaigns: store.New([]models.Campaign{}),
		block:     store.New[*uint64](nil),
		submitter: submit.NewSubmitter(contract, sender),
		lastSeen:  time.Now(),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// MountCampaignList starts a full fetch sequence for the list view. Every
// mount fetches again; there is no cache between mounts.
func (s *Session) MountCampaignList(ctx context.Context) *Mount {
	s.touch()
	seq := campaigns.NewSequence(s.contract, s.campaigns, s.config)
	return start(ctx, func(ctx context.Context) error {
		_, err := seq.Run(ctx)
		return err
	})
}

// MountHome reads the current block number once for the home view.
// A failed read leaves the block number unset.
func (s *Session) MountHome(ctx context.Context) *Mount {
	s.touch()
	return start(ctx, func(ctx context.Context) error {
		number, err := s.contract.Connection().BlockNumber(ctx)
		if err != nil {
			slog.Error("Error fetching block number", "session", s.id, "error", err)
			s.block.Set(nil)
			return err
		}
		s.block.Set(&number)
		return nil
	})
}

// Campaigns returns the current snapshot
func (s *Session) Campaigns() []models.Campaign {
	return s.campaigns.Get()
}

// SubscribeCampaigns registers fn for snapshot replacements
func (s *Session) SubscribeCampaigns(fn store.Observer[[]models.Campaign]) func() {
	return s.campaigns.Subscribe(fn)
}

// BlockNumber returns the last block number read by MountHome, or nil
func (s *Session) BlockNumber() *uint64 {
	return s.block.Get()
}

// Submit forwards a creation form. The snapshot is not refreshed; mount the
// list again to see the new campaign.
func (s *Session) Submit(ctx context.Context, title, description, goal string) string {
	s.touch()
	return s.submitter.Submit(ctx, title, description, goal)
}

// Status returns the last submission message, or nil
func (s *Session) Status() *string {
	return s.submitter.Status()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
