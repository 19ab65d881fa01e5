package session

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"afunding/internal/campaigns"
	"afunding/internal/ledger"
	"afunding/internal/ledger/ledgertest"
	"afunding/internal/models"
	"afunding/internal/submit"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sender = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func newContract(t *testing.T, backend *ledgertest.Backend) *ledger.Contract {
	t.Helper()
	contract, err := ledger.NewConnection(backend).Bind("0x5FbDB2315678afecb367f032d93F642f64180aa3", ledger.CrowdfundingABI)
	require.NoError(t, err)
	return contract
}

func rec(title string) ledgertest.Record {
	return ledgertest.Record{Title: title, Goal: big.NewInt(1)}
}

func TestSession_RemountRefetches(t *testing.T) {
	backend := ledgertest.NewBackend(rec("a"), rec("b"), rec("c"))
	s := New("s1", newContract(t, backend), sender, campaigns.SequenceConfig{})

	require.NoError(t, s.MountCampaignList(context.Background()).Wait(context.Background()))
	require.Len(t, s.Campaigns(), 3)

	// "b" is removed from the ledger between the two mounts
	backend.SetRecords(rec("a"), rec("c"))

	require.NoError(t, s.MountCampaignList(context.Background()).Wait(context.Background()))

	got := s.Campaigns()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[1].Title)
	assert.Equal(t, 2, backend.CountReads(), "each mount runs its own sequence")
}

func TestSession_UnmountStopsPublish(t *testing.T) {
	backend := ledgertest.NewBackend(rec("a"), rec("b"), rec("c"))

	release := make(chan struct{})
	entered := make(chan struct{}, 3)
	backend.OnRead = func(index uint64) {
		entered <- struct{}{}
		<-release
	}

	s := New("s1", newContract(t, backend), sender, campaigns.SequenceConfig{})
	published := 0
	s.SubscribeCampaigns(func([]models.Campaign) { published++ })

	mount := s.MountCampaignList(context.Background())
	<-entered
	mount.Unmount()
	close(release)

	select {
	case <-mount.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sequence did not stop after unmount")
	}

	assert.ErrorIs(t, mount.Wait(context.Background()), context.Canceled)
	assert.Zero(t, published)
	assert.Empty(t, s.Campaigns())
	assert.Len(t, backend.Reads(), 1)
}

func TestSession_MountHome(t *testing.T) {
	backend := ledgertest.NewBackend()
	backend.SetBlock(1234, nil)
	s := New("s1", newContract(t, backend), sender, campaigns.SequenceConfig{})

	assert.Nil(t, s.BlockNumber(), "loading until the first read")

	require.NoError(t, s.MountHome(context.Background()).Wait(context.Background()))
	require.NotNil(t, s.BlockNumber())
	assert.Equal(t, uint64(1234), *s.BlockNumber())

	backend.SetBlock(0, errors.New("connection refused"))
	err := s.MountHome(context.Background()).Wait(context.Background())
	assert.ErrorIs(t, err, ledger.ErrRPCCall)
	assert.Nil(t, s.BlockNumber())
}

func TestSession_SubmitDoesNotRefresh(t *testing.T) {
	backend := ledgertest.NewBackend(rec("a"))
	s := New("s1", newContract(t, backend), sender, campaigns.SequenceConfig{})

	require.NoError(t, s.MountCampaignList(context.Background()).Wait(context.Background()))
	require.Len(t, s.Campaigns(), 1)

	assert.Nil(t, s.Status())
	assert.Equal(t, submit.SuccessMessage, s.Submit(context.Background(), "new", "desc", "10"))
	assert.Equal(t, submit.SuccessMessage, *s.Status())
	assert.Len(t, s.Campaigns(), 1, "snapshot is not refreshed after a write")

	require.NoError(t, s.MountCampaignList(context.Background()).Wait(context.Background()))
	got := s.Campaigns()
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[1].Title)
	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", got[1].Creator)
}

func TestMount_WaitHonoursContext(t *testing.T) {
	backend := ledgertest.NewBackend(rec("a"))
	release := make(chan struct{})
	backend.OnRead = func(uint64) { <-release }
	defer close(release)

	s := New("s1", newContract(t, backend), sender, campaigns.SequenceConfig{})
	mount := s.MountCampaignList(context.Background())
	defer mount.Unmount()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mount.Wait(ctx), context.DeadlineExceeded)
}
