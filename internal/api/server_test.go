package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"afunding/internal/campaigns"
	"afunding/internal/config"
	"afunding/internal/ledger"
	"afunding/internal/ledger/ledgertest"
	"afunding/internal/models"
	"afunding/internal/session"
	"afunding/internal/submit"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sender = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func newTestServer(t *testing.T, backend *ledgertest.Backend) (*httptest.Server, *session.Manager) {
	t.Helper()
	contract, err := ledger.NewConnection(backend).Bind("0x5FbDB2315678afecb367f032d93F642f64180aa3", ledger.CrowdfundingABI)
	require.NoError(t, err)

	sessions := session.NewManager(contract, sender, campaigns.SequenceConfig{})
	srv := httptest.NewServer(NewServer(config.HTTP{Port: 0}, sessions).Handler())
	t.Cleanup(srv.Close)
	return srv, sessions
}

// client keeps the session cookie between requests
func client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, ledgertest.NewBackend())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health := decode[models.HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, ledgertest.NewBackend())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ListCampaigns(t *testing.T) {
	backend := ledgertest.NewBackend(
		ledgertest.Record{Title: "t0", Goal: big.NewInt(100), FundsRaised: big.NewInt(10)},
		ledgertest.Record{Title: "t1"},
		ledgertest.Record{Title: "t2", Goal: big.NewInt(50), FundsRaised: big.NewInt(50), Completed: true},
	)
	backend.FailIndex(1, errors.New("boom"))
	srv, sessions := newTestServer(t, backend)

	resp, err := client(t).Get(srv.URL + "/campaigns")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[models.CampaignListResponse](t, resp)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, uint64(0), list.Campaigns[0].ID)
	assert.Equal(t, uint64(2), list.Campaigns[1].ID)
	assert.Equal(t, 1, sessions.Len())
}

func TestServer_ListCountFailureIsSilent(t *testing.T) {
	backend := ledgertest.NewBackend(ledgertest.Record{Title: "t0"})
	srv, _ := newTestServer(t, backend)
	c := client(t)

	resp, err := c.Get(srv.URL + "/campaigns")
	require.NoError(t, err)
	first := decode[models.CampaignListResponse](t, resp)
	require.Equal(t, 1, first.Total)

	backend.FailCount(errors.New("connection refused"))

	resp, err = c.Get(srv.URL + "/campaigns")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[models.CampaignListResponse](t, resp)
	assert.Equal(t, first, second, "previous snapshot is kept")
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	backend := ledgertest.NewBackend()
	srv, sessions := newTestServer(t, backend)

	alice, bob := client(t), client(t)

	resp, err := alice.PostForm(srv.URL+"/campaigns", url.Values{"title": {"t"}, "description": {"d"}, "goal": {"5"}})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = bob.Get(srv.URL + "/campaigns/status")
	require.NoError(t, err)
	assert.Nil(t, decode[models.StatusResponse](t, resp).Status)

	resp, err = alice.Get(srv.URL + "/campaigns/status")
	require.NoError(t, err)
	status := decode[models.StatusResponse](t, resp).Status
	require.NotNil(t, status)
	assert.Equal(t, submit.SuccessMessage, *status)

	assert.Equal(t, 2, sessions.Len())
}

func TestServer_CreateCampaign(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantGoal    string
	}{
		{"json", "application/json", `{"title":"Roof","description":"Solar","goal":"2500"}`, "2500"},
		{"form", "application/x-www-form-urlencoded", "title=Roof&description=Solar&goal=2500", "2500"},
		{"non numeric goal", "application/json", `{"title":"Roof","description":"Solar","goal":"lots"}`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := ledgertest.NewBackend()
			srv, _ := newTestServer(t, backend)

			resp, err := client(t).Post(srv.URL+"/campaigns", tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			status := decode[models.StatusResponse](t, resp).Status
			require.NotNil(t, status)
			assert.Equal(t, submit.SuccessMessage, *status)

			subs := backend.Submissions()
			require.Len(t, subs, 1)
			assert.Equal(t, "Roof", subs[0].Title)
			assert.Equal(t, "Solar", subs[0].Description)
			assert.Equal(t, tt.wantGoal, subs[0].Goal.String())
			assert.Equal(t, sender, subs[0].From)
		})
	}
}

func TestServer_CreateCampaignWriteFailure(t *testing.T) {
	backend := ledgertest.NewBackend()
	backend.FailSend(errors.New("authentication needed"))
	srv, _ := newTestServer(t, backend)

	resp, err := client(t).Post(srv.URL+"/campaigns", "application/json", strings.NewReader(`{"title":"t","description":"d","goal":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status := decode[models.StatusResponse](t, resp).Status
	require.NotNil(t, status)
	assert.True(t, strings.HasPrefix(*status, "Error: "))
}

func TestServer_CreateCampaignBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, ledgertest.NewBackend())

	resp, err := client(t).Post(srv.URL+"/campaigns", "application/json", strings.NewReader(`{"goal":`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_Block(t *testing.T) {
	backend := ledgertest.NewBackend()
	backend.SetBlock(77, nil)
	srv, _ := newTestServer(t, backend)
	c := client(t)

	resp, err := c.Get(srv.URL + "/block")
	require.NoError(t, err)
	block := decode[models.BlockResponse](t, resp)
	require.NotNil(t, block.BlockNumber)
	assert.Equal(t, uint64(77), *block.BlockNumber)

	backend.SetBlock(0, errors.New("unreachable"))
	resp, err = c.Get(srv.URL + "/block")
	require.NoError(t, err)
	assert.Nil(t, decode[models.BlockResponse](t, resp).BlockNumber)
}
