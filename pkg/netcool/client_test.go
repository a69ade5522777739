package netcool

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "http://netcool.test/api/alerts"

func newTestClient(t *testing.T) *Client {
	c := NewClient(testURL, 5*time.Second)
	httpmock.ActivateNonDefault(c.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestSendAlertPostsPayload(t *testing.T) {
	c := newTestClient(t)

	var got Alert
	httpmock.RegisterResponder(http.MethodPost, testURL,
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	err := c.SendAlert("FRS_0253", "No Reports Found Alert", "no files in /data", SeverityCritical)
	require.NoError(t, err)

	assert.Equal(t, "FRS_0253", got.AlertID)
	assert.Equal(t, "No Reports Found Alert", got.Title)
	assert.Equal(t, "no files in /data", got.Message)
	assert.Equal(t, SeverityCritical, got.Severity)
	assert.Equal(t, "feeder", got.Source)
	assert.Equal(t, "fraud-risk-scanner", got.Application)
	assert.Equal(t, "feeder", got.Component)
	assert.NotEmpty(t, got.Timestamp)
}

func TestSendAlertRetriesTransientFailures(t *testing.T) {
	c := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "boom"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	err := c.SendAlert("FRS_0253", "title", "message", SeverityWarning)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSendAlertWithoutEndpointIsDropped(t *testing.T) {
	c := NewClient("", time.Second)
	httpmock.ActivateNonDefault(c.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	err := c.SendAlert("FRS_0253", "title", "message", SeverityInfo)
	assert.NoError(t, err)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestConnectivity(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, testURL,
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))
	assert.True(t, c.TestConnectivity())

	empty := NewClient("", time.Second)
	assert.False(t, empty.TestConnectivity())
}
