package netcool

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/bizopsbank/feeder/internal"
)

var logger = internal.GetLogger("netcool")

// Severity values understood by the monitoring side.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Alert is the JSON payload posted to Netcool.
type Alert struct {
	AlertID     string `json:"alertId"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Severity    string `json:"severity"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source"`
	Application string `json:"application"`
	Component   string `json:"component"`
}

// Alerter is the outward-facing boundary the feeder raises alerts through.
type Alerter interface {
	SendAlert(alertID, title, message, severity string) error
}

// Client posts alerts to a Netcool HTTP endpoint.
type Client struct {
	url    string
	client *resty.Client
}

// NewClient builds an alert client for the given endpoint URL. timeout bounds
// each HTTP attempt.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

var _ Alerter = (*Client)(nil)

// SendAlert posts one alert, retrying transient failures with exponential
// backoff for up to a minute. A non-2xx response counts as a failure.
func (c *Client) SendAlert(alertID, title, message, severity string) error {
	if c.url == "" {
		logger.Debugf("no netcool endpoint configured, dropping alert %s", alertID)
		return nil
	}

	alert := Alert{
		AlertID:     alertID,
		Title:       title,
		Message:     message,
		Severity:    severity,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Source:      "feeder",
		Application: "fraud-risk-scanner",
		Component:   "feeder",
	}

	logger.Infof("sending alert to netcool: %s (%s)", alertID, severity)

	send := func() error {
		resp, err := c.client.R().SetBody(alert).Post(c.url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("netcool returned status %d: %s", resp.StatusCode(), resp.String())
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	if err := backoff.Retry(send, policy); err != nil {
		return fmt.Errorf("failed to send alert %s to netcool: %w", alertID, err)
	}

	logger.Infof("alert %s sent to netcool", alertID)
	return nil
}

// TestConnectivity probes the endpoint with a GET. Any HTTP response counts
// as reachable.
func (c *Client) TestConnectivity() bool {
	if c.url == "" {
		return false
	}
	resp, err := c.client.R().Get(c.url)
	if err != nil {
		logger.Warnf("netcool connectivity test failed: %v", err)
		return false
	}
	logger.Infof("netcool connectivity test: status %d", resp.StatusCode())
	return true
}
