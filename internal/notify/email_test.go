package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/model"
)

func TestSMTPConfigForAddress(t *testing.T) {
	cases := []struct {
		address string
		host    string
		port    int
		ssl     bool
	}{
		{"me@gmail.com", "smtp.gmail.com", 587, false},
		{"me@outlook.com", "smtp.office365.com", 587, false},
		{"me@hotmail.com", "smtp.office365.com", 587, false},
		{"me@qq.com", "smtp.qq.com", 465, true},
		{"me@163.com", "smtp.163.com", 465, true},
		{"me@example.org", "smtp.example.org", 465, true},
	}
	for _, tc := range cases {
		host, port, ssl, err := smtpConfigForAddress(tc.address)
		require.NoError(t, err, tc.address)
		assert.Equal(t, tc.host, host, tc.address)
		assert.Equal(t, tc.port, port, tc.address)
		assert.Equal(t, tc.ssl, ssl, tc.address)
	}
}

func TestSMTPConfigForAddressInvalid(t *testing.T) {
	_, _, _, err := smtpConfigForAddress("not-an-address")
	assert.Error(t, err)
}

func TestBuildSummaryBody(t *testing.T) {
	results := []model.Result{
		{Target: "Switch", State: model.StateInStock, CheckedAt: time.Now()},
		{Target: "WiFi AP", State: model.StateSoldOut, CheckedAt: time.Now()},
		{Target: "Gateway", State: model.StateError, Message: "Timeout while loading the page for Gateway", CheckedAt: time.Now()},
	}

	htmlBody, textBody, err := buildSummaryBody(results)
	require.NoError(t, err)

	assert.Contains(t, textBody, "- Switch: IN STOCK")
	assert.Contains(t, textBody, "- WiFi AP: sold out")
	assert.Contains(t, textBody, "- Gateway: error: Timeout while loading the page for Gateway")
	assert.Contains(t, htmlBody, "<td")
	assert.Contains(t, htmlBody, "Switch")
}
