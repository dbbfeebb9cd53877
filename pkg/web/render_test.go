package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/geniass/price-tracker/pkg/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDashboardStatic(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDashboard(&buf, DashboardContext{
		BaseContext: BaseContext{PathPrefix: "/tracker"},
		Products: []model.Product{
			{URL: "https://www.amazon.com/dp/B07XJ8C8F5", TargetPrice: decimal.RequireFromString("19.9"), Name: "Acme <Kettle>"},
		},
		LastUpdated: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Static:      true,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "$19.90")
	assert.Contains(t, out, "Acme &lt;Kettle&gt;")
	assert.Contains(t, out, `href="/tracker/"`)
	assert.Contains(t, out, "Snapshot generated")
	assert.NotContains(t, out, "<form")
	assert.NotContains(t, out, "WebSocket")
}

func TestRenderDashboardLive(t *testing.T) {
	var buf bytes.Buffer
	err := RenderDashboard(&buf, DashboardContext{
		Events: []model.Event{
			{Time: time.Now(), Severity: model.SeverityError, Message: "could not retrieve price"},
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Nothing tracked yet.")
	assert.Contains(t, out, `<li class="error">`)
	assert.Contains(t, out, "/api/events/ws")
}
