package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	require.Equal(t, "account:12:events", Channel(12))
}

func TestPublisherWithoutRedis(t *testing.T) {
	var nilPublisher *Publisher
	require.NoError(t, nilPublisher.BalanceChanged(context.Background(), Event{AccountID: 1}))
	require.NoError(t, NewPublisher(nil).BalanceChanged(context.Background(), Event{AccountID: 1, Balance: decimal.NewFromInt(3)}))
}

func TestHubWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", NewHub(nil, "secret").Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=x", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
