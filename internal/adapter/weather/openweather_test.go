package weather

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

const sampleWeather = `{"name":"Kelaniya","weather":[{"description":"light rain"}],
"main":{"temp":28.4,"feels_like":32.1,"temp_min":27,"temp_max":29.5,"humidity":83},
"wind":{"speed":3.6,"deg":240},"clouds":{"all":75}}`

func TestOpenWeatherTool_Call(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(sampleWeather))
	}))
	defer server.Close()

	tool := NewOpenWeatherTool(server.URL, "key", "Kelaniya,LK", time.Second)

	t.Run("default location", func(t *testing.T) {
		out, err := tool.Call(t.Context(), json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, "Kelaniya,LK", gotQuery)
		assert.Contains(t, out, "In Kelaniya")
		assert.Contains(t, out, "light rain")
		assert.Contains(t, out, "Humidity: 83%")
		assert.Contains(t, out, "Feels like: 32.10°C")
	})

	t.Run("explicit location", func(t *testing.T) {
		_, err := tool.Call(t.Context(), json.RawMessage(`{"location":"Colombo,LK"}`))
		require.NoError(t, err)
		assert.Equal(t, "Colombo,LK", gotQuery)
	})

	t.Run("malformed arguments", func(t *testing.T) {
		_, err := tool.Call(t.Context(), json.RawMessage(`{"location":`))
		assert.ErrorIs(t, err, port.ErrInvalidArguments)
	})
}

func TestOpenWeatherTool_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tool := NewOpenWeatherTool(server.URL, "bad", "Kelaniya,LK", time.Second)
	_, err := tool.Call(t.Context(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrUpstreamStatus)
	assert.Equal(t, ToolName, tool.Definition().Name)
}
