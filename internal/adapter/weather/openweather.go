package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
	"github.com/arturoeanton/restaurant-chatbot/internal/port"
)

// ToolName is the name the chat model uses to call the weather tool.
const ToolName = "weather"

// OpenWeatherTool reports current conditions from the OpenWeatherMap API.
type OpenWeatherTool struct {
	baseURL         string
	apiKey          string
	defaultLocation string
	httpClient      *http.Client
}

// NewOpenWeatherTool creates the tool. defaultLocation is used when the model
// omits the location argument.
func NewOpenWeatherTool(baseURL, apiKey, defaultLocation string, timeout time.Duration) *OpenWeatherTool {
	return &OpenWeatherTool{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		defaultLocation: defaultLocation,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// Definition describes the tool to the chat model.
func (w *OpenWeatherTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        ToolName,
		Description: "Returns the current weather for a location. Use it to answer weather questions " +
			"and to suggest menu items that suit the current conditions.",
		Parameters: json.RawMessage(`{"type":"object","properties":{"location":{"type":"string",` +
			`"description":"City and country code, e.g. Kelaniya,LK"}}}`),
	}
}

// Call fetches current conditions for the requested location.
func (w *OpenWeatherTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args struct {
		Location string `json:"location"`
	}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("%w: %v", port.ErrInvalidArguments, err)
		}
	}
	location := strings.TrimSpace(args.Location)
	if location == "" {
		location = w.defaultLocation
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", w.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("weather: create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("weather: %w: %d %s", port.ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("weather: decode: %w", err)
	}

	status := "unknown"
	if len(data.Weather) > 0 {
		status = data.Weather[0].Description
	}
	place := data.Name
	if place == "" {
		place = location
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In %s, the current weather is as follows:\n", place)
	fmt.Fprintf(&b, "Detailed status: %s\n", status)
	fmt.Fprintf(&b, "Wind speed: %.2f m/s, direction: %.0f°\n", data.Wind.Speed, data.Wind.Deg)
	fmt.Fprintf(&b, "Humidity: %d%%\n", data.Main.Humidity)
	b.WriteString("Temperature:\n")
	fmt.Fprintf(&b, "  - Current: %.2f°C\n", data.Main.Temp)
	fmt.Fprintf(&b, "  - High: %.2f°C\n", data.Main.TempMax)
	fmt.Fprintf(&b, "  - Low: %.2f°C\n", data.Main.TempMin)
	fmt.Fprintf(&b, "  - Feels like: %.2f°C\n", data.Main.FeelsLike)
	fmt.Fprintf(&b, "Cloud cover: %d%%", data.Clouds.All)
	return b.String(), nil
}
