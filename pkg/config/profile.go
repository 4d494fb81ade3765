package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Restaurant describes the establishment the assistant speaks for.
type Restaurant struct {
	Name            string `yaml:"name"`
	Location        string `yaml:"location"`
	OpeningHours    string `yaml:"opening_hours"`
	WeatherLocation string `yaml:"weather_location"`
	Persona         string `yaml:"persona"`
}

// DefaultRestaurant returns the built-in NO18 Restaurant profile.
func DefaultRestaurant() Restaurant {
	return Restaurant{
		Name:            "NO18 Restaurant",
		Location:        "Kelaniya, Sri Lanka",
		OpeningHours:    "10am to 10pm daily",
		WeatherLocation: "Kelaniya,LK",
		Persona:         "a friendly and helpful assistant",
	}
}

// LoadRestaurant reads a YAML profile from path. Fields left empty in the
// file keep their default values. An empty path returns the defaults.
func LoadRestaurant(path string) (Restaurant, error) {
	r := DefaultRestaurant()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read restaurant profile: %w", err)
	}

	var fromFile Restaurant
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return r, fmt.Errorf("parse restaurant profile: %w", err)
	}

	if fromFile.Name != "" {
		r.Name = fromFile.Name
	}
	if fromFile.Location != "" {
		r.Location = fromFile.Location
	}
	if fromFile.OpeningHours != "" {
		r.OpeningHours = fromFile.OpeningHours
	}
	if fromFile.WeatherLocation != "" {
		r.WeatherLocation = fromFile.WeatherLocation
	}
	if fromFile.Persona != "" {
		r.Persona = fromFile.Persona
	}
	return r, nil
}

// SystemPrompt renders the fixed preamble given to the chat model. The
// weather instruction is included only when the weather tool is registered.
func (r Restaurant) SystemPrompt(weatherEnabled bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s for %s.\n", r.Persona, r.Name)
	b.WriteString("Your role is to answer customer questions about the menu, prices, opening hours and location.\n")
	b.WriteString("Use the menu_search tool to look up menu items and prices before answering questions about food or drinks.\n")
	if weatherEnabled {
		b.WriteString("Use the weather tool to check the current weather and use it to suggest suitable menu items when relevant, " +
			"for example cold drinks on a hot day or warm dishes when it rains.\n")
	}
	b.WriteString("If the knowledge base does not contain the answer, say so politely instead of guessing.\n\n")
	b.WriteString("General information:\n")
	fmt.Fprintf(&b, "- Opening hours: %s\n", r.OpeningHours)
	fmt.Fprintf(&b, "- Location: %s\n", r.Location)
	return b.String()
}
