package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryConfigUnmarshalObjectForm(t *testing.T) {
	data := []byte(`{
		"story_description": "Мир после катастрофы",
		"player_description": {"user": "Рок — искатель приключений"},
		"NPC_description": {"Дурин": "дракон"},
		"custom_key": {"nested": true}
	}`)

	var cfg StoryConfig
	require.NoError(t, json.Unmarshal(data, &cfg))

	assert.Equal(t, "Мир после катастрофы", cfg.StoryDescription)
	assert.Equal(t, "Рок — искатель приключений", cfg.PlayerDisplay())
	assert.Equal(t, "дракон", cfg.NPCDescription["Дурин"])
	assert.Contains(t, cfg.Extra, "custom_key")
}

func TestStoryConfigUnmarshalLegacyPlayerString(t *testing.T) {
	// Старые конфиги хранят player_description плоской строкой
	data := []byte(`{
		"story_description": "Мир после катастрофы",
		"player_description": "Рок — искатель приключений"
	}`)

	var cfg StoryConfig
	require.NoError(t, json.Unmarshal(data, &cfg))

	assert.Equal(t, "Рок — искатель приключений", cfg.PlayerDisplay())
	assert.Equal(t, "Рок", cfg.PlayerName())
	// Строка нормализуется в объектную форму и не оседает в Extra
	assert.NotContains(t, cfg.Extra, "player_description")

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	var roundTrip StoryConfig
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.Equal(t, "Рок — искатель приключений", roundTrip.PlayerDescription["user"])
}

func TestStoryConfigPlayerName(t *testing.T) {
	cases := []struct {
		display string
		want    string
	}{
		{"Рок — искатель приключений", "Рок"},
		{"Рина - лучница", "Рина"},
		{"Безымянный", "Безымянный"},
		{"", ""},
	}
	for _, tc := range cases {
		cfg := StoryConfig{PlayerDescription: map[string]string{"user": tc.display}}
		assert.Equal(t, tc.want, cfg.PlayerName(), "display %q", tc.display)
	}
}
