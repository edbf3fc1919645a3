package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoryConfig - типизированный конфиг истории (мир, герой, NPC, стартовая фраза).
// Неизвестные поля сохраняются в Extra и переживают цикл чтения/записи,
// но приложением не интерпретируются.
type StoryConfig struct {
	StoryDescription  string            `json:"story_description,omitempty"`
	PlayerDescription map[string]string `json:"player_description,omitempty"` // ключ "user" хранит строку вида "Имя — описание"
	NPCDescription    map[string]string `json:"NPC_description,omitempty"`
	StartPhrase       string            `json:"start_phrase,omitempty"`
	AgentPromptID     string            `json:"yc_agent_prompt_id,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Ключи, которые раскладываются в явные поля StoryConfig.
var storyConfigKnownKeys = []string{
	"story_description",
	"player_description",
	"NPC_description",
	"start_phrase",
	"yc_agent_prompt_id",
}

// UnmarshalJSON разбирает известные поля и складывает остальные в Extra.
func (c *StoryConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Легаси-конфиги хранят player_description строкой, а не объектом.
	// Строка читается как отображаемая строка героя под ключом "user".
	if pd, ok := raw["player_description"]; ok {
		var display string
		if json.Unmarshal(pd, &display) == nil {
			normalized, err := json.Marshal(map[string]string{"user": display})
			if err != nil {
				return err
			}
			raw["player_description"] = normalized
			if data, err = json.Marshal(raw); err != nil {
				return err
			}
		}
	}

	type plain StoryConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	for _, key := range storyConfigKnownKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*c = StoryConfig(p)
	return nil
}

// MarshalJSON сериализует явные поля поверх сохраненных неизвестных.
func (c StoryConfig) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(c.Extra)+len(storyConfigKnownKeys))
	for k, v := range c.Extra {
		merged[k] = v
	}

	type plain StoryConfig
	knownJSON, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(knownJSON, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// PlayerDisplay возвращает отображаемую строку героя ("Имя — описание").
func (c StoryConfig) PlayerDisplay() string {
	if c.PlayerDescription == nil {
		return ""
	}
	return c.PlayerDescription["user"]
}

// PlayerName выделяет имя героя из отображаемой строки.
// Строка делится по первому тире ("—" приоритетнее "-"), имя - часть до него.
func (c StoryConfig) PlayerName() string {
	display := c.PlayerDisplay()
	if i := strings.Index(display, "—"); i >= 0 {
		return strings.TrimSpace(display[:i])
	}
	if i := strings.Index(display, "-"); i >= 0 {
		return strings.TrimSpace(display[:i])
	}
	return strings.TrimSpace(display)
}

// Story представляет нарративную сессию пользователя.
// OwnerID == nil означает шаблон: общую read-only заготовку,
// которая копируется пользователю при первом обращении.
type Story struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	OwnerID   *uuid.UUID  `db:"owner_id" json:"owner_id,omitempty"`
	Title     string      `db:"title" json:"title"`
	Genre     string      `db:"genre" json:"genre"`
	Config    StoryConfig `db:"config" json:"config"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// IsTemplate сообщает, является ли история шаблоном (без владельца).
func (s *Story) IsTemplate() bool {
	return s.OwnerID == nil
}

// Turn - одна пара (реплика пользователя, ответ рассказчика).
type Turn struct {
	UserText  string `json:"user_text"`
	ModelText string `json:"model_text"`
}

// TurnLog - единственная строка лога ходов истории: упорядоченный массив ходов
// плюс последний continuation token провайдера генерации.
type TurnLog struct {
	StoryID        uuid.UUID `json:"story_id"`
	Turns          []Turn    `json:"turns"`
	LastResponseID string    `json:"last_response_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
