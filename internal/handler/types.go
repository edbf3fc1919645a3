package handler

import (
	"storigrad-server/internal/models"
	"storigrad-server/internal/router"
)

// --- Request Structs ---

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Username string `json:"username" binding:"required"`
}

type createStoryRequest struct {
	Title  string             `json:"title" binding:"required"`
	Genre  string             `json:"genre"`
	Config models.StoryConfig `json:"config"`
}

// updateStoryRequest - частичное обновление: отсутствующее поле не меняется.
type updateStoryRequest struct {
	Title  *string             `json:"title"`
	Genre  *string             `json:"genre"`
	Config *models.StoryConfig `json:"config"`
}

type stepRequest struct {
	UserInput string `json:"user_input" binding:"required"`
	Mode      string `json:"mode"`
}

type inferRequest struct {
	Message string         `json:"message" binding:"required"`
	Context []string       `json:"context"`
	Meta    map[string]any `json:"meta"`
}

type assistRequest struct {
	Prompt      string              `json:"prompt" binding:"required"`
	FieldType   string              `json:"field_type"`
	StoryConfig *models.StoryConfig `json:"story_config"`
}

// --- Response Structs ---

type profileResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Plan         string `json:"plan"`
	StoriesCount int    `json:"stories_count"`
}

type stepResponse struct {
	Reply string `json:"reply"`
}

type inferResponse struct {
	Reply     string             `json:"reply"`
	Modules   []string           `json:"modules"`
	Trace     []router.TraceItem `json:"trace"`
	LatencyMS int64              `json:"latency_ms"`
}

type assistResponse struct {
	Value string `json:"value"`
}

type uploadImageResponse struct {
	URL string `json:"url"`
}
