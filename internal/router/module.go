package router

// Request - свободный текстовый запрос к пайплайну классификации.
type Request struct {
	Message string         `json:"message"`
	Context []string       `json:"context,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// TraceItem фиксирует решение одного модуля при обработке запроса.
type TraceItem struct {
	Module   string  `json:"module"`
	Accepted bool    `json:"accepted"`
	Output   string  `json:"output"`
	Score    float64 `json:"score"`
}

// DefaultThreshold - порог уверенности, начиная с которого модуль
// считается принявшим запрос.
const DefaultThreshold = 0.5

// FallbackName - имя резервного модуля; он всегда принимает запрос,
// но не останавливает перебор остальных.
const FallbackName = "fallback"

// Module - один модуль маршрутизации: пара функций score/run без состояния.
type Module interface {
	Name() string
	// Score возвращает уверенность в [0,1], что модуль должен обработать запрос.
	Score(req Request) float64
	// Run формирует вклад модуля в ответ.
	Run(req Request) string
}

// decide применяет порог к оценке модуля.
func decide(m Module, req Request, threshold float64) (bool, float64) {
	s := m.Score(req)
	return s >= threshold, s
}
