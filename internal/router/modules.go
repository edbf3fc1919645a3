package router

import (
	"regexp"
	"strings"
)

// greetingModule отвечает на приветствия.
type greetingModule struct{}

func (greetingModule) Name() string { return "greeting" }

func (greetingModule) Score(req Request) float64 {
	txt := strings.ToLower(req.Message)
	for _, w := range []string{"привет", "здрав", "hello", "hi"} {
		if strings.Contains(txt, w) {
			return 1.0
		}
	}
	return 0.0
}

func (greetingModule) Run(req Request) string {
	return "Принято. Вы в Сториграде. Кратко опишите, что хотите сделать в мире истории."
}

// loreModule реагирует на вопросы о мире и сеттинге.
type loreModule struct{}

var loreRe = regexp.MustCompile(`(мир|локаци|персонаж|сеттинг)`)

func (loreModule) Name() string { return "lore" }

func (loreModule) Score(req Request) float64 {
	if loreRe.MatchString(strings.ToLower(req.Message)) {
		return 1.0
	}
	return 0.0
}

func (loreModule) Run(req Request) string {
	return "Опишите локацию, время, цель. Я предложу три стартовых сцены."
}

// actionModule распознает игровые действия.
type actionModule struct{}

func (actionModule) Name() string { return "action" }

func (actionModule) Score(req Request) float64 {
	txt := strings.ToLower(req.Message)
	for _, w := range []string{"идти", "атак", "взять", "осмотреть", "open", "go"} {
		if strings.Contains(txt, w) {
			return 0.8
		}
	}
	return 0.0
}

func (actionModule) Run(req Request) string {
	return "Действие принято. Сформирую ответ ведущего и последствия."
}

// fallbackModule всегда принимает запрос и замыкает пайплайн.
type fallbackModule struct{}

func (fallbackModule) Name() string { return FallbackName }

func (fallbackModule) Score(req Request) float64 {
	return 1.0 // always available
}

func (fallbackModule) Run(req Request) string {
	return "Опишите цель. Доступны: создание мира, выбор роли, действие."
}

// DefaultModules возвращает модули в порядке приоритета; fallback всегда последний.
func DefaultModules() []Module {
	return []Module{
		greetingModule{},
		loreModule{},
		actionModule{},
		fallbackModule{},
	}
}
