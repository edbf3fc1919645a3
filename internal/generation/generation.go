// Package generation содержит клиенты внешних провайдеров генерации текста:
// Responses API с continuation token для ходов истории и
// OpenAI-совместимый chat completions для помощника полей.
package generation

// PromptRequest - запрос генерации хода: серверный prompt по идентификатору,
// переменные подстановки, новый ввод пользователя и, для продолжения сессии,
// continuation token предыдущего ответа.
type PromptRequest struct {
	PromptID           string
	Variables          map[string]string
	Input              string
	PreviousResponseID string
}

// PromptResponse - успешный ответ провайдера: сгенерированный текст
// и новый continuation token.
type PromptResponse struct {
	ID   string
	Text string
}
