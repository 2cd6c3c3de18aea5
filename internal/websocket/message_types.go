package websocket

// Типы событий живой ленты владельца набора
const (
	// ANSWER_SUBMITTED сообщает о новой отправке ответов
	ANSWER_SUBMITTED = "ANSWER_SUBMITTED"

	// ANSWERS_CLEARED сообщает об удалении всех ответов набора
	ANSWERS_CLEARED = "ANSWERS_CLEARED"

	// RESULTS_REGRADED сообщает о пересчете оценок
	RESULTS_REGRADED = "RESULTS_REGRADED"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
