package api

import (
	"voicelab/trend"
)

// Message структура сообщений WebSocket и gRPC control канала.
// Один тип на оба направления: запросы заполняют параметры,
// ответы — поля результатов.
type Message struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"` // base64 аудио в запросах

	// Login
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	// Адресация записи
	PID  string `json:"pid,omitempty"`
	Date string `json:"date,omitempty"` // YYYY-MM-DD
	Task string `json:"task,omitempty"`

	// Параметры анализа и ревью
	Reference string  `json:"reference,omitempty"` // референсный диапазон, заданный пользователем
	Start     float64 `json:"start,omitempty"`     // сегмент, секунды
	End       float64 `json:"end,omitempty"`

	// Ответы
	Tasks         []string            `json:"tasks,omitempty"`
	Features      []FeatureValue      `json:"features,omitempty"`
	Plots         map[string]string   `json:"plots,omitempty"` // имя -> base64 PNG
	Table         *trend.TrendTable   `json:"table,omitempty"`
	Summaries     []trend.TrendSummary `json:"summaries,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	Audio         map[string]string   `json:"audio,omitempty"` // метка сессии -> id аудио
	Review        string              `json:"review,omitempty"`
	FolderID      string              `json:"folderId,omitempty"`
	FileID        string              `json:"fileId,omitempty"`
	IsNew         bool                `json:"isNew,omitempty"`
	AlreadyExists bool                `json:"alreadyExists,omitempty"`
	Error         string              `json:"error,omitempty"` // текст ошибки в ответах type=error
}

// FeatureValue фича в том виде в котором её показывает дашборд:
// значение уже отформатировано (число с фиксированной точностью
// или плейсхолдер)
type FeatureValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
