package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Reviewer клиент Ollama-совместимого chat API
type Reviewer struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

// NewReviewer создаёт клиент с щедрым таймаутом: локальные модели
// отвечают медленно
func NewReviewer(baseURL, model string) *Reviewer {
	return &Reviewer{
		BaseURL: baseURL,
		Model:   model,
		HTTP:    &http.Client{Timeout: 300 * time.Second},
	}
}

// Модель видит только акустические числа. Запрещаем ей додумывать
// характеристики человека (пол, возраст) из измерений — в промпте
// эти сведения есть только если пользователь сам указал референс.
const systemPrompt = `You are an assistant that reviews acoustic voice measurements for a voice training dashboard.
YOUR TASK: analyze the measurements and write a short structured review.
RESPONSE FORMAT (strict Markdown):
## Overview
[1-2 sentences on overall voice quality]
## Notable measurements
- [point per metric worth attention]
## Changes over time
- [only when several sessions are present]
## Suggestions
- [practice suggestions phrased as options, not prescriptions]
RULES:
- Base every statement only on the numbers provided.
- Never infer or guess the speaker's sex, gender or age from the measurements.
- Compare against a reference range only when one is named in the input.
- You are not a medical professional: no diagnoses, recommend a clinician for concerns.`

// ReviewTrend просит модель разобрать лонгитюдный тренд задачи.
// reference — необязательная метка референсного диапазона, заданная
// самим пользователем. При недоступной модели возвращается
// статистический фолбэк.
func (r *Reviewer) ReviewTrend(ctx context.Context, task, reference, serialized string) (string, error) {
	review, err := r.reviewWithOllama(ctx, task, reference, serialized)
	if err == nil && review != "" {
		return review, nil
	}
	log.Printf("Ollama not available: %v, using fallback...", err)
	return fallbackReview(task, serialized), nil
}

func (r *Reviewer) reviewWithOllama(ctx context.Context, task, reference, serialized string) (string, error) {
	if err := r.ping(ctx); err != nil {
		return "", err
	}

	text := serialized
	if len(text) > 16000 {
		text = text[:16000] + "\n...[trimmed]..."
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Elicitation task: %s\n", task)
	if reference != "" {
		fmt.Fprintf(&user, "Reference range named by the user: %s\n", reference)
	}
	user.WriteString("\nMeasurements:\n\n")
	user.WriteString(text)

	reqBody := map[string]interface{}{
		"model": r.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": user.String()},
		},
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.3,
			"num_predict": 2048,
		},
	}
	return r.callChat(ctx, reqBody)
}

// ping проверяет что Ollama вообще запущена, прежде чем ждать чат
func (r *Reviewer) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not running at %s", r.BaseURL)
	}
	resp.Body.Close()
	return nil
}

func (r *Reviewer) callChat(ctx context.Context, reqBody interface{}) (string, error) {
	jsonBody, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	json.Unmarshal(bodyBytes, &result)

	if result.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", result.Error)
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// fallbackReview собирает сухую сводку без модели: сколько метрик и
// сессий в наличии, плюс подсказка про Ollama
func fallbackReview(task, serialized string) string {
	var metrics int
	for _, line := range strings.Split(serialized, "\n") {
		if strings.Contains(line, "n=") || strings.Contains(line, ": ") {
			metrics++
		}
	}
	return fmt.Sprintf(`Measurement summary for %q:
- %d metric lines collected
- AI review unavailable; install Ollama for a full written analysis.
The raw numbers are shown in the tables above.`, task, metrics)
}

// ReviewRecord просит модель разобрать запись фич одной сессии
func (r *Reviewer) ReviewRecord(ctx context.Context, task, reference, serialized string) (string, error) {
	return r.ReviewTrend(ctx, task, reference, serialized)
}
