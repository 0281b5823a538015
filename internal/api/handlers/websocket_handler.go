package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/chat"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
)

// ClientIPKey is the websocket local holding the caller's IP, set before the upgrade.
const ClientIPKey = "client_ip"

type Limiter interface {
	Allow(key string) bool
}

type WebSocketHandler struct {
	chat    Answerer
	limiter Limiter
}

// NewWebSocketHandler answers questions over a socket. A nil limiter admits every question.
func NewWebSocketHandler(chat Answerer, limiter Limiter) *WebSocketHandler {
	return &WebSocketHandler{
		chat:    chat,
		limiter: limiter,
	}
}

type wsQuestion struct {
	Type string `json:"type"`
	chat.Question
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	clientIP, _ := c.Locals(ClientIPKey).(string)

	// Reading runs on its own goroutine so a disconnect cancels an answer in flight.
	msgs := make(chan wsQuestion)
	go func() {
		defer close(msgs)
		defer cancel()
		for {
			var msg wsQuestion
			if err := c.ReadJSON(&msg); err != nil {
				logger.Debug("WebSocket read ended", zap.Error(err))
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range msgs {
		if msg.Type != "question" {
			continue
		}

		if h.limiter != nil && !h.limiter.Allow(clientIP) {
			logger.Warn("WebSocket question rate limited", zap.String("ip", clientIP))
			h.sendError(c, "Rate limit exceeded. Please try again later.")
			continue
		}

		logger.Info("Processing WebSocket question", zap.String("article_title", msg.ArticleTitle))

		err := h.streamAnswer(ctx, c, msg.Question)
		if errors.Is(err, chat.ErrEmptyQuestion) {
			h.sendError(c, err.Error())
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			h.sendError(c, "Failed to answer question")
		}
	}
}

func (h *WebSocketHandler) streamAnswer(ctx context.Context, c *websocket.Conn, q chat.Question) error {
	if err := h.sendChunk(c, "status", "Thinking..."); err != nil {
		return err
	}

	ans, err := h.chat.Answer(ctx, q)
	if err != nil {
		return err
	}

	for _, chunk := range Chunks(ans.Answer) {
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": ans.ID,
		"answer":     ans.Answer,
		"latency_ms": ans.LatencyMS,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	err := c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
	if err != nil {
		logger.Debug("Failed to send WebSocket error", zap.Error(err))
	}
}

// Chunks splits text into word-sized pieces that concatenate back to the
// original with runs of spaces collapsed. Newlines are their own chunks.
func Chunks(text string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	for _, r := range text {
		switch r {
		case ' ':
			flush()
		case '\n':
			flush()
			words = append(words, "\n")
		default:
			current = append(current, r)
		}
	}
	flush()

	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w
		if w != "\n" && i < len(words)-1 && words[i+1] != "\n" {
			out[i] += " "
		}
	}
	return out
}
