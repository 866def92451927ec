package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const writeWait = 10 * time.Second

// WSHandler runs one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option string `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type completedPayload struct {
	Session app.SessionView `json:"session"`
	Result  domain.Result   `json:"result"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tier := domain.DifficultyTier(r.URL.Query().Get("difficulty"))
	if _, err := domain.ClassLevels(tier); err != nil {
		http.Error(w, "missing or unknown difficulty", http.StatusBadRequest)
		return
	}
	language := requestLanguage(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view, err := h.service.Start(ctx, tier, language)
	if errors.Is(err, domain.ErrEmptyQuestionSet) {
		h.write(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{
			Code:    string(app.StateEmpty),
			Message: h.service.Locale(language).NoQuestions,
		}})
		return
	}
	if err != nil {
		h.write(conn, h.errorMessage(err))
		return
	}

	sessionID := view.ID
	defer func() {
		// Session may already be gone after completion.
		if err := h.service.Quit(context.WithoutCancel(ctx), sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			h.log.Warn("discard ws session", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	if !h.write(conn, outboundMessage[app.SessionView]{Type: "session", Payload: view}) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		var msg any
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == "" {
				msg = outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid select payload"}}
				break
			}
			view, err := h.service.SelectAnswer(ctx, sessionID, payload.Option)
			msg = h.sessionOrError("session", view, err)
		case "check":
			view, err := h.service.CheckAnswer(ctx, sessionID)
			msg = h.sessionOrError("checked", view, err)
		case "next":
			view, err := h.service.NextQuestion(ctx, sessionID)
			if err == nil && view.Outcome != nil {
				result := h.service.Result(view.Language, view.Outcome.Score, view.Outcome.Total)
				h.write(conn, outboundMessage[completedPayload]{Type: "completed", Payload: completedPayload{Session: view, Result: result}})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "quiz completed"),
					time.Now().Add(writeWait))
				return
			}
			msg = h.sessionOrError("session", view, err)
		default:
			msg = outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}

		if !h.write(conn, msg) {
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msg any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug("ws write error", zap.Error(err))
		return false
	}
	return true
}

func (h *WSHandler) sessionOrError(typ string, view app.SessionView, err error) any {
	if err != nil {
		return h.errorMessage(err)
	}
	return outboundMessage[app.SessionView]{Type: typ, Payload: view}
}

// errorMessage hides server-side failures the same way the JSON API does.
func (h *WSHandler) errorMessage(err error) outboundMessage[errorPayload] {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.Error("ws request failed", zap.Error(err))
		return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "internal error"}}
	}
	return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
