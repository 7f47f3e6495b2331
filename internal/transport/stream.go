package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"cityhop/internal/fare"
	"cityhop/internal/geo"
	"cityhop/internal/hub"
	"cityhop/internal/quote"
)

// streamDeadline bounds how long one quote_request waits for the
// aggregator's Done event, comfortably above the producer timeout
// (§5's 20s recommended upper bound) so a legitimately slow fan-out
// is not cut off early.
const streamDeadline = 25 * time.Second

// QuoteStream serves GET /api/quotes/stream: after an initial
// quote_request message, it forwards one "quote" message per FareQuote
// as each producer in the aggregator's fan-out completes, then "done". Purely additive
// to the synchronous /api/compare-fares contract (§6/§11) — the
// aggregator call underneath is the same Compare method, just
// observed incrementally via Aggregator.Subscribe instead of awaited
// in full.
type QuoteStream struct {
	aggregator *quote.Aggregator
	classes    []fare.VehicleClass
	hub        *hub.Hub
	logger     *slog.Logger
}

func NewQuoteStream(agg *quote.Aggregator, h *hub.Hub, logger *slog.Logger) *QuoteStream {
	return &QuoteStream{
		aggregator: agg,
		classes:    fare.AllClasses,
		hub:        h,
		logger:     logger.With("component", "quote_stream"),
	}
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type quoteRequestPayload struct {
	Pickup wireCoordinate `json:"pickup"`
	Drop   wireCoordinate `json:"drop"`
}

func (qs *QuoteStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		qs.logger.Error("websocket accept failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := hub.NewClient(clientID, 64)
	qs.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go qs.writeLoop(ctx, conn, client)
	qs.readLoop(ctx, conn, client)
}

func (qs *QuoteStream) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	defer func() {
		qs.hub.Unregister(client)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				qs.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != "quote_request" {
			continue
		}

		var payload quoteRequestPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			continue
		}
		pickup, ok1 := payload.Pickup.toGeo()
		drop, ok2 := payload.Drop.toGeo()
		if !ok1 || !ok2 {
			continue
		}

		qs.runRequest(ctx, client, pickup, drop)
	}
}

// runRequest subscribes to the aggregator's event stream, launches
// Compare, and forwards only this request's events to client.Send
// until the aggregator marks it Done. It does not also race on
// Compare's own return: the Done event is always published before
// Compare returns, so waiting on it alone is sufficient and avoids a
// select race that could drop the final "done" message.
func (qs *QuoteStream) runRequest(ctx context.Context, client *hub.Client, pickup, drop geo.Coordinate) {
	requestID := uuid.New().String()
	events, unsubscribe := qs.aggregator.Subscribe()
	defer unsubscribe()

	go qs.aggregator.Compare(ctx, requestID, pickup, drop, qs.classes)

	deadline := time.NewTimer(streamDeadline)
	defer deadline.Stop()

	streamed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			qs.logger.Warn("quote stream timed out waiting for done", "request_id", requestID)
			return
		case evt := <-events:
			if evt.RequestID != requestID {
				continue
			}
			// The Done event repeats the merged list; its quotes are sent
			// only when no per-producer event came first (a cache hit
			// publishes Done alone).
			if !evt.Done || !streamed {
				for _, q := range evt.Quotes {
					qs.sendJSON(client, "quote", toWireEstimate(q))
				}
			}
			if evt.Done {
				qs.sendJSON(client, "done", nil)
				return
			}
			streamed = true
		}
	}
}

func (qs *QuoteStream) sendJSON(client *hub.Client, msgType string, payload interface{}) {
	data, err := json.Marshal(wsMessage{Type: msgType, Payload: marshalOrNull(payload)})
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
		qs.logger.Debug("client send buffer full", "client_id", client.ID)
	}
}

func marshalOrNull(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func (qs *QuoteStream) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
