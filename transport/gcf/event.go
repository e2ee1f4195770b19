package gcf

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/functions/metadata"
	"github.com/go-kit/log"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

// EventHandler serves an event-triggered function. Results are logged and
// dropped; errors are returned to the host, which is its failure channel.
type EventHandler[EV any] struct {
	server *transport.Server[EV, transport.Dropped]
}

// Handle has the signature funcframework expects of event functions.
func (h *EventHandler[EV]) Handle(ctx context.Context, ev EV) error {
	_, err := h.server.Serve(ctx, ev)
	return err
}

func newEventHandler[EV any](
	p *transport.Pipeline,
	logger log.Logger,
	dec transport.DecodeRequestFunc[EV],
	options []transport.ServerOption[EV, transport.Dropped],
) *EventHandler[EV] {
	options = append([]transport.ServerOption[EV, transport.Dropped]{
		transport.ServerBefore[EV, transport.Dropped](PopulateEventMetadata[EV]),
	}, options...)
	return &EventHandler[EV]{
		server: transport.NewServer(p, dec, transport.EncodeDropped(logger), options...),
	}
}

// PopulateEventMetadata adds the legacy event id and type, when the host
// supplied them, to the values logged for this invocation.
func PopulateEventMetadata[EV any](ctx context.Context, _ EV) context.Context {
	m, err := metadata.FromContext(ctx)
	if err != nil || m == nil {
		return ctx
	}
	return transport.ContextWithLogValues(ctx, "event_id", m.EventID, "event_type", m.EventType)
}

// PubSubMessage is the payload of a Pub/Sub triggered background function.
type PubSubMessage struct {
	Data        string            `json:"data"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// NewPubSub returns a handler for Pub/Sub background functions. The message
// data is base64-decoded.
func NewPubSub(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[PubSubMessage, transport.Dropped]) *EventHandler[PubSubMessage] {
	return newEventHandler(p, logger, DecodePubSubMessage, options)
}

// NewBackground is NewPubSub for payloads whose data is plain text.
func NewBackground(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[PubSubMessage, transport.Dropped]) *EventHandler[PubSubMessage] {
	return newEventHandler(p, logger, DecodeBackgroundMessage, options)
}

// DecodePubSubMessage decodes base64 message data. Headers are the message
// attributes plus messageId and publishTime; for legacy background functions
// those two come from the event metadata.
func DecodePubSubMessage(ctx context.Context, msg PubSubMessage) (transport.Request, error) {
	return decodeMessage(ctx, msg, true)
}

// DecodeBackgroundMessage is DecodePubSubMessage without base64 decoding.
func DecodeBackgroundMessage(ctx context.Context, msg PubSubMessage) (transport.Request, error) {
	return decodeMessage(ctx, msg, false)
}

func decodeMessage(ctx context.Context, msg PubSubMessage, b64 bool) (transport.Request, error) {
	var body any = function.Empty
	switch {
	case msg.Data == "":
	case b64:
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return transport.Request{}, fmt.Errorf("pubsub data: %w", err)
		}
		if len(data) > 0 {
			body = string(data)
		}
	default:
		body = msg.Data
	}

	if msg.MessageID == "" {
		if m, err := metadata.FromContext(ctx); err == nil && m != nil {
			msg.MessageID = m.EventID
			if msg.PublishTime == "" && !m.Timestamp.IsZero() {
				msg.PublishTime = m.Timestamp.UTC().Format(time.RFC3339Nano)
			}
		}
	}

	headers := transport.CollectHeaders(transport.Single(msg.Attributes))
	if msg.MessageID != "" {
		headers.Set("messageId", msg.MessageID)
	}
	if msg.PublishTime != "" {
		headers.Set("publishTime", msg.PublishTime)
	}
	return transport.Request{
		Payloads: []transport.Payload{{Body: body, Headers: headers}},
		Native:   msg,
	}, nil
}

// NewRawBackground returns a handler for background functions whose event
// is passed as raw JSON and decoded straight into the function's input type.
func NewRawBackground(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[json.RawMessage, transport.Dropped]) *EventHandler[json.RawMessage] {
	return newEventHandler(p, logger, DecodeRawEvent, options)
}

// DecodeRawEvent passes the event JSON on without headers.
func DecodeRawEvent(_ context.Context, raw json.RawMessage) (transport.Request, error) {
	body, err := transport.JSONBody(raw)
	if err != nil {
		return transport.Request{}, err
	}
	return transport.Request{Payloads: []transport.Payload{{Body: body}}}, nil
}
