package gcf

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/go-kit/log"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

// PubSubEventType is the CloudEvent type Eventarc emits for Pub/Sub.
const PubSubEventType = "google.cloud.pubsub.topic.v1.messagePublished"

// MessagePublishedData is the data of a Pub/Sub CloudEvent.
type MessagePublishedData struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription"`
}

// NewCloudEvent returns a handler for CloudEvent functions, suitable for
// functions.CloudEvent.
func NewCloudEvent(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[cloudevents.Event, transport.Dropped]) *EventHandler[cloudevents.Event] {
	options = append([]transport.ServerOption[cloudevents.Event, transport.Dropped]{
		transport.ServerBefore[cloudevents.Event, transport.Dropped](func(ctx context.Context, ev cloudevents.Event) context.Context {
			return transport.ContextWithLogValues(ctx, "event_id", ev.ID(), "event_type", ev.Type())
		}),
	}, options...)
	return &EventHandler[cloudevents.Event]{
		server: transport.NewServer(p, DecodeCloudEvent, transport.EncodeDropped(logger), options...),
	}
}

// DecodeCloudEvent unpacks Pub/Sub events like DecodePubSubMessage, adding
// a subscription header. Other events pass their data as the payload with
// the CloudEvent attributes as headers.
func DecodeCloudEvent(ctx context.Context, ev cloudevents.Event) (transport.Request, error) {
	if ev.Type() != PubSubEventType {
		body, err := transport.JSONBody(ev.Data())
		if err != nil {
			return transport.Request{}, fmt.Errorf("cloudevent %s: %w", ev.ID(), err)
		}
		headers := function.Headers{}
		headers.Set("ce-id", ev.ID())
		headers.Set("ce-source", ev.Source())
		headers.Set("ce-type", ev.Type())
		if s := ev.Subject(); s != "" {
			headers.Set("ce-subject", s)
		}
		return transport.Request{
			Payloads: []transport.Payload{{Body: body, Headers: headers}},
			Native:   ev,
		}, nil
	}

	var data MessagePublishedData
	if err := ev.DataAs(&data); err != nil {
		return transport.Request{}, fmt.Errorf("cloudevent %s: %w", ev.ID(), err)
	}
	if data.Message.MessageID == "" {
		data.Message.MessageID = ev.ID()
	}
	if data.Message.PublishTime == "" && !ev.Time().IsZero() {
		data.Message.PublishTime = ev.Time().UTC().Format(time.RFC3339Nano)
	}

	req, err := decodeMessage(ctx, data.Message, true)
	if err != nil {
		return transport.Request{}, err
	}
	if data.Subscription != "" {
		req.Payloads[0].Headers.Set("subscription", data.Subscription)
	}
	req.Native = ev
	return req, nil
}
