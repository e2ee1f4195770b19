package awslambda

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-kit/log"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport"
)

// KinesisServer serves Kinesis stream batches.
type KinesisServer = transport.Server[events.KinesisEvent, transport.Dropped]

// NewKinesis returns a server for Kinesis event source mappings. Each
// record is one input; results are logged and dropped. A function declaring
// events.KinesisEvent as its input receives the batch unchanged.
func NewKinesis(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[events.KinesisEvent, transport.Dropped]) *KinesisServer {
	options = append([]transport.ServerOption[events.KinesisEvent, transport.Dropped]{
		transport.ServerBefore[events.KinesisEvent, transport.Dropped](PopulateRequestID[events.KinesisEvent]),
	}, options...)
	return transport.NewServer(p, DecodeKinesisEvent, transport.EncodeDropped(logger), options...)
}

// DecodeKinesisEvent turns every record's data into a payload.
func DecodeKinesisEvent(_ context.Context, ev events.KinesisEvent) (transport.Request, error) {
	req := transport.Request{Collection: true, Native: ev}
	for _, rec := range ev.Records {
		headers := function.Headers{}
		headers.Set("partitionKey", rec.Kinesis.PartitionKey)
		headers.Set("sequenceNumber", rec.Kinesis.SequenceNumber)
		headers.Set("eventID", rec.EventID)
		headers.Set("eventSourceARN", rec.EventSourceArn)
		headers.Set("awsRegion", rec.AwsRegion)
		var body any = function.Empty
		if len(rec.Kinesis.Data) > 0 {
			body = string(rec.Kinesis.Data)
		}
		req.Payloads = append(req.Payloads, transport.Payload{Body: body, Headers: headers})
	}
	return req, nil
}

// SQSServer serves SQS batches.
type SQSServer = transport.Server[events.SQSEvent, transport.Dropped]

// NewSQS returns a server for SQS event source mappings. Each message is
// one input; results are logged and dropped.
func NewSQS(p *transport.Pipeline, logger log.Logger, options ...transport.ServerOption[events.SQSEvent, transport.Dropped]) *SQSServer {
	options = append([]transport.ServerOption[events.SQSEvent, transport.Dropped]{
		transport.ServerBefore[events.SQSEvent, transport.Dropped](PopulateRequestID[events.SQSEvent]),
	}, options...)
	return transport.NewServer(p, DecodeSQSEvent, transport.EncodeDropped(logger), options...)
}

// DecodeSQSEvent turns every message body into a payload. String and
// string-list message attributes become headers.
func DecodeSQSEvent(_ context.Context, ev events.SQSEvent) (transport.Request, error) {
	req := transport.Request{Collection: true, Native: ev}
	for _, msg := range ev.Records {
		attrs := map[string][]string{}
		for k, a := range msg.MessageAttributes {
			switch {
			case a.StringValue != nil:
				attrs[k] = []string{*a.StringValue}
			case len(a.StringListValues) > 0:
				attrs[k] = a.StringListValues
			}
		}
		headers := transport.CollectHeaders(attrs)
		headers.Set("messageId", msg.MessageId)
		headers.Set("eventSourceARN", msg.EventSourceARN)

		var body any = msg.Body
		if msg.Body == "" {
			body = function.Empty
		}
		req.Payloads = append(req.Payloads, transport.Payload{Body: body, Headers: headers})
	}
	return req, nil
}
