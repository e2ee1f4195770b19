package awslambda_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a69/fnkit.go/function"
	"github.com/a69/fnkit.go/transport/awslambda"
)

type record struct {
	Value string `json:"value"`
}

func kinesisEvent(data ...string) events.KinesisEvent {
	var ev events.KinesisEvent
	for i, d := range data {
		ev.Records = append(ev.Records, events.KinesisEventRecord{
			AwsRegion:      "eu-west-1",
			EventID:        "shardId-000:" + d,
			EventSourceArn: "arn:aws:kinesis:eu-west-1:123:stream/s",
			Kinesis: events.KinesisRecord{
				Data:           []byte(d),
				PartitionKey:   "pk",
				SequenceNumber: strings.Repeat("1", i+1),
			},
		})
	}
	return ev
}

func TestKinesisConsumerPerRecord(t *testing.T) {
	var buf bytes.Buffer
	var got []function.Message[record]
	srv := awslambda.NewKinesis(pipeline("consume", func(m function.Message[record]) {
		got = append(got, m)
	}), log.NewLogfmtLogger(&buf))

	_, err := srv.Serve(context.Background(), kinesisEvent(`{"value":"a"}`, `{"value":"b"}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Payload.Value)
	assert.Equal(t, "b", got[1].Payload.Value)
	assert.Equal(t, "pk", got[0].Headers.Get("partitionKey"))
	assert.Equal(t, "11", got[1].Headers.Get("sequenceNumber"))
	assert.Equal(t, "eu-west-1", got[0].Headers.Get("awsRegion"))
	assert.Empty(t, buf.String())
}

func TestKinesisNativeEvent(t *testing.T) {
	var buf bytes.Buffer
	srv := awslambda.NewKinesis(pipeline("count", func(ev events.KinesisEvent) int {
		return len(ev.Records)
	}), log.NewLogfmtLogger(&buf))

	_, err := srv.Serve(context.Background(), kinesisEvent("a", "b", "c"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Dropping background function result: 3")
}

func TestKinesisResultsAreNotFlattened(t *testing.T) {
	var buf bytes.Buffer
	srv := awslambda.NewKinesis(pipeline("upper", strings.ToUpper), log.NewLogfmtLogger(&buf))

	_, err := srv.Serve(context.Background(), kinesisEvent("a"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Dropping background function result: [\"A\"]`)
}

func TestKinesisEmptyRecordIsEmpty(t *testing.T) {
	req, err := awslambda.DecodeKinesisEvent(context.Background(), kinesisEvent("", "x"))
	require.NoError(t, err)
	require.Len(t, req.Payloads, 2)
	assert.Equal(t, function.Empty, req.Payloads[0].Body)
	assert.Equal(t, "x", req.Payloads[1].Body)

	var got []record
	srv := awslambda.NewKinesis(pipeline("consume", func(r record) { got = append(got, r) }), log.NewNopLogger())
	_, err = srv.Serve(context.Background(), kinesisEvent(""))
	require.NoError(t, err)
	assert.Equal(t, []record{{}}, got)
}

func TestSQS(t *testing.T) {
	var got function.Headers
	var payload record
	srv := awslambda.NewSQS(pipeline("consume", func(m function.Message[record]) {
		got, payload = m.Headers, m.Payload
	}), log.NewNopLogger())

	tenant := "acme"
	_, err := srv.Serve(context.Background(), events.SQSEvent{Records: []events.SQSMessage{{
		MessageId:      "m-1",
		EventSourceARN: "arn:aws:sqs:eu-west-1:123:q",
		Body:           `{"value":"foo"}`,
		MessageAttributes: map[string]events.SQSMessageAttribute{
			"tenant": {StringValue: &tenant, DataType: "String"},
			"blob":   {BinaryValue: []byte{1}, DataType: "Binary"},
		},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "foo", payload.Value)
	assert.Equal(t, "m-1", got.Get("messageId"))
	assert.Equal(t, "acme", got.Get("tenant"))
	assert.Equal(t, "arn:aws:sqs:eu-west-1:123:q", got.Get("eventSourceARN"))
	assert.Empty(t, got.Values("blob"))
}

func TestSQSFailureIsReturned(t *testing.T) {
	srv := awslambda.NewSQS(pipeline("strict", func(record) {}), log.NewNopLogger())
	_, err := srv.Serve(context.Background(), events.SQSEvent{Records: []events.SQSMessage{{Body: "{"}}})
	assert.Error(t, err)
}
