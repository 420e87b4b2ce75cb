package cfnresponse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/outofoffice3/common/logger"
	"github.com/stretchr/testify/assert"
)

type captured struct {
	method      string
	contentType string
	body        map[string]interface{}
	calls       int
}

func newServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.method = r.Method
		c.contentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		c.body = map[string]interface{}{}
		json.Unmarshal(data, &c.body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, c
}

func sampleEvent(url string) cfn.Event {
	return cfn.Event{
		RequestType:        cfn.RequestCreate,
		ResponseURL:        url,
		StackID:            "arn:aws:cloudformation:us-east-1:123456789012:stack/test/123",
		RequestID:          "unique-id",
		LogicalResourceID:  "TestResource",
		PhysicalResourceID: "test-resource-id",
	}
}

func newTestSender(t *testing.T) Sender {
	t.Helper()
	sender, err := Init(SenderInitConfig{
		LogStreamName: "test-log-stream",
		Logger:        logger.NewConsoleLogger(logger.LogLevelDebug),
	})
	assert.NoError(t, err)
	return sender
}

func TestSendSuccess(t *testing.T) {
	assertion := assert.New(t)
	server, c := newServer(t, http.StatusOK)
	sender := newTestSender(t)

	sender.Send(context.Background(), sampleEvent(server.URL), cfn.StatusSuccess, map[string]interface{}{"test": "data"}, "")

	assertion.Equal(1, c.calls)
	assertion.Equal(http.MethodPut, c.method)
	assertion.Equal("", c.contentType)
	assertion.Equal("SUCCESS", c.body["Status"])
	assertion.Equal("See the details in CloudWatch Log Stream: test-log-stream", c.body["Reason"])
	assertion.Equal("test-resource-id", c.body["PhysicalResourceId"])
	assertion.Equal("arn:aws:cloudformation:us-east-1:123456789012:stack/test/123", c.body["StackId"])
	assertion.Equal("unique-id", c.body["RequestId"])
	assertion.Equal("TestResource", c.body["LogicalResourceId"])
	assertion.Equal(map[string]interface{}{"test": "data"}, c.body["Data"])
}

func TestSendFailure(t *testing.T) {
	assertion := assert.New(t)
	server, c := newServer(t, http.StatusOK)
	sender := newTestSender(t)

	event := sampleEvent(server.URL)
	event.PhysicalResourceID = ""
	sender.Send(context.Background(), event, cfn.StatusFailed, nil, "Test failure")

	assertion.Equal(1, c.calls)
	assertion.Equal("FAILED", c.body["Status"])
	assertion.Equal("Test failure", c.body["Reason"])
	// falls back to the log stream
	assertion.Equal("test-log-stream", c.body["PhysicalResourceId"])
	// Data is always present
	assertion.Contains(c.body, "Data")
	assertion.Equal(map[string]interface{}{}, c.body["Data"])
}

func TestSendSwallowsTransportErrors(t *testing.T) {
	assertion := assert.New(t)
	server, _ := newServer(t, http.StatusOK)
	url := server.URL
	server.Close()
	sender := newTestSender(t)

	assertion.NotPanics(func() {
		sender.Send(context.Background(), sampleEvent(url), cfn.StatusSuccess, nil, "")
	})

	// rejected by the endpoint
	rejecting, c := newServer(t, http.StatusForbidden)
	assertion.NotPanics(func() {
		sender.Send(context.Background(), sampleEvent(rejecting.URL), cfn.StatusSuccess, nil, "")
	})
	assertion.Equal(1, c.calls)

	// no url at all
	assertion.NotPanics(func() {
		sender.Send(context.Background(), sampleEvent(""), cfn.StatusSuccess, nil, "")
	})
	assertion.NotPanics(func() {
		sender.Send(context.Background(), sampleEvent("://bad-url"), cfn.StatusSuccess, nil, "")
	})
}

func TestResponseIsBuiltFromEvent(t *testing.T) {
	assertion := assert.New(t)
	sender := newTestSender(t).(*_Sender)

	event := sampleEvent("https://example.com/response")
	response := sender.newResponse(event, cfn.StatusSuccess, map[string]interface{}{"Outcome": "1"}, "")
	assertion.Equal(cfn.StatusSuccess, response.Status)
	assertion.Equal("unique-id", response.RequestID)
	assertion.Equal("TestResource", response.LogicalResourceID)
	assertion.Equal("arn:aws:cloudformation:us-east-1:123456789012:stack/test/123", response.StackID)
	assertion.Equal("test-resource-id", response.PhysicalResourceID)
	assertion.Equal("See the details in CloudWatch Log Stream: test-log-stream", response.Reason)

	data, err := json.Marshal(body{Response: response, Data: response.Data})
	assertion.NoError(err)
	var decoded map[string]interface{}
	assertion.NoError(json.Unmarshal(data, &decoded))
	assertion.Equal(map[string]interface{}{"Outcome": "1"}, decoded["Data"])
	assertion.NotContains(decoded, "NoEcho")
}

func TestInitRequiresLogger(t *testing.T) {
	assertion := assert.New(t)
	_, err := Init(SenderInitConfig{})
	assertion.Error(err)
}
