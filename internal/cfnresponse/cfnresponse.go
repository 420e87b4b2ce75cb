package cfnresponse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/outofoffice3/common/logger"
)

const defaultTimeout = 10 * time.Second

// body is the cfn.Response document with Data always present, even when empty.
type body struct {
	*cfn.Response
	Data map[string]interface{} `json:"Data"`
}

type Sender interface {
	// PUT the response for event.  Transport failures are logged, never returned.
	Send(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]interface{}, reason string)
}

type _Sender struct {
	client        *http.Client
	logStreamName string
	logger        logger.Logger
}

type SenderInitConfig struct {
	HTTPClient *http.Client
	// used as the default reason and physical resource id
	LogStreamName string
	Logger        logger.Logger
}

func Init(config SenderInitConfig) (Sender, error) {
	// return errors
	if config.Logger == nil {
		return nil, errors.New("logger is not set")
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &_Sender{
		client:        client,
		logStreamName: config.LogStreamName,
		logger:        config.Logger,
	}, nil
}

// newResponse builds the response for event from cfn.NewResponse.
func (s *_Sender) newResponse(event cfn.Event, status cfn.StatusType, data map[string]interface{}, reason string) *cfn.Response {
	response := cfn.NewResponse(&event)
	response.Status = status
	response.Reason = reason
	if response.Reason == "" {
		response.Reason = "See the details in CloudWatch Log Stream: " + s.logStreamName
	}
	if response.PhysicalResourceID == "" {
		response.PhysicalResourceID = s.logStreamName
	}
	response.Data = data
	if response.Data == nil {
		response.Data = map[string]interface{}{}
	}
	return response
}

// Send PUTs the response itself instead of calling (*cfn.Response).Send so the request
// honours ctx and the client timeout.
func (s *_Sender) Send(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]interface{}, reason string) {
	if event.ResponseURL == "" {
		s.logger.Errorf("no response url on request [%s], cloudformation response not sent", event.RequestID)
		return
	}
	response := s.newResponse(event, status, data, reason)
	payload, err := json.Marshal(body{Response: response, Data: response.Data})
	if err != nil {
		s.logger.Errorf("failed to encode cloudformation response : [%v]", err)
		return
	}
	s.logger.Debugf("cloudformation response body : [%s]", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, event.ResponseURL, bytes.NewReader(payload))
	if err != nil {
		s.logger.Errorf("failed to build cloudformation response request : [%v]", err)
		return
	}
	// the presigned url is signed with an empty content type
	req.Header.Set("Content-Type", "")
	req.ContentLength = int64(len(payload))

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Errorf("failed to send cloudformation response : [%v]", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		s.logger.Errorf("cloudformation response rejected with status [%s]", resp.Status)
		return
	}
	s.logger.Infof("cloudformation response [%s] sent for request [%s]", status, event.RequestID)
}
