package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"question-extract/internal/config"
	"question-extract/internal/models"
)

// stubBackend replays a scripted sequence of responses.
type stubBackend struct {
	calls     int
	responses []func() (string, error)
}

func (s *stubBackend) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i]()
}

func alwaysErr(err error) *stubBackend {
	return &stubBackend{responses: []func() (string, error){
		func() (string, error) { return "", err },
	}}
}

func testCfg(maxRetries int) config.BackendConfig {
	return config.BackendConfig{MaxRetries: maxRetries, RetryDelaySeconds: 0}
}

func testReq() models.CompletionRequest {
	return models.CompletionRequest{Chunk: models.TextChunk{SourceID: "doc", SequenceIndex: 1}}
}

func TestExecuteSuccess(t *testing.T) {
	stub := &stubBackend{responses: []func() (string, error){
		func() (string, error) { return `{"questions":[]}`, nil },
	}}
	c := NewClient(stub, testCfg(3))

	res := c.Execute(context.Background(), testReq())
	assert.False(t, res.Failed())
	assert.Equal(t, `{"questions":[]}`, res.RawText)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, int64(1), c.Attempts())
	assert.Equal(t, int64(0), c.Failures())
}

func TestExecuteRetryBound(t *testing.T) {
	stub := alwaysErr(&Error{Kind: KindTimeout, Message: "deadline exceeded"})
	c := NewClient(stub, testCfg(3))

	res := c.Execute(context.Background(), testReq())
	require.True(t, res.Failed())
	assert.Equal(t, models.BackendUnavailable, res.Failure)
	// MaxRetries retries on top of the initial attempt
	assert.Equal(t, 4, stub.calls)
	assert.Equal(t, int64(1), c.Failures())
}

func TestExecuteRecoversAfterTransientErrors(t *testing.T) {
	fail := func() (string, error) { return "", &Error{Kind: KindUnknown, Message: "connection reset"} }
	ok := func() (string, error) { return "recovered", nil }
	stub := &stubBackend{responses: []func() (string, error){fail, fail, ok}}
	c := NewClient(stub, testCfg(3))

	res := c.Execute(context.Background(), testReq())
	assert.False(t, res.Failed())
	assert.Equal(t, "recovered", res.RawText)
	assert.Equal(t, 3, stub.calls)
}

func TestExecuteNoRetryOnAuthFailure(t *testing.T) {
	stub := alwaysErr(&openai.APIError{HTTPStatusCode: 401, Message: "bad key"})
	c := NewClient(stub, testCfg(3))

	res := c.Execute(context.Background(), testReq())
	require.True(t, res.Failed())
	assert.Equal(t, models.BackendRejected, res.Failure)
	assert.Contains(t, res.Detail, "auth_failed")
	assert.Equal(t, 1, stub.calls)
}

func TestExecuteNoRetryOnMalformedRequest(t *testing.T) {
	stub := alwaysErr(&openai.APIError{HTTPStatusCode: 400, Message: "bad model"})
	c := NewClient(stub, testCfg(3))

	res := c.Execute(context.Background(), testReq())
	require.True(t, res.Failed())
	assert.Equal(t, models.BackendRejected, res.Failure)
	assert.Equal(t, 1, stub.calls)
}

func TestExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := alwaysErr(&Error{Kind: KindTimeout, Message: "never reached"})
	c := NewClient(stub, testCfg(3))

	res := c.Execute(ctx, testReq())
	require.True(t, res.Failed())
	assert.Equal(t, models.Cancelled, res.Failure)
	assert.Equal(t, 0, stub.calls)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{&openai.APIError{HTTPStatusCode: 429, Message: "rate"}, KindRateLimited},
		{&openai.APIError{HTTPStatusCode: 401, Message: "auth"}, KindAuthFailed},
		{&openai.APIError{HTTPStatusCode: 403, Message: "auth"}, KindAuthFailed},
		{&openai.APIError{HTTPStatusCode: 400, Message: "bad"}, KindMalformedRequest},
		{&openai.APIError{HTTPStatusCode: 404, Message: "bad"}, KindMalformedRequest},
		{&openai.APIError{HTTPStatusCode: 422, Message: "bad"}, KindMalformedRequest},
		{&openai.APIError{HTTPStatusCode: 500, Message: "boom"}, KindUnknown},
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("wrapping: %w", context.DeadlineExceeded), KindTimeout},
		{errors.New("connection reset"), KindUnknown},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		assert.Equal(t, tc.kind, got.Kind, "error %v", tc.err)
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := &Error{Kind: KindRateLimited, Message: "x"}
	assert.Same(t, orig, Classify(orig))
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, (&Error{Kind: KindTimeout}).Retryable())
	assert.True(t, (&Error{Kind: KindRateLimited}).Retryable())
	assert.True(t, (&Error{Kind: KindUnknown}).Retryable())
	assert.False(t, (&Error{Kind: KindAuthFailed}).Retryable())
	assert.False(t, (&Error{Kind: KindMalformedRequest}).Retryable())
}
