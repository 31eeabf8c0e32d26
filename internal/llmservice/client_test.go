package llmservice

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	response string
	err      error
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return m.response, m.err
}

func TestCompleteSuccess(t *testing.T) {
	b := &llmBackend{model: &fakeModel{response: `{"status":"success"}`}, name: "fake"}
	out, err := b.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, `{"status":"success"}`, out)
}

func TestCompleteClassifiesErrors(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		unreachable bool
	}{
		{
			name: "connection refused",
			err: &url.Error{
				Op:  "Post",
				URL: "http://localhost:11434/api/chat",
				Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			},
			unreachable: true,
		},
		{
			name:        "rejected api key",
			err:         errors.New("API returned unexpected status code: 401 Invalid API Key"),
			unreachable: false,
		},
		{
			name:        "context deadline",
			err:         context.DeadlineExceeded,
			unreachable: false,
		},
		{
			name:        "deadline wrapped by http client",
			err:         &url.Error{Op: "Post", URL: "http://localhost:11434/api/chat", Err: context.DeadlineExceeded},
			unreachable: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &llmBackend{model: &fakeModel{err: tc.err}, name: "fake"}
			_, err := b.Complete(context.Background(), "prompt")
			require.Error(t, err)
			if tc.unreachable {
				require.ErrorIs(t, err, ErrBackendUnreachable)
			} else {
				require.NotErrorIs(t, err, ErrBackendUnreachable)
			}
		})
	}
}
