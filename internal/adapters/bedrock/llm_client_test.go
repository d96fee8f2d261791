package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
	"github.com/mikey/inbox-sentry/internal/utils"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newClient(invoker *fakeInvoker, modelID string) *BedrockClient {
	return NewBedrockClient(invoker, modelID, 200, 0.1, 0.9, 4096, zap.NewNop(), utils.NewTextProcessor(nil))
}

func TestClassifyModelFamilies(t *testing.T) {
	tests := []struct {
		modelID   string
		body      string
		promptKey string
	}{
		{"anthropic.claude-v2", `{"completion":" {\"verdict\":\"PHISHING\",\"score\":0.9}"}`, "prompt"},
		{"amazon.titan-text-express-v1", `{"results":[{"outputText":"{\"verdict\":\"PHISHING\",\"score\":0.9}"}]}`, "inputText"},
		{"meta.llama3", `{"text":"{\"verdict\":\"PHISHING\",\"score\":0.9}"}`, "prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			invoker := &fakeInvoker{body: tt.body}

			res, err := newClient(invoker, tt.modelID).Classify(context.Background(), core.ClassificationRequest{Subject: "Hi"})

			require.NoError(t, err)
			assert.Equal(t, "PHISHING", res.Verdict)
			assert.Equal(t, ProviderName, res.Provider)

			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(invoker.input.Body, &payload))
			assert.Contains(t, payload[tt.promptKey], "Subject: Hi")
			assert.Equal(t, tt.modelID, *invoker.input.ModelId)
		})
	}
}

func TestClassifyTitanEmpty(t *testing.T) {
	_, err := newClient(&fakeInvoker{body: `{"results":[]}`}, "amazon.titan-text").Classify(context.Background(), core.ClassificationRequest{})

	assert.ErrorContains(t, err, "empty response")
}

func TestClassifyInvokeError(t *testing.T) {
	_, err := newClient(&fakeInvoker{err: errors.New("throttled")}, "anthropic.claude-v2").Classify(context.Background(), core.ClassificationRequest{})

	assert.ErrorContains(t, err, "throttled")
}
