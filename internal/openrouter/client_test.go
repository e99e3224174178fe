package openrouter

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := NewClient(Config{APIKey: "or-key", BaseURL: baseURL}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClassify_ReturnsContent(t *testing.T) {
	client := setupClient(t, "https://router.test/v1")

	httpmock.RegisterResponder(http.MethodPost, "https://router.test/v1/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer or-key", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK,
				"{\"choices\":[{\"message\":{\"role\":\"assistant\",\"content\":\"```json\\n{}\\n```\"}}]}"), nil
		})

	content, err := client.Classify(context.Background(), "Aapka KYC pending hai")
	require.NoError(t, err)
	assert.Equal(t, "```json\n{}\n```", content)
}

func TestClassify_ErrorInBody(t *testing.T) {
	client := setupClient(t, "")

	httpmock.RegisterResponder(http.MethodPost, DefaultBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, `{"error":{"message":"provider overloaded","code":502}}`))

	_, err := client.Classify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider overloaded")
}

func TestClassify_NoChoices(t *testing.T) {
	client := setupClient(t, "")

	httpmock.RegisterResponder(http.MethodPost, DefaultBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, `{"choices":[]}`))

	_, err := client.Classify(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestClassify_HTTPStatus(t *testing.T) {
	client := setupClient(t, "")

	httpmock.RegisterResponder(http.MethodPost, DefaultBaseURL+"/chat/completions",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":{"message":"no auth"}}`))

	_, err := client.Classify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
