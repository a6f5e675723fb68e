package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/awscfg"
)

const DefaultTitanModel = "amazon.titan-embed-text-v2:0"

// TitanInvoker is the subset of the Bedrock runtime client used here.
type TitanInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type TitanConfig struct {
	ModelID   string
	Dimension int
	AWS       awscfg.Settings
}

// TitanBackend calls Amazon Titan text embeddings through Bedrock. The model
// is asked for a normalized vector of the configured dimension.
type TitanBackend struct {
	config TitanConfig
	client TitanInvoker
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func NewTitanBackend(ctx context.Context, config TitanConfig) (*TitanBackend, error) {
	awsConfig, err := awscfg.Load(ctx, config.AWS)
	if err != nil {
		return nil, err
	}
	return NewTitanBackendWithClient(bedrockruntime.NewFromConfig(awsConfig), config)
}

func NewTitanBackendWithClient(client TitanInvoker, config TitanConfig) (*TitanBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("titan: client is nil")
	}
	if config.ModelID == "" {
		config.ModelID = DefaultTitanModel
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("titan: dimension must be positive, got %d", config.Dimension)
	}
	return &TitanBackend{config: config, client: client}, nil
}

func (t *TitanBackend) Name() string { return "titan" }

func (t *TitanBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{
		InputText:  text,
		Dimensions: t.config.Dimension,
		Normalize:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("titan: encode request: %w", err)
	}

	out, err := t.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(t.config.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("titan: invoke %s: %w", t.config.ModelID, err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("titan: decode response: %w", err)
	}
	return resp.Embedding, nil
}
