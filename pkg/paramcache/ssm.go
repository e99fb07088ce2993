package paramcache

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
)

// ssmAPI is the slice of the SSM client this store actually uses, kept
// narrow so tests can substitute a fake for the SDK client.
type ssmAPI interface {
	GetParameters(ctx context.Context,
		params *ssm.GetParametersInput,
		optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// SSMStore is a ParameterStore backed by AWS Systems Manager Parameter
// Store, the remote store whose 10-name batch limit
// MaxParametersPerRequest mirrors.
type SSMStore struct {
	client ssmAPI
	logger zerolog.Logger
}

// NewSSMStore builds an SSMStore from an AWS config. The config is passed
// through to the SDK client constructor unmodified.
func NewSSMStore(cfg aws.Config, logger zerolog.Logger) *SSMStore {
	return NewSSMStoreFromClient(ssm.NewFromConfig(cfg), logger)
}

// NewSSMStoreFromClient wraps an already-constructed SSM client.
func NewSSMStoreFromClient(client ssmAPI, logger zerolog.Logger) *SSMStore {
	return &SSMStore{
		client: client,
		logger: logger.With().Str("component", "SSMStore").Logger(),
	}
}

// GetParameters issues one GetParameters call against SSM. Names SSM rejects
// as invalid are logged and omitted from the response; per the
// ParameterStore contract they are not an error.
func (s *SSMStore) GetParameters(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	out, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          req.Names,
		WithDecryption: aws.Bool(req.WithDecryption),
	})
	if err != nil {
		return BatchResponse{}, fmt.Errorf("ssm get parameters: %w", err)
	}

	if len(out.InvalidParameters) > 0 {
		s.logger.Warn().
			Strs("invalid_parameters", out.InvalidParameters).
			Msg("SSM reported unresolvable parameter names.")
	}

	resp := BatchResponse{Parameters: make([]Parameter, 0, len(out.Parameters))}
	for _, p := range out.Parameters {
		resp.Parameters = append(resp.Parameters, Parameter{
			Name:  aws.ToString(p.Name),
			Value: aws.ToString(p.Value),
			Type:  string(p.Type),
		})
	}
	return resp, nil
}
