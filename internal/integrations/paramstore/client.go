package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal slice of the AWS SSM client used here. *ssm.Client
// satisfies it; tests substitute a fake.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter hands out one named credential or configuration value. The API
// clients (geocoder, registry, text generation) depend on this interface so
// keys can come from SSM in Lambda, from the environment locally, and from
// fixtures in tests.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads parameters from AWS Systems Manager Parameter Store with
// decryption enabled, so SecureString credentials work transparently.
type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// Static is a Getter that returns the same fixed value for every name.
// Used by the local server entrypoint, where credentials come straight from
// the environment rather than SSM.
type Static string

func (s Static) GetParameter(_ context.Context, _ string) (string, error) {
	if s == "" {
		return "", errors.New("paramstore: static value is empty")
	}
	return string(s), nil
}
