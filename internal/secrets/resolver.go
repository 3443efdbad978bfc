package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	perrors "github.com/meridianhq/portal-backend/internal/errors"
	"github.com/meridianhq/portal-backend/internal/logging"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client the
// resolver uses. Declared as an interface so tests can inject a mock.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Connection is the structured form of a database credential secret.
type Connection struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	DBName   string `json:"dbname"`
}

// URL renders the connection string for the given database, falling back to
// the secret's own dbname when dbName is empty.
func (c *Connection) URL(dbName string) string {
	if dbName == "" {
		dbName = c.DBName
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.Username, c.Password, c.Host, c.Port, dbName)
}

// Resolver resolves named credentials, preferring local environment
// overrides and falling back to the managed secret store. Values are cached
// for the life of the resolver.
type Resolver struct {
	region string
	client SecretsManagerAPI
	logger *zap.Logger
	masker *logging.Masker
	lookup func(string) (string, bool)

	mu    sync.Mutex
	cache map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient sets a custom Secrets Manager client (for testing).
func WithClient(client SecretsManagerAPI) Option {
	return func(r *Resolver) {
		r.client = client
	}
}

// WithLookup replaces the environment lookup (for testing).
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookup = lookup
	}
}

// NewResolver creates a resolver for the given deployment region. The region
// may be empty; it is only required once a secret actually has to be fetched
// from the store.
func NewResolver(region string, logger *zap.Logger, masker *logging.Masker, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		region: region,
		logger: logger,
		masker: masker,
		lookup: os.LookupEnv,
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the value of the named secret. The logical name "x-y" is
// first looked up as the environment variable "X_Y"; when absent the value
// is fetched from the secret store through the resource identifier in
// "X_Y_ARN".
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	if value, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return value, nil
	}
	r.mu.Unlock()

	r.logger.Debug("fetching secret value", zap.String("secret", name))

	value, err := r.resolve(ctx, name)
	if err != nil {
		return "", err
	}

	if r.masker != nil {
		r.masker.Add(value)
	}

	r.mu.Lock()
	r.cache[name] = value
	r.mu.Unlock()
	return value, nil
}

// ResolveConnection resolves the named secret and decodes it as a structured
// connection credential.
func (r *Resolver) ResolveConnection(ctx context.Context, name string) (*Connection, error) {
	raw, err := r.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	var conn Connection
	if err := json.Unmarshal([]byte(raw), &conn); err != nil {
		return nil, perrors.SecretResolutionError{Name: name, Err: fmt.Errorf("secret is not a structured value: %w", err)}
	}

	if r.masker != nil {
		r.masker.Add(conn.Password)
	}
	return &conn, nil
}

func (r *Resolver) resolve(ctx context.Context, name string) (string, error) {
	envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if value, ok := r.lookup(envName); ok {
		return value, nil
	}

	if r.region == "" {
		return "", perrors.ConfigurationError{
			Key:     "AWS_REGION",
			Message: fmt.Sprintf("deployment region not configured while resolving '%s'", name),
		}
	}

	arnName := envName + "_ARN"
	arn, ok := r.lookup(arnName)
	if !ok || arn == "" {
		return "", perrors.ConfigurationError{
			Key:     arnName,
			Message: "secret resource identifier not defined",
		}
	}

	r.logger.Info("fetching secret value from store", zap.String("secret", name))
	return r.fetch(ctx, name, arn)
}

func (r *Resolver) fetch(ctx context.Context, name, arn string) (string, error) {
	client, err := r.storeClient(ctx)
	if err != nil {
		return "", perrors.SecretResolutionError{Name: name, Err: err}
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &arn})
	if err != nil {
		return "", perrors.SecretResolutionError{Name: name, Err: err}
	}

	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	if out.SecretBinary != nil {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(out.SecretBinary)))
		n, err := base64.StdEncoding.Decode(decoded, out.SecretBinary)
		if err != nil {
			// Binary payloads are usually base64, but raw bytes pass
			// through unchanged.
			return string(out.SecretBinary), nil
		}
		return string(decoded[:n]), nil
	}

	return "", perrors.SecretResolutionError{Name: name, Err: fmt.Errorf("secret has no value")}
}

func (r *Resolver) storeClient(ctx context.Context) (SecretsManagerAPI, error) {
	if r.client != nil {
		return r.client, nil
	}

	configOpts := []func(*config.LoadOptions) error{config.WithRegion(r.region)}

	// A local stack endpoint substitutes for real AWS during development.
	endpoint, _ := r.lookup("AWS_ENDPOINT_URL")
	if endpoint != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if endpoint != "" {
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	r.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	return r.client, nil
}
