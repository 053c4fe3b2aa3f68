package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	TypeKinesis = "kinesis"
	TypeRedis   = "redis"

	// DefaultKinesisPort is the Localstack kinesis port used when only a host
	// is configured.
	DefaultKinesisPort = 4568
	DefaultRegion      = "us-east-1"
	// DefaultCredential is used for both key parts when nothing else is set.
	// Localstack accepts any value.
	DefaultCredential = "none"

	// SingleShardID is the only shard a Redis stream exposes.
	SingleShardID = "shardId-000000000000"
)

// KinesisConfig holds the connection options of the Kinesis provider.
//
// The endpoint is resolved in this order: Endpoints["kinesis"] (also loaded
// from EndpointFile), Endpoint, Host joined with Port. An empty result means
// the SDK default endpoint.
type KinesisConfig struct {
	Endpoint        string `validate:"omitempty,url"`
	Host            string `validate:"omitempty,url"`
	Port            int    `validate:"gte=0,lte=65535"`
	Endpoints       map[string]string
	EndpointFile    string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int `validate:"gte=0"`
}

// RedisConfig holds the options of the Redis Streams provider.
type RedisConfig struct {
	Host               string `validate:"required,hostname|ip"`
	Port               string `validate:"required,numeric"`
	Password           string
	DB                 int `validate:"gte=0"`
	UseTLS             bool
	PoolSize           int `validate:"gte=0"`
	MaxRetries         int `validate:"gte=0"`
	DialTimeoutSeconds int `validate:"gte=0"`
	// KeyPrefix namespaces stream keys as <prefix>:<stream>.
	KeyPrefix string `validate:"required"`
}

// LoadEndpointFile merges a JSON object of service name to URL into
// c.Endpoints. Entries from the file win over configured ones.
func (c *KinesisConfig) LoadEndpointFile() error {
	if c.EndpointFile == "" {
		return nil
	}
	raw, err := os.ReadFile(c.EndpointFile)
	if err != nil {
		return fmt.Errorf("read endpoint file %q: %w", c.EndpointFile, err)
	}
	var endpoints map[string]string
	if err := json.Unmarshal(raw, &endpoints); err != nil {
		return fmt.Errorf("endpoint file %q is invalid: %w", c.EndpointFile, err)
	}
	if c.Endpoints == nil {
		c.Endpoints = make(map[string]string, len(endpoints))
	}
	for k, v := range endpoints {
		c.Endpoints[strings.ToLower(k)] = v
	}
	return nil
}

// ResolveEndpoint returns the kinesis endpoint URL, or "" for the SDK default.
func (c *KinesisConfig) ResolveEndpoint() string {
	for k, v := range c.Endpoints {
		if strings.EqualFold(k, "kinesis") && v != "" {
			return v
		}
	}
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.Host != "" {
		port := c.Port
		if port == 0 {
			port = DefaultKinesisPort
		}
		return fmt.Sprintf("%s:%d", strings.TrimRight(c.Host, "/"), port)
	}
	return ""
}

// ResolveRegion falls back to AWS_REGION, then AWS_DEFAULT_REGION, then
// us-east-1.
func (c *KinesisConfig) ResolveRegion(getenv func(string) string) string {
	return firstNonEmpty(c.Region, getenv("AWS_REGION"), getenv("AWS_DEFAULT_REGION"), DefaultRegion)
}

// ResolveCredentials falls back to the standard AWS variables, then "none".
func (c *KinesisConfig) ResolveCredentials(getenv func(string) string) (string, string) {
	return firstNonEmpty(c.AccessKeyID, getenv("AWS_ACCESS_KEY_ID"), DefaultCredential),
		firstNonEmpty(c.SecretAccessKey, getenv("AWS_SECRET_ACCESS_KEY"), DefaultCredential)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
