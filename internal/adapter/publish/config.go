package publish

// Config captures the Kafka connectivity and retry behavior of the failure
// sink. Connection fields are only required when Enabled is set.
type Config struct {
	Enabled               bool
	Brokers               []string `validate:"required_if=Enabled true,dive,required"`
	Topic                 string   `validate:"required_if=Enabled true"`
	ClientID              string   `validate:"required_if=Enabled true"`
	TransactionalID       string   `validate:"omitempty"`
	MaxRetryAttempts      int      `validate:"omitempty,gte=1"`
	RetryInitialBackoffMS int      `validate:"omitempty,gte=0"`
	RetryMaxBackoffMS     int      `validate:"omitempty,gte=0"`
	RetryJitter           float64  `validate:"omitempty,gte=0"`
	WriteTimeoutSeconds   int      `validate:"omitempty,gte=1"`
}
