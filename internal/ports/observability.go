package ports

// Observability emits logs and metrics about throughput, spooling, and
// failure conditions.
type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)

	// Close releases any file handles held by the backend. Idempotent.
	Close() error
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}
