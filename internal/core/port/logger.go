package port

// Fields is structured data attached to a log record.
type Fields map[string]interface{}

// LoggerPort is the logging contract used by every layer of the service.
type LoggerPort interface {
	Info(msg string, fields Fields)

	Warn(msg string, fields Fields)

	Error(msg string, err error, fields Fields)

	Debug(msg string, fields Fields)
	// WithFields returns a logger that always carries the given fields.
	WithFields(fields Fields) LoggerPort
}
