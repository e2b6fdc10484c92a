package x837

import "github.com/sirupsen/logrus"

// parseConfig holds the options a Parse call can be tuned with.
type parseConfig struct {
	log          logrus.FieldLogger
	trialLogging bool
}

func defaultParseConfig() *parseConfig {
	return &parseConfig{log: logrus.StandardLogger()}
}

// ParseOption configures a Parse call.
type ParseOption func(*parseConfig)

// WithLogger injects a logger to receive delimiter-detection and
// missing-definition diagnostics. Defaults to logrus's standard logger.
func WithLogger(log logrus.FieldLogger) ParseOption {
	return func(c *parseConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithIdentifierTrialLogging turns on per-candidate DEBUG tracing in the
// structural matcher: every node a segment is trial-validated against, and
// whether that trial produced an identifier error. This is diagnostic only
// — it never changes which candidate wins — and is off by default because
// it logs once per candidate per segment, which dwarfs every other log
// line Parse produces on a large interchange.
func WithIdentifierTrialLogging(enabled bool) ParseOption {
	return func(c *parseConfig) {
		c.trialLogging = enabled
	}
}
