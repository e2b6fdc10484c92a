package x837

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithLoggerOverridesDefault(t *testing.T) {
	custom := logrus.New()
	cfg := defaultParseConfig()
	WithLogger(custom)(cfg)
	if cfg.log != custom {
		t.Error("WithLogger did not install the custom logger")
	}
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	cfg := defaultParseConfig()
	original := cfg.log
	WithLogger(nil)(cfg)
	if cfg.log != original {
		t.Error("WithLogger(nil) should leave the default logger in place")
	}
}

func TestWithIdentifierTrialLoggingTogglesFlag(t *testing.T) {
	cfg := defaultParseConfig()
	if cfg.trialLogging {
		t.Fatal("trial logging should default to off")
	}
	WithIdentifierTrialLogging(true)(cfg)
	if !cfg.trialLogging {
		t.Error("WithIdentifierTrialLogging(true) did not enable trial logging")
	}
	WithIdentifierTrialLogging(false)(cfg)
	if cfg.trialLogging {
		t.Error("WithIdentifierTrialLogging(false) did not disable trial logging")
	}
}
