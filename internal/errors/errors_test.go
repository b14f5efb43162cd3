package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestScanError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewScanError(CodeScanFailed, "scan failed")
		if err.Code != CodeScanFailed {
			t.Errorf("Expected code %s, got %s", CodeScanFailed, err.Code)
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
		if got := err.Error(); got != "[SCAN_FAILED] scan failed" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("error with target", func(t *testing.T) {
		err := NewScanErrorWithTarget(CodeHostUnreachable, "host down", "192.168.1.1")
		expected := "[HOST_UNREACHABLE] host down (target: 192.168.1.1)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error with job id", func(t *testing.T) {
		err := ErrJobNotFound("abc")
		expected := "[NOT_FOUND] scan job not found (job: abc)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped error", func(t *testing.T) {
		cause := fmt.Errorf("network error")
		err := WrapScanError(CodeNetworkUnreachable, "network issue", cause)
		if !errors.Is(err, cause) {
			t.Error("wrapped cause should be reachable through errors.Is")
		}
	})

	t.Run("context", func(t *testing.T) {
		err := NewScanError(CodeTimeout, "slow").WithContext("batch", 3)
		if err.Context["batch"] != 3 {
			t.Errorf("expected batch context, got %v", err.Context)
		}
	})
}

func TestDiscoveryError(t *testing.T) {
	err := ErrDiscoveryFailed("10.0.0.0/24", "arp", fmt.Errorf("boom"))
	expected := "[DISCOVERY_FAILED] network discovery failed (method: arp) (network: 10.0.0.0/24)"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	unavailable := ErrProbeUnavailable("arp", fmt.Errorf("permission denied"))
	if !IsCode(unavailable, CodeToolUnavailable) {
		t.Error("expected TOOL_UNAVAILABLE code")
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
		{"scan error", ErrNoSubnets(), CodeConfiguration},
		{"database error", ErrDatabaseConnection(fmt.Errorf("refused")), CodeDatabaseConnection},
		{"config error", ErrConfigInvalid("engine.batch_size", 0), CodeValidation},
		{"wrapped with fmt", fmt.Errorf("start: %w", ErrScanInProgress("job-1")), CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	if IsCode(nil, CodeUnknown) {
		t.Error("nil error should never match a code")
	}
	if !IsCode(ErrInvalidTarget("x"), CodeTargetInvalid) {
		t.Error("expected TARGET_INVALID")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(fmt.Errorf("sweep: %w", ErrProbeUnavailable("arp", nil))) {
		t.Error("unavailable probes are fatal")
	}
	if IsFatal(ErrDiscoveryFailed("10.0.0.0/24", "arp", nil)) {
		t.Error("a failed sweep is not fatal")
	}
	if !IsFatal(ErrNoSubnets()) {
		t.Error("configuration errors are fatal")
	}
	if IsFatal(NewDatabaseError(CodeDatabaseQuery, "q")) {
		t.Error("query errors are not fatal")
	}
}

func TestDatabaseErrorWithQuery(t *testing.T) {
	err := NewDatabaseError(CodeDatabaseQuery, "failed").WithQuery("SELECT 1")
	err.Operation = "ping"
	if err.Query != "SELECT 1" {
		t.Errorf("expected query to be recorded")
	}
	if err.Error() != "[DATABASE_QUERY] failed (operation: ping)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError(CodeConfiguration, "missing")
	if err.Error() != "[CONFIGURATION] missing" {
		t.Errorf("unexpected message %q", err.Error())
	}
	field := NewConfigFieldError(CodeValidation, "bad", "api.port", 0)
	if field.Error() != "[VALIDATION] bad (field: api.port)" {
		t.Errorf("unexpected message %q", field.Error())
	}
}
