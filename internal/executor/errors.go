package executor

import (
	"fmt"
	"strings"
)

// TimeoutMessage is the canonical message substituted for every driver's
// own timeout error text, so callers render one consistent message
// across engines.
const TimeoutMessage = "Query timed out"

// errorPrefix is the dialect marker preceding the useful part of a
// driver error message. Everything up through the last occurrence is
// stripped.
const errorPrefix = "ERROR: "

// timeoutIndicators are the driver-specific substrings that identify a
// timeout. Kept as one table rather than scattered literals so adding an
// engine is a one-line change.
var timeoutIndicators = []string{
	"canceling statement due to statement timeout",         // postgres
	"canceling statement due to conflict with recovery",    // redshift replicas
	"maximum statement execution time exceeded",            // mysql
	"max_execution_time exceeded",                          // mysql variants
	"execution expired",                                    // generic drivers
}

// TimeoutNotSupportedError reports that a timeout was requested for an
// engine that has no session timeout mechanism. Unlike statement errors
// it is surfaced as a real error, not result data.
type TimeoutNotSupportedError struct {
	Adapter string
}

func (e *TimeoutNotSupportedError) Error() string {
	return fmt.Sprintf("timeout not supported for %s adapter", e.Adapter)
}

// NormalizeError converts a database-reported execution failure into the
// message returned to callers: the dialect prefix and everything before
// it is stripped, and recognized timeout text is replaced with
// TimeoutMessage.
func NormalizeError(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, errorPrefix); i >= 0 {
		msg = msg[i+len(errorPrefix):]
	}
	for _, indicator := range timeoutIndicators {
		if strings.Contains(msg, indicator) {
			return TimeoutMessage
		}
	}
	return msg
}
