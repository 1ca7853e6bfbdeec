package cache

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Mode controls when statement results are cached.
type Mode string

const (
	ModeOff  Mode = "off"
	ModeAll  Mode = "all"
	ModeSlow Mode = "slow"
)

// Default policy values when a structured cache setting omits them.
const (
	DefaultExpiresIn     = 60 // minutes
	DefaultSlowThreshold = 15 // seconds
)

// Policy is the derived caching decision for a data source. Settings are
// immutable after construction, so a Policy is computed once and held for
// the data source's lifetime.
type Policy struct {
	Mode          Mode    `mapstructure:"mode"`
	ExpiresIn     float64 `mapstructure:"expires_in"`     // minutes
	SlowThreshold float64 `mapstructure:"slow_threshold"` // seconds
}

// DerivePolicy translates the raw cache setting into a Policy.
// A structured mapping is used verbatim; a truthy scalar synthesizes
// mode "all" with the scalar as expiry; absent or false means off.
func DerivePolicy(setting any) (Policy, error) {
	p := Policy{Mode: ModeOff, ExpiresIn: DefaultExpiresIn, SlowThreshold: DefaultSlowThreshold}

	switch v := setting.(type) {
	case nil:
		return p, nil
	case bool:
		if v {
			p.Mode = ModeAll
		}
		return p, nil
	case map[string]any:
		if err := mapstructure.WeakDecode(v, &p); err != nil {
			return p, fmt.Errorf("invalid cache setting: %w", err)
		}
		if p.Mode == "" {
			p.Mode = ModeAll
		}
		if p.ExpiresIn <= 0 {
			p.ExpiresIn = DefaultExpiresIn
		}
		if p.SlowThreshold <= 0 {
			p.SlowThreshold = DefaultSlowThreshold
		}
		return p, nil
	default:
		n, err := toFloat(v)
		if err != nil {
			return p, fmt.Errorf("invalid cache setting %v: %w", setting, err)
		}
		p.Mode = ModeAll
		if n > 0 {
			p.ExpiresIn = n
		}
		return p, nil
	}
}

// ReadEligible reports whether a cache lookup should be attempted.
func (p Policy) ReadEligible(refresh bool) bool {
	return p.Mode != ModeOff && !refresh
}

// WriteEligible reports whether a successful execution of the observed
// duration should be written to cache.
func (p Policy) WriteEligible(elapsed time.Duration) bool {
	switch p.Mode {
	case ModeAll:
		return true
	case ModeSlow:
		return elapsed.Seconds() >= p.SlowThreshold
	default:
		return false
	}
}

// TTL is the store expiry for written entries.
func (p Policy) TTL() time.Duration {
	return time.Duration(p.ExpiresIn * float64(time.Minute))
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected bool, number or mapping, got %T", v)
	}
}
