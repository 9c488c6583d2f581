package youtube

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"google.golang.org/api/googleapi"
)

// ErrAllCredentialsExhausted is returned when every credential in the pool
// reported quota exhaustion for the same operation.
var ErrAllCredentialsExhausted = errors.New("all API credentials exhausted")

// Rotator hands out credentials from an ordered pool and advances to the next
// one when the current credential's quota runs out. The active index is shared
// across all operations, so a rotation triggered by one call carries over to
// the next.
type Rotator struct {
	mu          sync.Mutex
	credentials []string
	current     int
}

func NewRotator(credentials []string) (*Rotator, error) {
	if len(credentials) == 0 {
		return nil, errors.New("credential pool is empty")
	}
	pool := make([]string, len(credentials))
	copy(pool, credentials)
	return &Rotator{credentials: pool}, nil
}

// Size returns the number of credentials in the pool.
func (r *Rotator) Size() int {
	return len(r.credentials)
}

// Current returns the credential operations use right now.
func (r *Rotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credentials[r.current]
}

// Execute runs fn with the active credential, rotating on quota exhaustion.
// For a pool of k credentials fn is attempted at most k times; after the last
// credential is exhausted ErrAllCredentialsExhausted is returned rather than
// wrapping back to the first. Any non-quota error from fn aborts immediately.
func (r *Rotator) Execute(fn func(credential string) error) error {
	attempts := len(r.credentials)
	var lastErr error

	for i := 0; i < attempts; i++ {
		credential := r.Current()

		err := fn(credential)
		if err == nil {
			return nil
		}
		if !IsQuotaExhausted(err) {
			return err
		}

		lastErr = err
		r.mu.Lock()
		log.Printf("⚠️ API quota exhausted on credential %d/%d, rotating", r.current+1, attempts)
		if r.current+1 >= attempts {
			r.mu.Unlock()
			break
		}
		r.current++
		r.mu.Unlock()
	}

	return fmt.Errorf("%w: %v", ErrAllCredentialsExhausted, lastErr)
}

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// IsQuotaExhausted reports whether err is a YouTube Data API quota error,
// which is the only error class that triggers credential rotation.
func IsQuotaExhausted(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != 403 && apiErr.Code != 429 {
		return false
	}
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	// 403s without a structured reason are ambiguous; treat plain 429 as quota.
	return apiErr.Code == 429
}
