package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCreditsExhausted marks a failure caused by exhausted API credits or quota.
var ErrCreditsExhausted = errors.New("api credits exhausted")

// APIError is returned by upstream HTTP clients for non-2xx responses.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.Status, e.Body)
}

// Is reports payment-required responses as ErrCreditsExhausted.
func (e *APIError) Is(target error) bool {
	return target == ErrCreditsExhausted && e.Status == 402
}

var creditsMarkers = []string{"credits", "402", "used up"}

// IsCreditsError reports whether err indicates quota or payment exhaustion.
func IsCreditsError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCreditsExhausted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range creditsMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
