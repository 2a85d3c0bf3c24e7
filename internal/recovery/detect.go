package recovery

import (
	"net/url"
	"strings"
)

// Outcome is the payment result inferred from the page the gateway returned
// the browser to.
type Outcome string

const (
	OutcomeNone    Outcome = "none"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Gateways have been observed returning on either path form, so both are
// honored. These patterns are the full detection contract; nothing else is
// guessed at.
var (
	failurePathMarkers = []string{"/failed/payment/", "/payment/failed"}
	successPathMarkers = []string{"/success/payment/", "/payment/success"}
	outcomeQueryParams = []string{"payment", "status", "result"}
)

// DetectOutcome inspects the post-redirect URL and any router-passed
// navigation state. Any one matching signal is sufficient.
func DetectOutcome(rawURL string, navState map[string]any) Outcome {
	if navState != nil {
		if v, ok := navState["fromFailedPayment"].(bool); ok && v {
			return OutcomeFailure
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return OutcomeNone
	}

	for _, marker := range failurePathMarkers {
		if strings.Contains(u.Path, marker) {
			return OutcomeFailure
		}
	}
	for _, marker := range successPathMarkers {
		if strings.Contains(u.Path, marker) {
			return OutcomeSuccess
		}
	}

	query := u.Query()
	for _, param := range outcomeQueryParams {
		switch query.Get(param) {
		case "failed":
			return OutcomeFailure
		case "success":
			return OutcomeSuccess
		}
	}

	return OutcomeNone
}
