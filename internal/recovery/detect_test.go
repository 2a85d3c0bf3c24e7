package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectOutcome(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		navState map[string]any
		want     Outcome
	}{
		{name: "failure path with trailing segment", url: "https://shop.example/failed/payment/ord-42", want: OutcomeFailure},
		{name: "failure path alternate form", url: "https://shop.example/payment/failed", want: OutcomeFailure},
		{name: "success path with trailing segment", url: "https://shop.example/success/payment/ord-42", want: OutcomeSuccess},
		{name: "success path alternate form", url: "https://shop.example/payment/success", want: OutcomeSuccess},
		{name: "payment query failed", url: "https://shop.example/checkout?payment=failed", want: OutcomeFailure},
		{name: "status query failed", url: "https://shop.example/checkout?status=failed", want: OutcomeFailure},
		{name: "result query success", url: "https://shop.example/checkout?result=success", want: OutcomeSuccess},
		{name: "unrelated query value", url: "https://shop.example/checkout?status=pending", want: OutcomeNone},
		{name: "plain page", url: "https://shop.example/menu/R1", want: OutcomeNone},
		{name: "nav state flag wins without url evidence", url: "https://shop.example/cart", navState: map[string]any{"fromFailedPayment": true}, want: OutcomeFailure},
		{name: "nav state flag false is ignored", url: "https://shop.example/cart", navState: map[string]any{"fromFailedPayment": false}, want: OutcomeNone},
		{name: "nav state flag overrides success path", url: "https://shop.example/payment/success", navState: map[string]any{"fromFailedPayment": true}, want: OutcomeFailure},
		{name: "nav state wrong type is ignored", url: "https://shop.example/cart", navState: map[string]any{"fromFailedPayment": "yes"}, want: OutcomeNone},
		{name: "marker inside query does not count as path", url: "https://shop.example/cart?next=/payment/failed", want: OutcomeNone},
		{name: "relative url", url: "/failed/payment/ord-42", want: OutcomeFailure},
		{name: "empty url", url: "", want: OutcomeNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectOutcome(tc.url, tc.navState))
		})
	}
}
