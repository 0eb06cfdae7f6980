// Package payment defines the interface to the card/payment-gateway
// collaborator. The core only consumes a charge succeeded/failed signal;
// gateway integration lives outside this service.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"goldvault/internal/apperr"
)

// Charger charges a user's stored payment method. Implementations must be
// safe for concurrent use.
type Charger interface {
	// Charge attempts to collect amount from the user's payment method.
	// reference identifies the charge for reconciliation. A non-nil error
	// means the charge did not happen.
	Charge(ctx context.Context, userID uint, amount decimal.Decimal, currency, reference string) error
}

// NoopCharger approves every charge. Used when no gateway is configured,
// e.g. in development environments.
type NoopCharger struct{}

// Charge always succeeds.
func (NoopCharger) Charge(ctx context.Context, userID uint, amount decimal.Decimal, currency, reference string) error {
	return nil
}

// Failed wraps a gateway rejection into the typed error the flows surface.
func Failed(err error) error {
	return apperr.Wrap(apperr.KindChargeFailed, err, "external charge failed")
}
