package interfaces

import "errors"

// ErrUnsupportedGateway is returned by Resolve for names with no registered
// client. It is a client-input problem (400-class), never a server fault.
var ErrUnsupportedGateway = errors.New("payment gateway not supported")

// IGatewayRegistry resolves a gateway name to its client. Lookup is
// case-insensitive. Registries are populated at startup and read-only
// afterwards.
type IGatewayRegistry interface {
	Resolve(name string) (IPaymentGateway, error)
}
