package payments

import (
	"fmt"
	"strings"

	"realtypay/internal/usecase/interfaces"
)

// Registry maps gateway names to clients. All registration happens during
// startup wiring; after that the registry is read-only, so concurrent
// Resolve calls need no locking.
type Registry struct {
	clients map[string]interfaces.IPaymentGateway
}

var _ interfaces.IGatewayRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]interfaces.IPaymentGateway)}
}

func (r *Registry) Register(name string, gw interfaces.IPaymentGateway) {
	r.clients[strings.ToLower(strings.TrimSpace(name))] = gw
}

func (r *Registry) Resolve(name string) (interfaces.IPaymentGateway, error) {
	gw, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", interfaces.ErrUnsupportedGateway, name)
	}
	return gw, nil
}
