package adapters

import "github.com/brettbedarf/dok/config"

// RegisterBuiltins registers all built-in gateways on r (the default registry if nil),
// or only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, remoteTypes ...string) {
	if r == nil {
		r = defaultRegistry
	}
	if len(remoteTypes) == 0 {
		// Include all built-in gateways here when adding implementations
		remoteTypes = append(remoteTypes, config.RemoteHTTP, config.RemoteMemory)
	}

	for _, key := range remoteTypes {
		switch key {
		case config.RemoteHTTP:
			r.Register(config.RemoteHTTP, NewHTTPGatewayFromConfig)
		case config.RemoteMemory:
			r.Register(config.RemoteMemory, NewMemoryGatewayFromConfig)
		}
	}
}
