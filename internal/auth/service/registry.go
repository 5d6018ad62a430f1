package service

import (
	"context"
	"net/url"
	"strings"
)

// AppRegistry answers "is this client allowed to use this redirect URI".
// Production deployments back this with client metadata discovery; the
// default implementation only enforces structural rules so any well-formed
// public client can push a request.
type AppRegistry interface {
	ValidateClient(ctx context.Context, clientID, redirectURI string) error
}

// PermissiveRegistry accepts any client whose redirect URI parses and uses
// an acceptable scheme: https, a private-use scheme, or localhost http for
// native-app loopback flows.
type PermissiveRegistry struct{}

func (PermissiveRegistry) ValidateClient(_ context.Context, clientID, redirectURI string) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrInvalidClient
	}

	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme == "" {
		return ErrInvalidRequest
	}

	switch {
	case u.Scheme == "https":
		return nil
	case u.Scheme == "http":
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" || host == "::1" {
			return nil
		}
		return ErrInvalidRequest
	case strings.Contains(u.Scheme, "."):
		// Reverse-domain private-use scheme, e.g. com.example.app:/callback
		return nil
	default:
		return ErrInvalidRequest
	}
}
