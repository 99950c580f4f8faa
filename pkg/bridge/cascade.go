package bridge

import (
	"context"

	cascade "github.com/cascadecrypto/cascade"
	"github.com/cascadecrypto/cascade/pkg/handshake"
)

// contextOf resolves h to a *cascade.Context, reporting NullPointer for an
// unknown or already-released handle.
func contextOf(registry *Registry, h Handle) (*cascade.Context, FFIError) {
	v, ok := registry.Lookup(h)
	if !ok {
		return nil, NullPointer
	}
	ctx, ok := v.(*cascade.Context)
	if !ok {
		return nil, InvalidArgument
	}
	return ctx, Success
}

// OpenContext opens a cascade.Context over the given store and registers it,
// returning the handle a caller uses for every subsequent call. provider may
// be nil if the caller never calls PerformHandshake.
func OpenContext(
	registry *Registry, dbPath string, passphrase []byte, provider handshake.Provider,
) (h Handle, status FFIError) {
	status = Guard(func() FFIError {
		opts := []cascade.Option{cascade.WithDBPath(dbPath), cascade.WithPassphrase(passphrase)}
		if provider != nil {
			opts = append(opts, cascade.WithHandshakeProvider(provider))
		}
		ctx, err := cascade.CreateContext(opts...)
		if err != nil {
			return FromError(err)
		}
		h = registry.Register(ctx)
		return Success
	})
	return h, status
}

// CloseContext releases h's underlying store handle and forgets h.
func CloseContext(registry *Registry, h Handle) FFIError {
	return Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		err := ctx.Close()
		registry.Release(h)
		return FromError(err)
	})
}

// LoadIdentity imports a caller-supplied identity key pair into h's context.
func LoadIdentity(registry *Registry, h Handle, public, private [32]byte) FFIError {
	return Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		return FromError(ctx.LoadIdentity(public, private))
	})
}

// CreateSession builds a fresh, not-yet-keyed session for peerID under h.
func CreateSession(registry *Registry, h Handle, peerID []byte) FFIError {
	return Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		return FromError(ctx.CreateSession(peerID))
	})
}

// PerformHandshake negotiates and installs peerID's session under h,
// returning whatever bytes still need to go out over the transport.
func PerformHandshake(
	registry *Registry, h Handle, peerID []byte, initiator bool, peerPublicKey, prologue []byte,
) (message []byte, status FFIError) {
	status = Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		out, err := ctx.PerformHandshake(context.Background(), peerID, initiator, peerPublicKey, prologue)
		if err != nil {
			return FromError(err)
		}
		message = out
		return Success
	})
	return message, status
}

// EncryptMessage encrypts plaintext for peerID under h.
func EncryptMessage(
	registry *Registry, h Handle, peerID, plaintext, associatedData []byte,
) (ciphertext []byte, status FFIError) {
	status = Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		out, err := ctx.EncryptMessage(peerID, plaintext, associatedData)
		if err != nil {
			return FromError(err)
		}
		ciphertext = out
		return Success
	})
	return ciphertext, status
}

// DecryptMessage decrypts ciphertext from peerID under h.
func DecryptMessage(
	registry *Registry, h Handle, peerID, ciphertext, associatedData []byte,
) (plaintext []byte, status FFIError) {
	status = Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		out, err := ctx.DecryptMessage(peerID, ciphertext, associatedData)
		if err != nil {
			return FromError(err)
		}
		plaintext = out
		return Success
	})
	return plaintext, status
}

// ImportSessionState installs peerID's session under h from a previously
// serialized ratchet state.
func ImportSessionState(registry *Registry, h Handle, peerID, stateBytes []byte) FFIError {
	return Guard(func() FFIError {
		ctx, status := contextOf(registry, h)
		if status != Success {
			return status
		}
		return FromError(ctx.ImportSessionState(peerID, stateBytes))
	})
}
