// Package inject provides func-field doubles for the board, bus and regulator interfaces.
package inject

import (
	"context"

	"go.viam.com/bringup/components/board/genericlinux/buses"
)

// I2C is an injected I2C.
type I2C struct {
	buses.I2C
	OpenHandleFunc func(addr byte) (buses.I2CHandle, error)
}

// OpenHandle calls the injected OpenHandle or the real version.
func (s *I2C) OpenHandle(addr byte) (buses.I2CHandle, error) {
	if s.OpenHandleFunc == nil {
		return s.I2C.OpenHandle(addr)
	}
	return s.OpenHandleFunc(addr)
}

// I2CHandle is an injected I2CHandle.
type I2CHandle struct {
	buses.I2CHandle
	WriteFunc func(ctx context.Context, tx []byte) error
	ReadFunc  func(ctx context.Context, count int) ([]byte, error)
	TxFunc    func(ctx context.Context, w, r []byte) error
	CloseFunc func() error
}

// Write calls the injected Write or the real version.
func (h *I2CHandle) Write(ctx context.Context, tx []byte) error {
	if h.WriteFunc == nil {
		return h.I2CHandle.Write(ctx, tx)
	}
	return h.WriteFunc(ctx, tx)
}

// Read calls the injected Read or the real version.
func (h *I2CHandle) Read(ctx context.Context, count int) ([]byte, error) {
	if h.ReadFunc == nil {
		return h.I2CHandle.Read(ctx, count)
	}
	return h.ReadFunc(ctx, count)
}

// Tx calls the injected Tx or the real version.
func (h *I2CHandle) Tx(ctx context.Context, w, r []byte) error {
	if h.TxFunc == nil {
		return h.I2CHandle.Tx(ctx, w, r)
	}
	return h.TxFunc(ctx, w, r)
}

// Close calls the injected Close or the real version.
func (h *I2CHandle) Close() error {
	if h.CloseFunc == nil {
		if h.I2CHandle == nil {
			return nil
		}
		return h.I2CHandle.Close()
	}
	return h.CloseFunc()
}
