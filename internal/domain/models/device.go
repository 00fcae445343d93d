package models

import "context"

// Device identifies the authenticated caller of the tracker API.
// One device owns at most one active session.
type Device struct {
	ID        string
	Anonymous bool
}

// AnonymousDevice is used for requests without credentials; only public
// endpoints accept it.
func AnonymousDevice() *Device {
	return &Device{Anonymous: true}
}

func (d *Device) IsAnonymous() bool {
	return d == nil || d.Anonymous
}

type deviceCtxKey struct{}

// WithDevice injects the authenticated device into the context.
func WithDevice(ctx context.Context, d *Device) context.Context {
	return context.WithValue(ctx, deviceCtxKey{}, d)
}

// DeviceFromContext returns the device stored by the auth middleware, or nil.
func DeviceFromContext(ctx context.Context) *Device {
	d, _ := ctx.Value(deviceCtxKey{}).(*Device)
	return d
}
