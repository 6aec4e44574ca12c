package biometric

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	id "gymgate/pkg/domain"
	dErrors "gymgate/pkg/domain-errors"
	"gymgate/pkg/platform/sentinel"
)

// Device is a registered scanning device (turnstile reader, kiosk tablet).
// Authenticated devices supply the provenance metadata on biometric
// attendance records.
type Device struct {
	ID       string
	OrgID    id.OrgID
	Name     string
	Location string
	// SecretHash is the bcrypt hash of the device credential. The plaintext
	// secret is shown once at registration and never stored.
	SecretHash []byte
}

// DeviceRegistry authenticates devices and resolves their organization.
type DeviceRegistry struct {
	mu      sync.RWMutex
	devices map[string]Device
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{devices: make(map[string]Device)}
}

// Register stores a device with its secret hashed. Registering an existing
// device ID replaces its credential.
func (r *DeviceRegistry) Register(deviceID string, orgID id.OrgID, name, location, secret string) (Device, error) {
	if deviceID == "" {
		return Device{}, dErrors.New(dErrors.CodeInvalidInput, "device id is required")
	}
	if secret == "" {
		return Device{}, dErrors.New(dErrors.CodeInvalidInput, "device secret is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Device{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash device secret")
	}
	device := Device{
		ID:         deviceID,
		OrgID:      orgID,
		Name:       name,
		Location:   location,
		SecretHash: hash,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[deviceID] = device
	return device, nil
}

// Authenticate verifies a device credential and returns the device record.
// Unknown devices and bad secrets are indistinguishable to the caller.
func (r *DeviceRegistry) Authenticate(_ context.Context, deviceID, secret string) (Device, error) {
	r.mu.RLock()
	device, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if !ok {
		return Device{}, dErrors.New(dErrors.CodeUnauthorized, "unknown device or bad credential")
	}
	if err := bcrypt.CompareHashAndPassword(device.SecretHash, []byte(secret)); err != nil {
		return Device{}, dErrors.New(dErrors.CodeUnauthorized, "unknown device or bad credential")
	}
	return device, nil
}

// Remove deletes a device registration.
func (r *DeviceRegistry) Remove(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.devices[deviceID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(r.devices, deviceID)
	return nil
}
