// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/edrlab/lcp-client/pkg/contract"
)

// DeviceRegistration records that a device has already registered a
// license with the status server, adapted from the reference server's
// pkg/stor.Event (type "register" rows), trimmed to the one event type a
// client ever has a reason to cache.
type DeviceRegistration struct {
	ID           uint      `gorm:"primaryKey"`
	LicenseID    string    `gorm:"index:idx_license_device,unique"`
	DeviceID     string    `gorm:"index:idx_license_device,unique"`
	DeviceName   string
	RegisteredAt time.Time
}

// DeviceRegistrationRepository mirrors the reference server's
// EventRepository.GetRegisterByDevice, the idempotency check this client
// reuses to skip a redundant registration POST.
type DeviceRegistrationRepository interface {
	Get(licenseID, deviceID string) (*DeviceRegistration, error)
	Create(r *DeviceRegistration) error
}

type deviceRegistrationStore dbStore

func (s *deviceRegistrationStore) Get(licenseID, deviceID string) (*DeviceRegistration, error) {
	var reg DeviceRegistration
	err := s.db.Where("license_id = ? and device_id = ?", licenseID, deviceID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *deviceRegistrationStore) Create(r *DeviceRegistration) error {
	return s.db.Create(r).Error
}

// CachingDeviceService wraps a contract.DeviceService, consulting the local
// ledger before delegating so a license already registered for this device
// is treated as an immediate no-op (spec.md's DeviceRegistration record
// invariant).
type CachingDeviceService struct {
	Inner    contract.DeviceService
	Store    Store
	DeviceID string
	Name     string
}

// RegisterLicense implements contract.DeviceService.
func (c *CachingDeviceService) RegisterLicense(ctx context.Context, licenseID string, link contract.LinkView) ([]byte, error) {
	repo := c.Store.DeviceRegistrations()

	existing, err := repo.Get(licenseID, c.DeviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	data, err := c.Inner.RegisterLicense(ctx, licenseID, link)
	if err != nil {
		return nil, err
	}

	if err := repo.Create(&DeviceRegistration{
		LicenseID:    licenseID,
		DeviceID:     c.DeviceID,
		DeviceName:   c.Name,
		RegisteredAt: time.Now(),
	}); err != nil {
		return data, err
	}
	return data, nil
}
