package iot

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

var (
	ipv4Pattern     = regexp.MustCompile(`^((25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$`)
	hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	numericLabels   = regexp.MustCompile(`^[\d.]+$`)
)

// ValidateAddress accepts an IPv4 address or a DNS hostname, optionally
// followed by a port.
func ValidateAddress(address string) error {
	host := address
	if strings.Contains(address, ":") {
		h, port, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("%w: invalid address %q: %v", common.ErrValidation, address, err)
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("%w: invalid port in %q", common.ErrValidation, address)
		}
		host = h
	}

	if numericLabels.MatchString(host) {
		if !ipv4Pattern.MatchString(host) {
			return fmt.Errorf("%w: invalid IPv4 address %q", common.ErrValidation, host)
		}
		return nil
	}
	if len(host) > 253 || !hostnamePattern.MatchString(host) {
		return fmt.Errorf("%w: invalid hostname %q", common.ErrValidation, host)
	}
	return nil
}

func (i *IOT) createDevice(input *models.Device) (*models.Device, error) {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTDevice)

	address := strings.TrimSpace(input.Address)
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	device := models.Device{
		ID:        strings.TrimSpace(input.ID),
		Address:   address,
		Name:      input.Name,
		CreatedAt: i.now(),
	}
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	var existing int64
	if err := i.Db.Conn.Model(&models.Device{}).Where("id = ?", device.ID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: device %s already exists", common.ErrValidation, device.ID)
	}

	if err := i.Db.Conn.Create(&device).Error; err != nil {
		return nil, err
	}

	logger.Info("Registered device", zap.Reflect("device", device))
	return &device, nil
}

func (i *IOT) getDevice(deviceID string) (*models.Device, error) {
	var device models.Device
	err := i.Db.Conn.First(&device, "id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownDevice, deviceID)
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (i *IOT) listDevices() ([]models.Device, error) {
	var devices []models.Device
	err := i.Db.Conn.Order("id asc").Find(&devices).Error
	return devices, err
}

// deleteDevice removes the device together with its policy, its
// notification records and its runtime status.
func (i *IOT) deleteDevice(deviceID string) error {
	logger := common.GetCategoryLogger(common.LoggerNameIOTCore, common.LoggerCategoryIOTDevice)

	if _, err := i.getDevice(deviceID); err != nil {
		return err
	}

	err := i.Db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.Policy{}).Error; err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.NotificationRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", deviceID).Delete(&models.Device{}).Error
	})
	if err != nil {
		return err
	}

	i.Status.Delete(deviceID)
	i.cooldowns.Delete(deviceID)

	logger.Info("Deleted device", zap.String("device_id", deviceID))
	return nil
}

type IDeviceImpl struct {
	iot *IOT
}

func (id *IDeviceImpl) CreateDevice(input *models.Device) (*models.Device, error) {
	return id.iot.createDevice(input)
}

func (id *IDeviceImpl) GetDevice(deviceID string) (*models.Device, error) {
	return id.iot.getDevice(deviceID)
}

func (id *IDeviceImpl) ListDevices() ([]models.Device, error) {
	return id.iot.listDevices()
}

func (id *IDeviceImpl) DeleteDevice(deviceID string) error {
	return id.iot.deleteDevice(deviceID)
}

func (i *IOT) GetIDevice() IDevice {
	return &IDeviceImpl{iot: i}
}
