// Package findmy talks to the Find My iPhone web service.
package findmy

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfarrell/icloud-cli/internal/icloud"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

// Device is one device registered to the account.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Model    string `json:"model"`
	Battery  string `json:"battery"`
	Status   string `json:"status"`
	Location string `json:"location"`
	Accuracy string `json:"accuracy,omitempty"`
	MapsURL  string `json:"maps_url,omitempty"`
}

// Service fetches device state and issues remote actions.
type Service struct {
	client *icloud.Client
}

func New(client *icloud.Client) *Service {
	return &Service{client: client}
}

type apiDevice struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DeviceDisplay   string  `json:"deviceDisplayName"`
	RawModel        string  `json:"rawDeviceModel"`
	BatteryLevel    float64 `json:"batteryLevel"`
	BatteryStatus   string  `json:"batteryStatus"`
	DeviceStatus    string  `json:"deviceStatus"`
	LostModeCapable bool    `json:"lostModeCapable"`
	Location        *struct {
		Latitude           float64 `json:"latitude"`
		Longitude          float64 `json:"longitude"`
		HorizontalAccuracy float64 `json:"horizontalAccuracy"`
	} `json:"location"`
}

type initResponse struct {
	Content []apiDevice `json:"content"`
}

// statusNames maps the service's device status codes.
var statusNames = map[string]string{
	"200": "Online",
	"201": "Offline",
	"203": "Pending",
	"204": "Unregistered",
}

// Devices returns all devices with battery and location state. Each call
// refreshes device state on the iCloud side.
func (s *Service) Devices(ctx context.Context) ([]Device, error) {
	base, err := s.client.ServiceURL("findme")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"clientContext": map[string]any{
			"fmly":           true,
			"shouldLocate":   true,
			"selectedDevice": "all",
		},
	}
	var resp initResponse
	if err := s.client.Post(ctx, base+"/fmipservice/client/web/initClient", body, &resp); err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}

	devices := make([]Device, 0, len(resp.Content))
	for _, d := range resp.Content {
		devices = append(devices, deviceFromAPI(d))
	}
	return devices, nil
}

// Locate returns a single device by name or id, refreshing its location.
func (s *Service) Locate(ctx context.Context, nameOrID string) (*Device, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.ID == nameOrID || strings.EqualFold(d.Name, nameOrID) {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("device %q not found", nameOrID)
}

// PlaySound plays the locate sound on a device.
func (s *Service) PlaySound(ctx context.Context, nameOrID string) (*Device, error) {
	d, err := s.Locate(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	base, err := s.client.ServiceURL("findme")
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"device":  d.ID,
		"subject": "Find My iPhone Alert",
	}
	if err := s.client.Post(ctx, base+"/fmipservice/client/web/playSound", body, nil); err != nil {
		return nil, fmt.Errorf("play sound: %w", err)
	}
	return d, nil
}

// LostMode puts a device into lost mode with an owner callback number and
// an optional message shown on the lock screen.
func (s *Service) LostMode(ctx context.Context, nameOrID, phone, message string) (*Device, error) {
	d, err := s.Locate(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	base, err := s.client.ServiceURL("findme")
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = "This device has been lost. Please call me."
	}
	body := map[string]any{
		"device":       d.ID,
		"ownerNbr":     phone,
		"text":         message,
		"lostModeType": "enabled",
	}
	if err := s.client.Post(ctx, base+"/fmipservice/client/web/lostDevice", body, nil); err != nil {
		return nil, fmt.Errorf("enable lost mode: %w", err)
	}
	return d, nil
}

func deviceFromAPI(d apiDevice) Device {
	out := Device{
		ID:      d.ID,
		Name:    d.Name,
		Model:   d.DeviceDisplay,
		Battery: fmt.Sprintf("%.0f%%", d.BatteryLevel*100),
		Status:  statusNames[d.DeviceStatus],
	}
	if out.Name == "" {
		out.Name = "Unknown Device"
	}
	if out.Model == "" {
		out.Model = d.RawModel
	}
	if out.Status == "" {
		out.Status = d.DeviceStatus
	}
	if d.Location != nil {
		out.Location = fmt.Sprintf("%.6f, %.6f", d.Location.Latitude, d.Location.Longitude)
		if d.Location.HorizontalAccuracy > 0 {
			out.Accuracy = fmt.Sprintf("%.0fm", d.Location.HorizontalAccuracy)
		}
		out.MapsURL = fmt.Sprintf("https://maps.apple.com/?ll=%f,%f", d.Location.Latitude, d.Location.Longitude)
	} else {
		out.Location = "Unknown"
	}
	return out
}

// Adapter exposes devices to the sync orchestrator under the "devices"
// domain.
type Adapter struct {
	svc *Service
}

func NewAdapter(svc *Service) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) Domain() string { return "devices" }

func (a *Adapter) Sync(ctx context.Context) ([]sync.Record, error) {
	devices, err := a.svc.Devices(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]sync.Record, 0, len(devices))
	for _, d := range devices {
		records = append(records, sync.Record{
			"id":       d.ID,
			"name":     d.Name,
			"model":    d.Model,
			"battery":  d.Battery,
			"status":   d.Status,
			"location": d.Location,
		})
	}
	return records, nil
}
