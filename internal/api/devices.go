package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dmtar/camgate/internal/api/models"
	"github.com/dmtar/camgate/internal/devices"
)

// DeviceIDInput is the path parameter shared by per-device endpoints.
type DeviceIDInput struct {
	DeviceID int `path:"device_id" minimum:"0" example:"0" doc:"Device identifier"`
}

func toSizeData(s devices.Size) models.SizeData {
	return models.SizeData{Width: s.Width, Height: s.Height}
}

func toDeviceInfo(info devices.Info) models.DeviceInfo {
	return models.DeviceInfo{
		ID:       info.ID,
		Name:     info.Name,
		Path:     info.Path,
		Facing:   info.Facing,
		Disabled: info.Disabled,
		Caps: models.CapabilitiesData{
			CanFocus:        info.Caps.CanFocus,
			HasFlash:        info.Caps.HasFlash,
			HasShutterSound: info.Caps.HasShutterSound,
			MaxPictureSize:  toSizeData(info.Caps.MaxPictureSize),
			MaxPreviewSize:  toSizeData(info.Caps.MaxPreviewSize),
		},
	}
}

// registerDeviceRoutes registers the device inventory endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List all known camera devices with their session state",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.DeviceListResponse, error) {
		infos := s.registry.List()
		list := make([]models.DeviceInfo, len(infos))
		for i, info := range infos {
			list[i] = toDeviceInfo(info)
			if p, ok := s.manager.Proxy(info.ID); ok {
				list[i].State = string(p.State())
			}
		}
		return &models.DeviceListResponse{
			Body: models.DeviceListData{Devices: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/devices/{device_id}",
		Summary:     "Device",
		Description: "Get one device's metadata and capabilities",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.DeviceResponse, error) {
		info, err := s.registry.Info(input.DeviceID)
		if err != nil {
			if errors.Is(err, devices.ErrUnknownDevice) {
				return nil, huma.Error404NotFound("Device not found", err)
			}
			return nil, huma.Error500InternalServerError("Failed to look up device", err)
		}

		out := toDeviceInfo(info)
		if p, ok := s.manager.Proxy(info.ID); ok {
			out.State = string(p.State())
		}
		return &models.DeviceResponse{Body: out}, nil
	})
}
