package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dmtar/camgate/internal/api/models"
	"github.com/dmtar/camgate/internal/camera"
	"github.com/dmtar/camgate/internal/dispatch"
)

// mapCameraError translates engine error codes into HTTP errors.
func mapCameraError(err error) error {
	var cerr *camera.Error
	if !errors.As(err, &cerr) {
		return huma.Error500InternalServerError("Camera operation failed", err)
	}

	switch cerr.Code {
	case camera.ErrCodeOpenedAlready:
		return huma.Error409Conflict(cerr.Message, cerr)
	case camera.ErrCodeDisabled:
		return huma.Error403Forbidden(cerr.Message, cerr)
	case camera.ErrCodeClosed:
		return huma.Error409Conflict(cerr.Message, cerr)
	case camera.ErrCodeTimeout:
		return huma.Error504GatewayTimeout(cerr.Message, cerr)
	default:
		return huma.Error500InternalServerError(cerr.Message, cerr)
	}
}

// session resolves the open session for a device id.
func (s *Server) session(id int) (*camera.Proxy, error) {
	p, ok := s.manager.Proxy(id)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("device %d has no open session", id))
	}
	return p, nil
}

func toSessionData(p *camera.Proxy) models.SessionData {
	return models.SessionData{
		DeviceID:   p.ID(),
		Name:       p.Info().Name,
		State:      string(p.State()),
		Previewing: p.Previewing(),
	}
}

func toSettingsData(s camera.Settings) models.SettingsData {
	return models.SettingsData{
		PreviewSize:          models.SizeData{Width: s.PreviewSize.Width, Height: s.PreviewSize.Height},
		PictureSize:          models.SizeData{Width: s.PictureSize.Width, Height: s.PictureSize.Height},
		FocusMode:            s.FocusMode,
		FlashMode:            s.FlashMode,
		ExposureCompensation: s.ExposureCompensation,
		JPEGQuality:          s.JPEGQuality,
		ShutterSound:         s.ShutterSound,
	}
}

func fromSettingsData(d models.SettingsData) camera.Settings {
	var s camera.Settings
	s.PreviewSize.Width = d.PreviewSize.Width
	s.PreviewSize.Height = d.PreviewSize.Height
	s.PictureSize.Width = d.PictureSize.Width
	s.PictureSize.Height = d.PictureSize.Height
	s.FocusMode = d.FocusMode
	s.FlashMode = d.FlashMode
	s.ExposureCompensation = d.ExposureCompensation
	s.JPEGQuality = d.JPEGQuality
	s.ShutterSound = d.ShutterSound
	return s
}

// openAndWait bridges the async open into a blocking call. The result
// forwarder targets the server's callback queue; the handler waits on a
// buffered channel so a late result never blocks the queue.
func (s *Server) openAndWait(id int) (camera.OpenResult, error) {
	ch := make(chan camera.OpenResult, 1)
	fwd, err := dispatch.NewForwarder(s.callbacks, func(r camera.OpenResult) { ch <- r })
	if err != nil {
		return camera.OpenResult{}, err
	}

	s.manager.Open(id, fwd)

	select {
	case r := <-ch:
		return r, nil
	case <-time.After(s.timeout):
		return camera.OpenResult{}, camera.NewError(camera.ErrCodeTimeout,
			fmt.Sprintf("open of device %d timed out", id), nil)
	}
}

// registerCameraRoutes registers the session lifecycle and device
// operation endpoints.
func (s *Server) registerCameraRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Sessions",
		Description: "List all open camera sessions",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionListResponse, error) {
		open := s.manager.Proxies()
		sessions := make([]models.SessionData, len(open))
		for i, p := range open {
			sessions[i] = toSessionData(p)
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{Sessions: sessions, Count: len(sessions)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "open-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/open",
		Summary:     "Open",
		Description: "Acquire exclusive ownership of a device and start its session",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 403, 409, 500, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.SessionResponse, error) {
		result, err := s.openAndWait(input.DeviceID)
		if err != nil {
			return nil, mapCameraError(err)
		}
		if result.Err != nil {
			return nil, mapCameraError(result.Err)
		}
		return &models.SessionResponse{Body: toSessionData(result.Proxy)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{device_id}",
		Summary:     "Session",
		Description: "Get the current state of an open session",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.SessionResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		return &models.SessionResponse{Body: toSessionData(p)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "close-camera",
		Method:      http.MethodDelete,
		Path:        "/api/cameras/{device_id}",
		Summary:     "Close",
		Description: "Close the session and release the device for other owners",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.StatusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		p.Close(true)
		return &models.StatusResponse{
			Body: models.StatusData{Status: "closed"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reconnect-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/reconnect",
		Summary:     "Reconnect",
		Description: "Reclaim a device whose hardware session was revoked",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.SessionResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}

		ch := make(chan camera.OpenResult, 1)
		fwd, err := dispatch.NewForwarder(s.callbacks, func(r camera.OpenResult) { ch <- r })
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to build callback", err)
		}
		if err := p.Reconnect(fwd); err != nil {
			return nil, mapCameraError(err)
		}

		select {
		case r := <-ch:
			if r.Err != nil {
				return nil, mapCameraError(r.Err)
			}
			return &models.SessionResponse{Body: toSessionData(r.Proxy)}, nil
		case <-time.After(s.timeout):
			return nil, huma.Error504GatewayTimeout("Reconnect timed out")
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-preview",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/preview",
		Summary:     "Start Preview",
		Description: "Start the preview stream",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.StatusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}

		ch := make(chan error, 1)
		fwd, err := dispatch.NewForwarder(s.callbacks, func(e error) { ch <- e })
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to build callback", err)
		}
		if err := p.StartPreviewWithCallback(fwd); err != nil {
			return nil, mapCameraError(err)
		}

		select {
		case e := <-ch:
			if e != nil {
				return nil, mapCameraError(e)
			}
		case <-time.After(s.timeout):
			return nil, huma.Error504GatewayTimeout("Preview start timed out")
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "previewing"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-preview",
		Method:      http.MethodDelete,
		Path:        "/api/cameras/{device_id}/preview",
		Summary:     "Stop Preview",
		Description: "Stop the preview stream; blocks until frames have stopped",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.StatusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		if err := p.StopPreview(); err != nil {
			return nil, mapCameraError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "stopped"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "autofocus-camera",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/autofocus",
		Summary:     "Auto-Focus",
		Description: "Run an auto-focus sweep and report whether focus converged",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.FocusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}

		ch := make(chan camera.FocusResult, 1)
		fwd, err := dispatch.NewForwarder(s.callbacks, func(r camera.FocusResult) { ch <- r })
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to build callback", err)
		}
		if err := p.AutoFocus(fwd); err != nil {
			return nil, mapCameraError(err)
		}

		select {
		case r := <-ch:
			data := models.FocusData{Focused: r.Focused}
			if r.Err != nil {
				data.Message = r.Err.Error()
			}
			return &models.FocusResponse{Body: data}, nil
		case <-time.After(s.timeout):
			return nil, huma.Error504GatewayTimeout("Auto-focus timed out")
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-autofocus",
		Method:      http.MethodDelete,
		Path:        "/api/cameras/{device_id}/autofocus",
		Summary:     "Cancel Auto-Focus",
		Description: "Cancel an in-flight auto-focus sweep; its callback will not fire",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.StatusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		if err := p.CancelAutoFocus(); err != nil {
			return nil, mapCameraError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "canceled"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "take-picture",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/picture",
		Summary:     "Take Picture",
		Description: "Capture a still and return the JPEG payload",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.PictureResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}

		ch := make(chan []byte, 1)
		jpeg, err := dispatch.NewForwarder(s.callbacks, func(b []byte) { ch <- b })
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to build callback", err)
		}
		if err := p.TakePicture(camera.PictureCallbacks{JPEG: jpeg}); err != nil {
			return nil, mapCameraError(err)
		}

		select {
		case payload := <-ch:
			return &models.PictureResponse{
				Body: models.PictureData{
					DeviceID:  input.DeviceID,
					JPEG:      base64.StdEncoding.EncodeToString(payload),
					SizeBytes: len(payload),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				},
			}, nil
		case <-time.After(s.timeout):
			return nil, huma.Error504GatewayTimeout("Picture capture timed out")
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-settings",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{device_id}/settings",
		Summary:     "Settings",
		Description: "Read the session's settings snapshot",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 504},
	}, func(ctx context.Context, input *DeviceIDInput) (*models.SettingsResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		settings, err := p.Settings()
		if err != nil {
			return nil, mapCameraError(err)
		}
		return &models.SettingsResponse{Body: toSettingsData(settings)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-camera-settings",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{device_id}/settings",
		Summary:     "Apply Settings",
		Description: "Apply a complete settings snapshot; the device accepts or rejects it whole",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 422, 504},
	}, func(ctx context.Context, input *struct {
		DeviceIDInput
		Body models.SettingsData
	}) (*models.SettingsResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		if err := p.ApplySettings(fromSettingsData(input.Body)); err != nil {
			var cerr *camera.Error
			if errors.As(err, &cerr) {
				return nil, mapCameraError(err)
			}
			return nil, huma.Error422UnprocessableEntity("Device rejected settings", err)
		}
		settings, err := p.Settings()
		if err != nil {
			return nil, mapCameraError(err)
		}
		return &models.SettingsResponse{Body: toSettingsData(settings)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-shutter-sound",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{device_id}/shutter-sound",
		Summary:     "Shutter Sound",
		Description: "Enable or disable the capture shutter sound",
		Tags:        []string{"cameras"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(ctx context.Context, input *struct {
		DeviceIDInput
		Body models.ShutterSoundBody
	}) (*models.StatusResponse, error) {
		p, err := s.session(input.DeviceID)
		if err != nil {
			return nil, err
		}
		if err := p.EnableShutterSound(input.Body.Enabled); err != nil {
			return nil, mapCameraError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "ok"}}, nil
	})
}
