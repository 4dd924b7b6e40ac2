package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerCameraRoutes registers camera-level endpoints.
func (s *Server) registerCameraRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-cameras",
		Method:      http.MethodGet,
		Path:        "/api/cameras",
		Summary:     "List Cameras",
		Description: "Get every configured camera with its subscriptions",
		Tags:        []string{"cameras"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*CameraListResponse, error) {
		cams := s.rig.Snapshot()
		return &CameraListResponse{
			Body: CameraListData{Cameras: cams, Count: len(cams)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}",
		Summary:     "Get Camera",
		Description: "Get one camera by id",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraPath) (*CameraResponse, error) {
		info, err := s.rig.Info(input.ID)
		if err != nil {
			return nil, mapRigError(err)
		}
		return &CameraResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-acquisition",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/acquisition",
		Summary:     "Start or Stop Acquisition",
		Description: "Start or stop a camera and wait for the device to settle",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *AcquisitionRequest) (*AcquisitionResponse, error) {
		result, err := s.rig.SetAcquisition(ctx, input.ID, input.Body.Running)
		if err != nil {
			return nil, mapRigError(err)
		}
		return &AcquisitionResponse{
			Body: AcquisitionData{Acquiring: result.Acquiring, Result: result.Kind.String()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "switch-mode",
		Method:        http.MethodPut,
		Path:          "/api/cameras/{id}/mode",
		Summary:       "Switch Acquisition Mode",
		Description:   "Change the trigger mode; a running camera is stopped and restarted around the change",
		Tags:          []string{"cameras"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{400, 401, 404, 502},
		Security:      withAuth(),
	}, func(ctx context.Context, input *ModeRequest) (*struct{}, error) {
		if err := s.rig.SwitchMode(ctx, input.ID, input.Body.Mode); err != nil {
			return nil, mapRigError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-exposure",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}/exposure",
		Summary:     "Get Exposure",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *CameraPath) (*ExposureResponse, error) {
		v, err := s.rig.GetExposure(ctx, input.ID)
		if err != nil {
			return nil, mapRigError(err)
		}
		return &ExposureResponse{Body: ExposureData{Exposure: v}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-exposure",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{id}/exposure",
		Summary:     "Set Exposure",
		Tags:        []string{"cameras"},
		Errors:      []int{400, 401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *ExposureRequest) (*ExposureResponse, error) {
		if err := s.rig.SetExposure(ctx, input.ID, input.Body.Exposure); err != nil {
			return nil, mapRigError(err)
		}
		return &ExposureResponse{Body: input.Body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-distortion",
		Method:        http.MethodPut,
		Path:          "/api/cameras/{id}/distortion",
		Summary:       "Set Distortion Correction",
		Description:   "Apply distortion coefficients, or clear correction when none are given",
		Tags:          []string{"cameras"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 502},
		Security:      withAuth(),
	}, func(ctx context.Context, input *DistortionRequest) (*struct{}, error) {
		if err := s.rig.SetDistortion(ctx, input.ID, input.Body.Params); err != nil {
			return nil, mapRigError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-camera-name",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{id}/name",
		Summary:     "Rename Camera",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *NameRequest) (*CameraResponse, error) {
		if err := s.rig.SetName(input.ID, input.Body.Name); err != nil {
			return nil, mapRigError(err)
		}
		return s.cameraResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-camera-name",
		Method:      http.MethodDelete,
		Path:        "/api/cameras/{id}/name",
		Summary:     "Clear Camera Name",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraPath) (*CameraResponse, error) {
		if err := s.rig.ClearName(input.ID); err != nil {
			return nil, mapRigError(err)
		}
		return s.cameraResponse(input.ID)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "grab-image",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/grab",
		Summary:     "Grab Image",
		Description: "Capture one image through a subscription",
		Tags:        []string{"cameras"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *GrabRequest) (*GrabResponse, error) {
		result, err := s.rig.Grab(ctx, input.ID, input.Body.Subscription, input.Body.Path)
		if err != nil {
			return nil, mapRigError(err)
		}
		return &GrabResponse{Body: GrabData{Grabbed: result != nil, Result: result}}, nil
	})

	if s.options.Metrics == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera-stats",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}/stats",
		Summary:     "Get Camera Stats",
		Description: "Get frame and feed counters for one camera",
		Tags:        []string{"cameras", "metrics"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *CameraPath) (*StatsResponse, error) {
		if _, err := s.rig.Camera(input.ID); err != nil {
			return nil, mapRigError(err)
		}
		resp := &StatsResponse{}
		if stats := s.options.Metrics.Stats(input.ID); stats != nil {
			resp.Body = *stats
		}
		return resp, nil
	})
}

func (s *Server) cameraResponse(id int) (*CameraResponse, error) {
	info, err := s.rig.Info(id)
	if err != nil {
		return nil, mapRigError(err)
	}
	return &CameraResponse{Body: info}, nil
}
