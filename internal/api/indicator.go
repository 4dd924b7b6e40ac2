package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerIndicatorRoutes registers status LED endpoints.
func (s *Server) registerIndicatorRoutes() {
	if s.options.Indicator == nil {
		s.logger.Debug("Indicator not available, skipping LED routes")
		return
	}
	ind := s.options.Indicator

	huma.Register(s.api, huma.Operation{
		OperationID: "get-indicator",
		Method:      http.MethodGet,
		Path:        "/api/indicator",
		Summary:     "Get Indicator",
		Description: "Get the status LED state and the LEDs and patterns this board supports",
		Tags:        []string{"indicator"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*IndicatorResponse, error) {
		ctrl := ind.Controller()
		return &IndicatorResponse{
			Body: IndicatorData{
				LED:      ind.LED(),
				Status:   ind.Status(),
				LEDs:     ctrl.Available(),
				Patterns: ctrl.Patterns(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "set-led",
		Method:        http.MethodPost,
		Path:          "/api/indicator/leds",
		Summary:       "Control LED",
		Description:   "Set an LED directly. The status LED is overwritten on the next camera state change.",
		Tags:          []string{"indicator"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{400, 401},
		Security:      withAuth(),
	}, func(_ context.Context, input *LEDRequest) (*struct{}, error) {
		if err := ind.Controller().Set(input.Body.LED, input.Body.On, input.Body.Pattern); err != nil {
			return nil, huma.Error400BadRequest("failed to control LED", err)
		}
		return &struct{}{}, nil
	})

	s.logger.Info("Indicator routes registered", "led", ind.LED())
}
