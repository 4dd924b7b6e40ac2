package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerSubscriptionRoutes registers subscription endpoints, addressed by
// camera id and subscription name.
func (s *Server) registerSubscriptionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-subscription",
		Method:        http.MethodPost,
		Path:          "/api/cameras/{id}/subscriptions",
		Summary:       "Create Subscription",
		Description:   "Create a subscription on a camera, optionally starting its feed",
		Tags:          []string{"subscriptions"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 404, 502},
		Security:      withAuth(),
	}, func(ctx context.Context, input *CreateSubscriptionRequest) (*SubscriptionResponse, error) {
		info, err := s.rig.CreateSubscription(ctx, input.ID, input.Body.Name, input.Body.Viewport)
		if err != nil {
			return nil, mapRigError(err)
		}
		if input.Body.Start {
			if err := s.rig.StartSubscription(ctx, input.ID, info.Name, input.Body.Silent); err != nil {
				return nil, mapRigError(err)
			}
		}
		return s.subscriptionResponse(input.ID, info.Name)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-subscription",
		Method:      http.MethodGet,
		Path:        "/api/cameras/{id}/subscriptions/{name}",
		Summary:     "Get Subscription",
		Tags:        []string{"subscriptions"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *SubscriptionPath) (*SubscriptionResponse, error) {
		return s.subscriptionResponse(input.ID, input.Name)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-subscription",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/subscriptions/{name}/start",
		Summary:     "Start Feed",
		Description: "Start delivering frames; acquisition starts unless silent",
		Tags:        []string{"subscriptions"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *FeedRequest) (*SubscriptionResponse, error) {
		if err := s.rig.StartSubscription(ctx, input.ID, input.Name, input.Silent); err != nil {
			return nil, mapRigError(err)
		}
		return s.subscriptionResponse(input.ID, input.Name)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-subscription",
		Method:      http.MethodPost,
		Path:        "/api/cameras/{id}/subscriptions/{name}/stop",
		Summary:     "Stop Feed",
		Description: "Stop delivering frames; acquisition stops unless silent",
		Tags:        []string{"subscriptions"},
		Errors:      []int{401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *FeedRequest) (*SubscriptionResponse, error) {
		if err := s.rig.StopSubscription(ctx, input.ID, input.Name, input.Silent); err != nil {
			return nil, mapRigError(err)
		}
		return s.subscriptionResponse(input.ID, input.Name)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-viewport",
		Method:      http.MethodPut,
		Path:        "/api/cameras/{id}/subscriptions/{name}/viewport",
		Summary:     "Update Viewport",
		Description: "Replace the delivered region as [width, height, scale, dx, dy]",
		Tags:        []string{"subscriptions"},
		Errors:      []int{400, 401, 404, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *ViewportRequest) (*SubscriptionResponse, error) {
		if err := s.rig.UpdateViewport(ctx, input.ID, input.Name, input.Body.Viewport); err != nil {
			return nil, mapRigError(err)
		}
		return s.subscriptionResponse(input.ID, input.Name)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-subscription",
		Method:        http.MethodDelete,
		Path:          "/api/cameras/{id}/subscriptions/{name}",
		Summary:       "Delete Subscription",
		Description:   "Stop the feed and remove the subscription from its camera",
		Tags:          []string{"subscriptions"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 502},
		Security:      withAuth(),
	}, func(ctx context.Context, input *SubscriptionPath) (*struct{}, error) {
		if err := s.rig.DeleteSubscription(ctx, input.ID, input.Name); err != nil {
			return nil, mapRigError(err)
		}
		return &struct{}{}, nil
	})
}

func (s *Server) subscriptionResponse(id int, name string) (*SubscriptionResponse, error) {
	sub, err := s.rig.Subscription(id, name)
	if err != nil {
		return nil, mapRigError(err)
	}
	return &SubscriptionResponse{Body: sub.Info()}, nil
}
