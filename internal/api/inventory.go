package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/grabnode/internal/inventory"
)

// registerInventoryRoutes registers the inventory file endpoints.
func (s *Server) registerInventoryRoutes() {
	if s.options.Inventory != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "reload-inventory",
			Method:      http.MethodPost,
			Path:        "/api/inventory/reload",
			Summary:     "Reload Inventory",
			Description: "Re-read the camera inventory file and apply it",
			Tags:        []string{"inventory"},
			Errors:      []int{401, 500},
			Security:    withAuth(),
		}, func(_ context.Context, _ *struct{}) (*ReloadResponse, error) {
			if err := s.options.Inventory.Reload(); err != nil {
				return nil, huma.Error500InternalServerError("failed to reload inventory", err)
			}
			return &ReloadResponse{
				Body: ReloadData{Path: s.options.Inventory.Path(), Cameras: s.rig.Len()},
			}, nil
		})
	}

	if s.options.Store == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-inventory",
		Method:      http.MethodGet,
		Path:        "/api/inventory",
		Summary:     "Get Inventory",
		Description: "Return the cameras stored in the inventory file",
		Tags:        []string{"inventory"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*InventoryResponse, error) {
		if err := s.options.Store.Load(); err != nil {
			return nil, huma.Error500InternalServerError("failed to read inventory", err)
		}
		return s.inventoryResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-inventory-camera",
		Method:      http.MethodPut,
		Path:        "/api/inventory/cameras/{id}",
		Summary:     "Store Camera",
		Description: "Add or replace a camera in the inventory file and apply the result",
		Tags:        []string{"inventory"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *PutInventoryCameraRequest) (*InventoryResponse, error) {
		if input.Body.ID != input.ID {
			return nil, huma.Error400BadRequest("camera id does not match path")
		}
		if err := s.options.Store.Load(); err != nil {
			return nil, huma.Error500InternalServerError("failed to read inventory", err)
		}
		if err := s.options.Store.Put(input.Body); err != nil {
			return nil, huma.Error400BadRequest("invalid camera", err)
		}
		return s.applyStore(ctx)
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-inventory-camera",
		Method:      http.MethodDelete,
		Path:        "/api/inventory/cameras/{id}",
		Summary:     "Remove Camera",
		Description: "Remove a camera from the inventory file and apply the result",
		Tags:        []string{"inventory"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *CameraPath) (*InventoryResponse, error) {
		if err := s.options.Store.Load(); err != nil {
			return nil, huma.Error500InternalServerError("failed to read inventory", err)
		}
		if _, ok := s.options.Store.Camera(input.ID); !ok {
			return nil, huma.Error404NotFound("camera not in inventory")
		}
		if err := s.options.Store.Remove(input.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to write inventory", err)
		}
		return s.applyStore(ctx)
	})
}

// applyStore pushes the stored inventory into the rig.
func (s *Server) applyStore(ctx context.Context) (*InventoryResponse, error) {
	if err := s.rig.Apply(ctx, s.options.Store.Cameras()); err != nil {
		s.logger.Warn("Stored inventory applied with errors", "error", err)
	}
	return s.inventoryResponse(), nil
}

func (s *Server) inventoryResponse() *InventoryResponse {
	cams := s.options.Store.Cameras()
	if cams == nil {
		cams = []inventory.Camera{}
	}
	return &InventoryResponse{
		Body: InventoryData{Path: s.options.Store.Path(), Cameras: cams, Count: len(cams)},
	}
}
