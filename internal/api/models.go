package api

import (
	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/inventory"
	"github.com/smazurov/grabnode/internal/logging"
	"github.com/smazurov/grabnode/internal/metrics"
	"github.com/smazurov/grabnode/internal/version"
)

// Health check models
type HealthData struct {
	Status  string            `json:"status" example:"ok" doc:"Service status"`
	Cameras int               `json:"cameras" example:"2" doc:"Number of configured cameras"`
	Build   version.BuildInfo `json:"build" doc:"Build information"`
}

type HealthResponse struct {
	Body HealthData
}

// Camera models
type CameraPath struct {
	ID int `path:"id" example:"1" doc:"Camera id"`
}

type CameraListData struct {
	Cameras []camera.Info `json:"cameras" doc:"Configured cameras"`
	Count   int           `json:"count" example:"2" doc:"Number of cameras"`
}

type CameraListResponse struct {
	Body CameraListData
}

type CameraResponse struct {
	Body camera.Info
}

type AcquisitionRequest struct {
	CameraPath
	Body struct {
		Running bool `json:"running" example:"true" doc:"Start (true) or stop (false) acquisition"`
	}
}

type AcquisitionData struct {
	Acquiring bool   `json:"acquiring" doc:"Acquisition flag after the operation settled"`
	Result    string `json:"result" example:"succeeded" enum:"skipped,succeeded,failed" doc:"Outcome of the operation"`
}

type AcquisitionResponse struct {
	Body AcquisitionData
}

type ModeRequest struct {
	CameraPath
	Body struct {
		Mode string `json:"mode" example:"external" doc:"Acquisition mode (internal, external, single)"`
	}
}

type ExposureData struct {
	Exposure float64 `json:"exposure" example:"1000" doc:"Exposure time"`
}

type ExposureRequest struct {
	CameraPath
	Body ExposureData
}

type ExposureResponse struct {
	Body ExposureData
}

type DistortionRequest struct {
	CameraPath
	Body struct {
		Params []float64 `json:"params,omitempty" doc:"Correction coefficients; omit to clear correction"`
	}
}

type NameRequest struct {
	CameraPath
	Body struct {
		Name string `json:"name" minLength:"1" example:"Left bay" doc:"Display name"`
	}
}

type StatsResponse struct {
	Body metrics.CameraStats
}

// Subscription models
type SubscriptionPath struct {
	ID   int    `path:"id" example:"1" doc:"Camera id"`
	Name string `path:"name" example:"preview" doc:"Subscription name"`
}

type CreateSubscriptionRequest struct {
	CameraPath
	Body struct {
		Name     string    `json:"name,omitempty" example:"preview" doc:"Subscription name; generated when empty"`
		Viewport []float64 `json:"viewport,omitempty" example:"[192,108,1,0,0]" doc:"Viewport as [width, height, scale, dx, dy]"`
		Start    bool      `json:"start,omitempty" doc:"Start the feed immediately"`
		Silent   bool      `json:"silent,omitempty" doc:"Do not start acquisition when starting the feed"`
	}
}

type SubscriptionResponse struct {
	Body camera.SubscriptionInfo
}

type FeedRequest struct {
	SubscriptionPath
	Silent bool `query:"silent" doc:"Leave camera acquisition untouched"`
}

type ViewportRequest struct {
	SubscriptionPath
	Body struct {
		Viewport []float64 `json:"viewport" example:"[640,480,0.5,10,20]" doc:"Viewport as [width, height, scale, dx, dy]"`
	}
}

type GrabRequest struct {
	CameraPath
	Body struct {
		Subscription string `json:"subscription,omitempty" example:"preview" doc:"Subscription to grab through; first subscribed when empty"`
		Path         string `json:"path,omitempty" example:"/tmp/grab.raw" doc:"Target path passed to the provider"`
	}
}

type GrabData struct {
	Grabbed bool `json:"grabbed" doc:"Whether an image was captured"`
	Result  any  `json:"result,omitempty" doc:"Provider-specific capture result"`
}

type GrabResponse struct {
	Body GrabData
}

// Log models
type LogsRequest struct {
	Level  string `query:"level" example:"warn" doc:"Minimum level to include"`
	Module string `query:"module" example:"camera" doc:"Only include this module"`
	Limit  int    `query:"limit" minimum:"0" example:"100" doc:"Return at most this many of the newest entries"`
}

type LogsData struct {
	Entries []logging.Entry `json:"entries" doc:"Log entries, oldest first"`
	Count   int             `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

type LogLevelRequest struct {
	Body struct {
		Module string `json:"module" example:"camera" doc:"Logger module"`
		Level  string `json:"level" example:"debug" doc:"New level (debug, info, warn, error)"`
	}
}

// Indicator models
type IndicatorData struct {
	LED      string   `json:"led" example:"system" doc:"LED driven by camera status"`
	Status   string   `json:"status" example:"solid" doc:"Current status (off, solid, blink)"`
	LEDs     []string `json:"leds" doc:"LEDs available on this board"`
	Patterns []string `json:"patterns" doc:"Patterns available on this board"`
}

type IndicatorResponse struct {
	Body IndicatorData
}

type LEDRequest struct {
	Body struct {
		LED     string `json:"led" example:"user" doc:"LED name (board-specific)"`
		On      bool   `json:"on" example:"true" doc:"Whether the LED should be on"`
		Pattern string `json:"pattern,omitempty" example:"solid" doc:"Optional pattern (solid, blink, heartbeat)"`
	}
}

// Inventory models
type ReloadData struct {
	Path    string `json:"path" doc:"Inventory file"`
	Cameras int    `json:"cameras" doc:"Cameras configured after the reload"`
}

type ReloadResponse struct {
	Body ReloadData
}

type InventoryData struct {
	Path    string             `json:"path" doc:"Inventory file"`
	Cameras []inventory.Camera `json:"cameras" doc:"Stored cameras"`
	Count   int                `json:"count" doc:"Number of stored cameras"`
}

type InventoryResponse struct {
	Body InventoryData
}

type PutInventoryCameraRequest struct {
	CameraPath
	Body inventory.Camera
}
