package browserbase

import (
	"errors"
	"fmt"
)

// Region is a Browserbase data-center region.
type Region string

const (
	RegionUSWest2      Region = "us-west-2"
	RegionUSEast1      Region = "us-east-1"
	RegionEUCentral1   Region = "eu-central-1"
	RegionAPSoutheast1 Region = "ap-southeast-1"
)

// Regions lists every region accepted by CreateOptions.
var Regions = []Region{RegionUSWest2, RegionUSEast1, RegionEUCentral1, RegionAPSoutheast1}

// Session timeout bounds in seconds.
const (
	MinSessionTimeout = 60
	MaxSessionTimeout = 21600
)

// Default viewport dimensions applied when only one side is supplied.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Viewport is the browser window size. Either side may be nil.
type Viewport struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// CreateOptions configures a new session. Every field is optional; unset
// fields are left out of the request so the service defaults apply.
type CreateOptions struct {
	Timeout       *int                   `json:"timeout,omitempty"`
	KeepAlive     *bool                  `json:"keepAlive,omitempty"`
	Region        *Region                `json:"region,omitempty"`
	Viewport      *Viewport              `json:"viewport,omitempty"`
	BlockAds      *bool                  `json:"blockAds,omitempty"`
	SolveCaptchas *bool                  `json:"solveCaptchas,omitempty"`
	RecordSession *bool                  `json:"recordSession,omitempty"`
	Proxies       *bool                  `json:"proxies,omitempty"`
	UserMetadata  map[string]interface{} `json:"userMetadata,omitempty"`
}

// Validate checks ranges and enums.
func (o *CreateOptions) Validate() error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Timeout != nil && (*o.Timeout < MinSessionTimeout || *o.Timeout > MaxSessionTimeout) {
		errs = append(errs, fmt.Errorf("timeout must be between %d and %d seconds, got %d", MinSessionTimeout, MaxSessionTimeout, *o.Timeout))
	}
	if o.Region != nil && !validRegion(*o.Region) {
		errs = append(errs, fmt.Errorf("unknown region %q", *o.Region))
	}
	if o.Viewport != nil {
		if o.Viewport.Width != nil && *o.Viewport.Width < 0 {
			errs = append(errs, fmt.Errorf("viewport width must not be negative"))
		}
		if o.Viewport.Height != nil && *o.Viewport.Height < 0 {
			errs = append(errs, fmt.Errorf("viewport height must not be negative"))
		}
	}
	return errors.Join(errs...)
}

func validRegion(r Region) bool {
	for _, known := range Regions {
		if r == known {
			return true
		}
	}
	return false
}

// Session is the subset of the session resource the agent uses.
type Session struct {
	ID         string `json:"id"`
	Status     string `json:"status,omitempty"`
	Region     string `json:"region,omitempty"`
	ProjectID  string `json:"projectId,omitempty"`
	ConnectURL string `json:"connectUrl,omitempty"`
}

// DebugURLs holds the live-view endpoints of a running session.
type DebugURLs struct {
	DebuggerFullscreenURL string `json:"debuggerFullscreenUrl"`
	DebuggerURL           string `json:"debuggerUrl"`
	WsURL                 string `json:"wsUrl"`
}

// createSessionRequest is the outbound POST body.
type createSessionRequest struct {
	ProjectID       string                 `json:"projectId"`
	Timeout         *int                   `json:"timeout,omitempty"`
	KeepAlive       *bool                  `json:"keepAlive,omitempty"`
	Region          *Region                `json:"region,omitempty"`
	Proxies         *bool                  `json:"proxies,omitempty"`
	UserMetadata    map[string]interface{} `json:"userMetadata,omitempty"`
	BrowserSettings *browserSettings       `json:"browserSettings,omitempty"`
}

type browserSettings struct {
	Viewport      *viewportSize `json:"viewport,omitempty"`
	BlockAds      *bool         `json:"blockAds,omitempty"`
	SolveCaptchas *bool         `json:"solveCaptchas,omitempty"`
	RecordSession *bool         `json:"recordSession,omitempty"`
}

type viewportSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// newCreateSessionRequest maps options onto the wire body. A zero timeout
// counts as unset, and browserSettings is dropped when none of its fields is set.
func newCreateSessionRequest(projectID string, o *CreateOptions) createSessionRequest {
	req := createSessionRequest{ProjectID: projectID}
	if o == nil {
		return req
	}

	if o.Timeout != nil && *o.Timeout != 0 {
		req.Timeout = o.Timeout
	}
	req.KeepAlive = o.KeepAlive
	if o.Region != nil && *o.Region != "" {
		req.Region = o.Region
	}
	req.Proxies = o.Proxies
	if len(o.UserMetadata) > 0 {
		req.UserMetadata = o.UserMetadata
	}

	settings := browserSettings{
		Viewport:      resolveViewport(o.Viewport),
		BlockAds:      o.BlockAds,
		SolveCaptchas: o.SolveCaptchas,
		RecordSession: o.RecordSession,
	}
	if settings != (browserSettings{}) {
		req.BrowserSettings = &settings
	}
	return req
}

func resolveViewport(v *Viewport) *viewportSize {
	if v == nil {
		return nil
	}
	width, height := 0, 0
	if v.Width != nil {
		width = *v.Width
	}
	if v.Height != nil {
		height = *v.Height
	}
	if width == 0 && height == 0 {
		return nil
	}
	if width == 0 {
		width = DefaultViewportWidth
	}
	if height == 0 {
		height = DefaultViewportHeight
	}
	return &viewportSize{Width: width, Height: height}
}
