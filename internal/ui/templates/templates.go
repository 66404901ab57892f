// Package templates renders the dashboard page and the fragments the SSE
// handlers patch into it. The markup lives in the .templ files; run
// `templ generate` after editing them.
package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

const (
	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
	chartJSScript  = "https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"
)

// Element IDs shared between the page and the fragments that replace parts
// of it.
const (
	ControlsID     = "controls"
	UploadStatusID = "upload-status"
)

// Render writes c to a string, for handlers that patch fragments over SSE.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
