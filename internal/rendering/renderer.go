package rendering

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
)

// Renderer renders gomponents nodes for full pages and htmx fragments.
type Renderer interface {
	// RenderComponent renders a node to bytes.
	RenderComponent(ctx context.Context, component interface{}) ([]byte, error)

	// RenderPage writes a node as the HTTP response.
	RenderPage(c echo.Context, status int, component interface{}) error
}

// NodeRenderer implements Renderer and echo.Renderer.
type NodeRenderer struct{}

// NewNodeRenderer creates a NodeRenderer.
func NewNodeRenderer() *NodeRenderer {
	return &NodeRenderer{}
}

func (r *NodeRenderer) render(component interface{}, w io.Writer) error {
	node, ok := component.(g.Node)
	if !ok {
		return fmt.Errorf("unsupported component type: %T", component)
	}
	return node.Render(w)
}

// RenderComponent implements Renderer.
func (r *NodeRenderer) RenderComponent(_ context.Context, component interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.render(component, &buf); err != nil {
		return nil, fmt.Errorf("failed to render component to bytes: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPage implements Renderer. The node is rendered before any header is
// written so a failure still produces a clean error response.
func (r *NodeRenderer) RenderPage(c echo.Context, status int, component interface{}) error {
	body, err := r.RenderComponent(c.Request().Context(), component)
	if err != nil {
		return err
	}
	return c.HTMLBlob(status, body)
}

// Render implements echo.Renderer; the node travels in data and name is ignored.
func (r *NodeRenderer) Render(w io.Writer, _ string, data interface{}, c echo.Context) error {
	if c.Response().Header().Get(echo.HeaderContentType) == "" {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	}
	return r.render(data, w)
}
