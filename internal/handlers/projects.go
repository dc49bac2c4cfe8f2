package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/filter"
	"github.com/nfrund/homeplace/internal/view"
)

// searchParam carries free text from the plain HTML search form.
const searchParam = "q"

// ProjectsHandler serves catalog searches driven by the encoded filter in the URL.
type ProjectsHandler struct {
	catalog  *catalog.Catalog
	defaults filter.Defaults
}

// NewProjectsHandler creates a ProjectsHandler.
func NewProjectsHandler(cat *catalog.Catalog, defaults filter.Defaults) *ProjectsHandler {
	return &ProjectsHandler{catalog: cat, defaults: defaults}
}

// state decodes ?input= over the defaults. A ?q= search replaces the text and
// resets to the first page.
func (h *ProjectsHandler) state(c echo.Context) filter.FilterState {
	f := filter.Decode(c.QueryParam(filter.QueryParam), h.defaults.State)
	if q, ok := c.QueryParams()[searchParam]; ok && len(q) > 0 {
		filter.SetText(q[0])(&f)
	}
	return f
}

// List handles GET /api/projects.
func (h *ProjectsHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Search(h.state(c)))
}

// Page handles GET /projects.
func (h *ProjectsHandler) Page(c echo.Context) error {
	f := h.state(c)
	props := view.ProjectsProps{
		Path:     c.Path(),
		Page:     h.catalog.Search(f),
		State:    f,
		Defaults: h.defaults,
		Flashes:  view.GetFlashes(c),
	}
	return c.Render(http.StatusOK, "", view.ProjectsPage(props))
}
