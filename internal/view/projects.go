package view

import (
	"fmt"
	"strconv"

	"github.com/nfrund/homeplace/internal/catalog"
	"github.com/nfrund/homeplace/internal/filter"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

// ListingID is the element htmx swaps when paging.
const ListingID = "project-listing"

// ProjectsProps is everything the listing page renders.
type ProjectsProps struct {
	Path     string
	Page     catalog.Page
	State    filter.FilterState
	Defaults filter.Defaults
	Flashes  map[string][]interface{}
}

// Href returns the shareable link for f under path.
func Href(path string, f filter.FilterState, d filter.Defaults) string {
	q, err := filter.Query(f, d)
	if err != nil {
		return path
	}
	return path + "?" + q.Encode()
}

// ProjectsPage is the full listing document.
func ProjectsPage(p ProjectsProps) g.Node {
	return c.HTML5(c.HTML5Props{
		Title:    "Projects",
		Language: "en",
		Head: []g.Node{
			h.Script(h.Src("https://unpkg.com/htmx.org@2.0.4")),
		},
		Body: []g.Node{
			h.Main(h.Class("container mx-auto p-8"),
				h.H1(h.Class("text-3xl font-bold mb-4"), g.Text("Projects")),
				Flashes(p.Flashes),
				searchForm(p),
				ProjectsListing(p),
			),
		},
	})
}

// Flashes renders pending flash messages.
func Flashes(flashes map[string][]interface{}) g.Node {
	if len(flashes) == 0 {
		return nil
	}
	var nodes []g.Node
	for _, key := range []string{flashKeySuccess, flashKeyError} {
		for _, msg := range flashes[key] {
			nodes = append(nodes, h.Div(h.Class("flash flash-"+key), g.Text(fmt.Sprint(msg))))
		}
	}
	return h.Div(h.ID("flashes"), g.Group(nodes))
}

func searchForm(p ProjectsProps) g.Node {
	return h.Form(
		h.Method("get"), h.Action(p.Path),
		hx.Get(p.Path), hx.Target("#"+ListingID), hx.Select("#"+ListingID), hx.Swap("outerHTML"), hx.PushURL("true"),
		h.Input(h.Type("search"), h.Name("q"), h.Value(p.State.Search.Text), h.Placeholder("Search projects")),
		h.Button(h.Type("submit"), g.Text("Search")),
	)
}

// ProjectsListing is the swappable results fragment.
func ProjectsListing(p ProjectsProps) g.Node {
	return h.Section(h.ID(ListingID),
		h.P(h.Class("text-sm text-gray-500"), g.Textf("%d projects", p.Page.Total)),
		g.If(len(p.Page.Items) == 0, h.P(h.Class("empty"), g.Text("No projects match these filters."))),
		h.Ul(g.Map(p.Page.Items, projectItem)),
		pagination(p),
	)
}

func projectItem(pr catalog.Project) g.Node {
	return h.Li(h.Class("project"), h.DataAttr("id", pr.ID),
		h.H2(g.Text(pr.Title)),
		h.Span(h.Class("price"), g.Text(strconv.FormatInt(pr.Price, 10))),
		h.Span(h.Class("meta"), g.Text(string(pr.Style)+" · "+string(pr.Type))),
	)
}

func pagination(p ProjectsProps) g.Node {
	pages := p.Page.Pages()
	if pages <= 1 {
		return nil
	}
	links := make([]g.Node, 0, pages)
	for n := 1; n <= pages; n++ {
		f := p.State.Clone()
		f.Page = n
		href := Href(p.Path, f, p.Defaults)
		links = append(links, h.A(
			h.Href(href),
			hx.Get(href), hx.Target("#"+ListingID), hx.Select("#"+ListingID), hx.Swap("outerHTML"), hx.PushURL("true"),
			c.Classes{"page": true, "current": n == p.Page.Page},
			g.Text(strconv.Itoa(n)),
		))
	}
	return h.Nav(h.Class("pagination"), g.Group(links))
}
