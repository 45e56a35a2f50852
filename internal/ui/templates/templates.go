// Package templates renders the dashboard and raw-data pages and the
// fragments patched into them over Datastar SSE.
package templates

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
)

//go:embed html/*.html
var files embed.FS

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"join":  strings.Join,
	"contains": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
}

var pages = template.Must(template.New("").Funcs(funcs).ParseFS(files, "html/*.html"))

func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// String renders c into a string, for SSE element patches.
func String(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func Dashboard(page DashboardPage) templ.Component { return component("dashboard", page) }
func Raw(page RawPage) templ.Component             { return component("raw", page) }

// Fragments, each rooted at an element whose id matches the page.

func Metrics(v DashboardView) templ.Component       { return component("metrics", v) }
func RevenueTab(v DashboardView) templ.Component    { return component("revenue-tab", v) }
func CountTab(v DashboardView) templ.Component      { return component("count-tab", v) }
func SellersTab(v DashboardView) templ.Component    { return component("sellers-tab", v) }
func SellerOptions(v DashboardView) templ.Component { return component("seller-options", v) }
func RawTable(v RawView) templ.Component            { return component("raw-table", v) }
func Flash(message string) templ.Component          { return component("flash", message) }
