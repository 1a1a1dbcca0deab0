package ui

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	"maragu.dev/gomponents/components"
	. "maragu.dev/gomponents/html"
)

type navItem struct {
	Label string
	Href  string
	Key   string
	Icon  string
}

var navItems = []navItem{
	{Label: "Dashboard", Href: "/", Key: "dashboard", Icon: "house"},
	{Label: "Invoices", Href: "/invoices", Key: "invoices", Icon: "receipt"},
	{Label: "Chat with Data", Href: "/chat", Key: "chat", Icon: "message-square"},
}

const (
	appName            = "Invoice Analytics"
	classMuted         = "muted"
	classPrimaryButton = "btn btn-primary"
	datastarBundle     = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"
	lucideBundle       = "https://unpkg.com/lucide@latest/dist/umd/lucide.min.js"
)

// pageHead is the <head> shared by every page; extra carries page scripts.
func pageHead(title string, extra ...Node) Node {
	return Head(
		Meta(Charset("utf-8")),
		Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
		TitleEl(Text(title+" | "+appName)),
		Link(Rel("icon"), Href("data:,")),
		Link(Rel("stylesheet"), Href(stylesheetHref())),
		Group(extra),
	)
}

func sidebar(active string) Node {
	links := Map(navItems, func(item navItem) Node {
		return A(
			Href(item.Href),
			components.Classes{"app-nav-link": true, "active": item.Key == active},
			I(Class("nav-icon"), Attr("data-lucide", item.Icon), Attr("aria-hidden", "true")),
			Span(Text(item.Label)),
		)
	})
	return Aside(
		Class("app-sidebar"),
		Div(Class("brand"), Strong(Text(appName))),
		Nav(Class("app-nav"), links),
	)
}

// appPage wraps body in the sidebar layout with Datastar loaded.
func appPage(title, active string, body ...Node) Node {
	return HTML(
		Lang("en"),
		pageHead(title,
			Script(Src(lucideBundle)),
			Script(Type("module"), Src(datastarBundle)),
		),
		Body(
			Main(Class("app-shell"),
				sidebar(active),
				Section(
					Class("app-main"),
					Div(Class("topbar"), H1(Class("page-title"), Text(title))),
					Div(Class("content"), Group(body)),
				),
			),
			Script(Raw("if (window.lucide) { window.lucide.createIcons(); }")),
		),
	)
}

// errorPage is a script-free page for failures such as CSRF rejections.
func errorPage(title, message string) Node {
	return HTML(
		Lang("en"),
		pageHead(title),
		Body(
			Main(
				Class("layout"),
				H1(Class("page-title"), Text(title)),
				P(Text(message)),
				P(A(Href("/"), Text("Back to dashboard"))),
			),
		),
	)
}

func cardClass(extra ...string) string {
	return strings.Join(append([]string{"card"}, extra...), " ")
}

func quickFilterCard(placeholder string) Node {
	return Div(
		Class(cardClass("toolbar")),
		Label(Class("sr-only"), Text("Quick filter")),
		Input(Type("search"), Class("form-control"), Placeholder(placeholder), data.Bind("q"), AutoComplete("off")),
	)
}

// containsExpr is a Datastar expression that shows an element when the
// quick filter signal is empty or a substring of value.
func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func emptyStateCard(message string) Node {
	return Div(Class(cardClass("blankslate")), P(Class(classMuted), Text(message)))
}

func statusLabel(text, tone string) Node {
	className := "label"
	if tone != "" {
		className += " label-" + tone
	}
	return Span(Class(className), Text(text))
}

func tableCard(title, subtitle string, headers []string, rows []Node, empty string) Node {
	head := make([]Node, len(headers))
	for i, h := range headers {
		head[i] = Th(Text(h))
	}
	body := rows
	if len(rows) == 0 {
		body = []Node{Tr(Td(ColSpan(strconv.Itoa(len(headers))), Class(classMuted), Text(empty)))}
	}
	return Div(
		Class(cardClass("table-wrap")),
		H2(Text(title)),
		If(subtitle != "", P(Class(classMuted), Text(subtitle))),
		Table(THead(Tr(head...)), TBody(body...)),
	)
}

func formatMoney(d decimal.Decimal) string {
	return "€ " + d.StringFixed(2)
}

func formatMoneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return formatMoney(*d)
}

func stringPtr(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "-"
	}
	return *v
}

// formatCell renders one result value for display.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
