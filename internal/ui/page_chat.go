package ui

import (
	"fmt"
	"strconv"

	"invoice-analytics/internal/domain"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

// Element ids patched by the ask stream.
const (
	sessionElementID = "chat-session"
	noticeElementID  = "chat-notice"
)

func chatPage(chatID, csrfToken string, s domain.Session) Node {
	ask := fmt.Sprintf("@post('/chat/%s/ask', {headers: {'%s': %s}})", chatID, csrfHeaderName, strconv.Quote(csrfToken))

	return appPage("Chat with Data", "chat",
		Div(
			Class(cardClass()),
			data.Signals(map[string]any{"question": ""}),
			Form(
				Class("chat-form"),
				Attr("data-on:submit__prevent", ask),
				Input(
					Type("text"),
					Class("form-control"),
					Name("question"),
					Placeholder("Ask a question about your invoices..."),
					AutoComplete("off"),
					data.Bind("question"),
				),
				Button(Type("submit"), Class(classPrimaryButton), Text("Ask")),
			),
		),
		noticeView("", ""),
		sessionView(chatID, s),
		P(A(Href("/chat"), Text("Start a new chat"))),
	)
}

// noticeView renders transient feedback about the last ask, such as a
// rejected question while another one is streaming.
func noticeView(message, tone string) Node {
	if message == "" {
		return Div(ID(noticeElementID))
	}
	return Div(ID(noticeElementID), Class("notice notice-"+tone), Attr("role", "status"), Text(message))
}

func statusTone(s domain.SessionStatus) string {
	switch s {
	case domain.SessionSending, domain.SessionStreaming:
		return "attention"
	case domain.SessionDone:
		return "success"
	case domain.SessionFailed:
		return "danger"
	default:
		return ""
	}
}

func sessionView(chatID string, s domain.Session) Node {
	if s.Status == domain.SessionIdle || s.Status == "" {
		return Div(ID(sessionElementID), emptyStateCard("Ask a question to get started."))
	}

	return Div(
		ID(sessionElementID),
		Div(
			Class(cardClass()),
			H2(Text(s.Query)),
			statusLabel(string(s.Status), statusTone(s.Status)),
			logView(s.Log),
		),
		Iff(s.CandidateQuery != nil, func() Node { return candidateView(*s.CandidateQuery) }),
		Iff(s.ResultRows != nil, func() Node { return resultView(chatID, s) }),
		Iff(s.Error != nil, func() Node { return errorView(*s.Error) }),
	)
}

func logView(entries []domain.LogEntry) Node {
	items := make([]Node, 0, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case domain.LogSQL:
			items = append(items, Li(Pre(Class("log-sql"), Code(Text(e.SQL)))))
		case domain.LogError:
			items = append(items, Li(Class("log-error"), Text(e.Text)))
		case domain.LogNarration:
			items = append(items, Li(Class("log-narration"), Text(e.Text)))
		default:
			items = append(items, Li(Class("log-info"), Text(e.Text)))
		}
	}
	return Ul(Class("chat-log"), Group(items))
}

func candidateView(sql string) Node {
	return Div(Class(cardClass()), H2(Text("Generated SQL")), Pre(Class("sql"), Code(Text(sql))))
}

func errorView(msg string) Node {
	return Div(Class(cardClass("error-box")), H2(Text("Error")), P(Text(msg)))
}

func resultView(chatID string, s domain.Session) Node {
	rows := make([]Node, 0, len(s.ResultRows))
	for _, r := range s.ResultRows {
		cells := make([]Node, len(s.ResultColumns))
		for i, col := range s.ResultColumns {
			cells[i] = Td(Text(formatCell(r[col])))
		}
		rows = append(rows, Tr(cells...))
	}

	summary := fmt.Sprintf("%d rows received.", len(s.ResultRows))
	if s.ResultRowCount != nil {
		summary = fmt.Sprintf("%d rows received, %d reported.", len(s.ResultRows), *s.ResultRowCount)
	}

	var links Node
	if len(s.ResultColumns) > 0 && s.Status.Terminal() {
		exports := make([]Node, 0, 3)
		for _, f := range []string{"csv", "parquet", "json"} {
			exports = append(exports, A(
				Class("btn"),
				Href(fmt.Sprintf("/chat/%s/export?format=%s", chatID, f)),
				Text("Download "+f),
			))
		}
		links = Div(Class("export-links"), Group(exports))
	}

	return Div(
		Class(cardClass()),
		tableCard("Result", summary, s.ResultColumns, rows, "The query returned no rows."),
		links,
	)
}
