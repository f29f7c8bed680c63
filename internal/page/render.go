package page

import (
	"fmt"
	"html/template"
	"io"
	"text/tabwriter"
)

// Snapshot is a copy of the visible state of a door page.
type Snapshot struct {
	Status          string
	Timestamp       string
	Connection      string
	ConnectionColor string
	Rows            [][]string
}

// Snapshot copies the door page state. Missing elements read as empty.
func (d *Document) Snapshot() Snapshot {
	var snap Snapshot
	if el := d.GetElementByID(IDStatus); el != nil {
		snap.Status = el.Text
	}
	if el := d.GetElementByID(IDTimestamp); el != nil {
		snap.Timestamp = el.Text
	}
	if el := d.GetElementByID(IDConnectionStatus); el != nil {
		snap.Connection = el.Text
		snap.ConnectionColor = el.Color
	}
	snap.Rows = d.LogRows()
	return snap
}

// LogRows returns a copy of the update log rows.
func (d *Document) LogRows() [][]string {
	el := d.GetElementByID(IDUpdateLog)
	if el == nil || len(el.Rows) == 0 {
		return nil
	}
	rows := make([][]string, len(el.Rows))
	for i, row := range el.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return rows
}

// RenderText writes a terminal rendering of the door page.
func (d *Document) RenderText(w io.Writer) error {
	snap := d.Snapshot()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Door state:\t%s\n", snap.Status)
	fmt.Fprintf(tw, "Last update:\t%s\n", snap.Timestamp)
	if snap.Connection != "" {
		fmt.Fprintf(tw, "Connection:\t%s (%s)\n", snap.Connection, snap.ConnectionColor)
	}
	if log := d.GetElementByID(IDUpdateLog); log != nil {
		fmt.Fprintln(tw)
		for i, cell := range log.Header {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
		for _, row := range log.Rows {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, cell)
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

var htmlPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- range .Scripts}}
<script src="{{.}}"></script>
{{- end}}
</head>
<body>
<h1>{{.Title}}</h1>
{{- range .Elements}}
{{- if eq .Tag "table"}}
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody id="{{.ID}}">
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- else if eq .Tag "button"}}
<button id="{{.ID}}">{{.Text}}</button>
{{- else}}
<p><span id="{{.ID}}"{{if .Color}} style="color: {{.Color}}"{{end}}>{{.Text}}</span></p>
{{- end}}
{{- end}}
</body>
</html>
`))

// RenderHTML writes the page markup. scripts are emitted as script tags.
func (d *Document) RenderHTML(w io.Writer, scripts ...string) error {
	data := struct {
		Title    string
		Scripts  []string
		Elements []*Element
	}{
		Title:    d.Title,
		Scripts:  scripts,
		Elements: d.Elements(),
	}
	return htmlPage.Execute(w, data)
}
