package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	"float": func(v *float64) string { return strconv.FormatFloat(*v, 'f', -1, 64) },
	"kind":  func(k string) string { return kindConsts[k] },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(registryTmpl))

// renderTemplate executes a named template into the builder.
func renderTemplate(b *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		panic(fmt.Sprintf("template %s: %v", name, err))
	}
}

const registryTmpl = `{{define "registry"}}// Code generated by greenhouse-fieldgen. DO NOT EDIT.

package field

const (
{{- range $gi, $g := .Groups}}
{{- if $gi}}
{{end}}
	// {{$g.Comment}}
{{- range $fi, $f := $g.Fields}}
	{{$f.Name}}{{if and (eq $gi 0) (eq $fi 0)}} ID = iota + 1{{end}}
{{- end}}
{{- end}}
)

// order lists the fields in declaration order.
var order = []ID{
{{- range .Groups}}{{range .Fields}}
	{{.Name}},
{{- end}}{{end}}
}

var registry = map[ID]*Metadata{
{{- range $g := .Groups}}{{range .Fields}}
	{{.Name}}: {
		ID: {{.Name}}, Kind: {{kind $g.Kind}}, Key: {{quote .Key}}, Name: {{quote .Label}},
{{- if .Unit}} Unit: {{quote .Unit}},{{end}}
{{- if .Actuator}} ActuatorID: {{.Actuator}},{{end}}
{{- if .Step}}
		Min: {{float .Min}}, Max: {{float .Max}}, Step: {{float .Step}}, SetpointPath: {{quote .Path}},
{{- end}}
	},
{{- end}}{{end}}
}
{{end}}`
