// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
)

const (
	maxSampleBytes = 30000
	maxPaperBytes  = 120000
)

type schemaPromptData struct {
	Goal string
	HTML string
}

// schemaPromptTmpl asks for a JSON-CSS extraction schema for a listing page.
var schemaPromptTmpl = template.Must(template.New("schema").Parse(`You generate CSS-selector extraction schemas for web pages.

Goal: {{.Goal}}

Respond with a single JSON object of this form and nothing else:
{
  "name": "<short name>",
  "baseSelector": "<CSS selector matching one element per paper>",
  "fields": [
    {"name": "title", "selector": "<CSS selector>", "type": "text"},
    {"name": "authors", "selector": "<CSS selector>", "type": "list", "fields": [{"name": "author", "type": "text"}]},
    {"name": "paper_url", "selector": "<CSS selector>", "type": "attribute", "attribute": "href"}
  ]
}

Field types are "text", "attribute", "html", "list", "nested_list" and "nested".
Selectors in "fields" are relative to the element matched by "baseSelector".
Use the field names title, authors and paper_url exactly.

HTML sample:
{{.HTML}}
`))

type paperInfoPromptData struct {
	Paper string
}

// paperInfoPromptTmpl asks for author e-mails, datasets and the code URL.
var paperInfoPromptTmpl = template.Must(template.New("paperinfo").Parse(`You are an expert at reading scientific papers. Follow these steps:
1. Analyse the PAPER.
2. Extract from the PAPER:
   - the author e-mails "authors_mail" as an object mapping e-mail to author name, in the order the authors appear in the paper;
   - the datasets used in the paper "datasets" as an object mapping dataset name to URL;
   - the code repository URL "code_url".
3. Respond with JSON of this form: {"authors_mail": {"mail@example.com": "Name Surname"}, "datasets": {"name_1": "url"}, "code_url": "..."}
4. Use null for any value that is not found.
5. Do not provide any explanation or further text. Only provide the JSON.

PAPER:
{{.Paper}}
`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
