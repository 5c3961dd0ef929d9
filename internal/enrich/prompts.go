package enrich

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

const categorizeTmpl = `Give the categories: {{ join .Categories ", " }}
Which category should the following record be in? Reply only the raw category name, no other context allowed.
{{ .Record }}`

const describeTmpl = `下面是一張發票明細，想像你是{{ .Persona }}，請用{{ .Persona }}的語氣並以一句話來評論這張發票。如果有需要，可以適當加上顏文字
{{ .Record }}`

var funcs = template.FuncMap{"join": strings.Join}

var (
	categorizeTemplate = template.Must(template.New("categorize").Funcs(funcs).Parse(categorizeTmpl))
	describeTemplate   = template.Must(template.New("describe").Funcs(funcs).Parse(describeTmpl))
)

type promptData struct {
	Categories []string
	Persona    string
	Record     string
}

// RenderCategorizePrompt renders the prompt asking which of categories
// item belongs to.
func RenderCategorizePrompt(categories []string, item domain.InvoiceItem) (string, error) {
	record, err := compactJSON(struct {
		Item      string  `json:"item"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unitPrice"`
		Amount    float64 `json:"amount"`
	}{item.Name, item.Quantity, item.UnitPrice, item.TotalPrice})
	if err != nil {
		return "", err
	}
	return render(categorizeTemplate, promptData{Categories: categories, Record: record})
}

// RenderDescribePrompt renders the prompt asking persona to comment on inv.
func RenderDescribePrompt(persona string, inv *domain.Invoice) (string, error) {
	record, err := compactJSON(inv)
	if err != nil {
		return "", err
	}
	return render(describeTemplate, promptData{Persona: persona, Record: record})
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding prompt record: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
