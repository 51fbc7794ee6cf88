package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/jonny/insight-bot/internal/domain/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Builder renders summarization prompts from domain records.
type Builder struct {
	templates *template.Template
	maxWords  int
}

// NewBuilder parses all embedded templates and returns a Builder. Prompts ask
// for at most maxWords words.
func NewBuilder(maxWords int) (*Builder, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("2006-01-02") },
		"inc":  func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Builder{templates: tmpl, maxWords: maxWords}, nil
}

type customerInput struct {
	Customer model.CustomerSnapshot
	MaxWords int
}

type ordersInput struct {
	Batch    model.OrderBatch
	MaxWords int
}

// Customer renders the customer summary prompt.
func (b *Builder) Customer(c model.CustomerSnapshot) (string, error) {
	return b.execute("customer.tmpl", customerInput{Customer: c, MaxWords: b.maxWords})
}

// Orders renders the order batch summary prompt. Only the orders in the batch
// are listed.
func (b *Builder) Orders(batch model.OrderBatch) (string, error) {
	return b.execute("orders.tmpl", ordersInput{Batch: batch, MaxWords: b.maxWords})
}

// NextActions renders the next-best-actions prompt for a customer.
func (b *Builder) NextActions(c model.CustomerSnapshot) (string, error) {
	return b.execute("next_actions.tmpl", customerInput{Customer: c, MaxWords: b.maxWords})
}

func (b *Builder) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
