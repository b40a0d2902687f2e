package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	colorPositive     = "#006400"
	colorNegative     = "#c42020"
	colorNegativeDark = "#7d0d0d"
)

// Renderer turns a Model into the report HTML page
type Renderer struct {
	tmpl   *template.Template
	logger *logger.Logger
}

// NewRenderer parses the embedded page template
func NewRenderer(log *logger.Logger) *Renderer {
	funcs := template.FuncMap{
		"styleReturn": styleReturn,
		"money":       money,
		"shortDate":   func(t time.Time) string { return t.Format(contracts.DateLayout) },
	}
	tmpl := template.Must(template.New("report").Funcs(funcs).ParseFS(templateFS, "templates/report.html.tmpl"))
	return &Renderer{
		tmpl:   tmpl,
		logger: log.WithComponent("renderer"),
	}
}

// Render writes the page HTML for one model
func (r *Renderer) Render(w io.Writer, model *Model) error {
	return r.tmpl.ExecuteTemplate(w, "report.html.tmpl", model)
}

// WriteFile renders the model into dir and returns the written path
func (r *Renderer) WriteFile(model *Model, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, model); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	path := filepath.Join(dir, FileName(model.RunDate))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"path":  path,
		"bytes": buf.Len(),
	}).Info("Report written")
	return path, nil
}

// FileName is the on-disk name for one run date's report
func FileName(runDate time.Time) string {
	return fmt.Sprintf("momentum_%s.html", contracts.FormatDate(runDate))
}

// styleReturn renders a signed 1-decimal percent span. The darker
// palette only changes the negative shade; a "-" stands in for values
// that could not be computed.
func styleReturn(val float64, darker bool) template.HTML {
	if math.IsNaN(val) {
		return "-"
	}
	sign := "+"
	color := colorPositive
	if val < 0 {
		sign = "−"
		color = colorNegative
		if darker {
			color = colorNegativeDark
		}
	}
	return template.HTML(fmt.Sprintf(`<span style="color:%s;">%s%.1f%%</span>`, color, sign, math.Abs(val)*100))
}

// money renders a dollar price, a dash when unknown
func money(val float64) string {
	if math.IsNaN(val) {
		return "$—"
	}
	return fmt.Sprintf("$%.2f", val)
}
