package pdf

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"

	"siraqemir/internal/models"
)

// Generator renders an owner's task list (удобно мокать в тестах).
type Generator interface {
	TaskList(w io.Writer, data TaskListData) error
}

type TaskListData struct {
	Owner       string
	Tasks       []models.Task
	GeneratedAt time.Time
}

// TaskListGenerator uses a UTF-8 TTF when FontPath points to one and
// falls back to the core Helvetica font otherwise.
type TaskListGenerator struct {
	FontPath string // например "assets/fonts/DejaVuSans.ttf"
	fontName string
}

func NewTaskListGenerator(fontPath string) *TaskListGenerator {
	return &TaskListGenerator{FontPath: fontPath, fontName: "DejaVu"}
}

func (g *TaskListGenerator) TaskList(w io.Writer, data TaskListData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Tasks", false)
	pdf.SetAuthor("Sira Qemir", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	font, tr := g.setupFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(font, "B", 18)
	pdf.CellFormat(0, 10, "Tasks", "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 11)
	sub := fmt.Sprintf("%s  -  %s", data.Owner, data.GeneratedAt.UTC().Format("02.01.2006 15:04 UTC"))
	pdf.CellFormat(0, 7, tr(sub), "", 1, "C", false, 0, "")
	hr(pdf)

	if len(data.Tasks) == 0 {
		pdf.Ln(4)
		pdf.CellFormat(0, 7, "No tasks.", "", 1, "L", false, 0, "")
	}

	for i, t := range data.Tasks {
		pdf.Ln(2)
		mark := "[ ]"
		if t.Status == models.StatusCompleted {
			mark = "[x]"
		}
		pdf.SetFont(font, "B", 12)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s %s", i+1, mark, t.Title)), "", "L", false)

		pdf.SetFont(font, "", 10)
		meta := fmt.Sprintf("Priority: %s   Status: %s", t.Priority, t.Status)
		if t.DueDate != nil {
			meta += "   Due: " + t.DueDate.String()
		}
		pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")
		if t.Description != "" {
			pdf.SetFont(font, "", 10)
			pdf.MultiCell(0, 5, tr(t.Description), "", "L", false)
		}
		hr(pdf)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render task list: %w", err)
	}
	return nil
}

func (g *TaskListGenerator) setupFont(pdf *gofpdf.Fpdf) (string, func(string) string) {
	if g.FontPath != "" {
		if _, err := os.Stat(g.FontPath); err == nil {
			// AddUTF8Font принимает путь до TTF
			pdf.AddUTF8Font(g.fontName, "", g.FontPath)
			pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
			return g.fontName, func(s string) string { return s }
		}
	}
	return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
