package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as JSON or a PDF report",
		RunE:  runExport,
	}
	f := cmd.Flags()
	addDBFlags(f)
	f.String("format", "json", "Output format (json, pdf)")
	f.Int64("user", 0, "Only export results of this user ID (0 = all users)")
	f.StringP("lang", "l", "en", "Report language for PDF output (en, es)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, db, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	format := v.GetString("format")
	if format != "json" && format != "pdf" {
		return fmt.Errorf("unsupported export format %q", format)
	}

	export, err := db.ExportResults(cmd.Context(), v.GetInt64("user"))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "pdf" {
		lang := v.GetString("lang")
		if err := appI18n.Init(lang); err != nil {
			return fmt.Errorf("init i18n: %w", err)
		}
		return writeResultsPDF(appI18n.WithLang(cmd.Context(), lang), w, export)
	}
	return writeResultsJSON(w, export)
}

func writeResultsJSON(w io.Writer, export model.ResultsExport) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

// writeResultsPDF renders a performance report table, newest results first.
func writeResultsPDF(ctx context.Context, w io.Writer, export model.ResultsExport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(appI18n.T(ctx, "ReportTitle"), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(appI18n.T(ctx, "AppTitle")+": "+appI18n.T(ctx, "ReportTitle")), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if export.UserID != 0 {
		pdf.CellFormat(0, 6, tr(appI18n.Td(ctx, "ReportUser", map[string]any{"ID": export.UserID})), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, export.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(export.Results) == 0 {
		pdf.CellFormat(0, 8, tr(appI18n.T(ctx, "ReportEmpty")), "", 1, "L", false, 0, "")
		return pdf.Output(w)
	}

	widths := []float64{35, 55, 25, 25, 40}
	headers := []string{
		appI18n.T(ctx, "ReportDate"),
		appI18n.T(ctx, "ReportSubject"),
		appI18n.T(ctx, "ReportGrade"),
		appI18n.T(ctx, "ReportScore"),
		"",
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range export.Results {
		row := []string{
			r.SubmittedAt.Format("2006-01-02 15:04"),
			r.SubjectName,
			r.GradeLevel,
			strconv.FormatFloat(r.Score, 'f', 2, 64) + "%",
			appI18n.Tp(ctx, "QuestionsCorrect", r.CorrectQuestions) + " / " + strconv.Itoa(r.TotalQuestions),
		}
		for i, cell := range row {
			align := "L"
			if i == 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
