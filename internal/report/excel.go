package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Afrawles/standup/internal/activity"
)

type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

// Export writes standup_<date>.xlsx, or standup.xlsx when undated, with a
// Dashboard sheet and one sheet per repository, returning the file path
func (e *ExcelExporter) Export(s Summary) (string, error) {
	s = s.withDefaults()
	name := "standup.xlsx"
	if d := s.Day(); !d.IsZero() {
		name = fmt.Sprintf("standup_%s.xlsx", d.Format("2006-01-02"))
	}
	filename := filepath.Join(e.OutputDir, name)

	f := excelize.NewFile()
	defer f.Close()

	if err := e.createDashboardSheet(f, "Dashboard", s); err != nil {
		return "", fmt.Errorf("failed to create dashboard: %w", err)
	}

	used := map[string]bool{"Dashboard": true}
	for _, repo := range s.Repositories {
		sheetName := uniqueSheetName(sanitizeSheetName(repo.Name), used)
		if err := e.createRepoSheet(f, sheetName, repo); err != nil {
			return "", fmt.Errorf("failed to create sheet for %s: %w", repo.Name, err)
		}
	}

	if idx, err := f.GetSheetIndex("Dashboard"); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}
	return filename, nil
}

var border = []excelize.Border{
	{Type: "left", Color: "#000000", Style: 1},
	{Type: "right", Color: "#000000", Style: 1},
	{Type: "top", Color: "#000000", Style: 1},
	{Type: "bottom", Color: "#000000", Style: 1},
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
}

type repoCounts struct {
	events, commits, pullRequests, reviews, comments, other int
}

func countRepo(repo RepoActivity) repoCounts {
	c := repoCounts{events: len(repo.Events), commits: repo.CommitCount}
	for _, ev := range repo.Events {
		switch ev.Kind() {
		case activity.KindPullRequestOpened, activity.KindPullRequestOther:
			c.pullRequests++
		case activity.KindPullRequestReview:
			c.reviews++
		case activity.KindIssueComment, activity.KindReviewComment:
			c.comments++
		case activity.KindPush:
		default:
			c.other++
		}
	}
	return c
}

func (e *ExcelExporter) createDashboardSheet(f *excelize.File, sheetName string, s Summary) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	hdr, err := headerStyle(f)
	if err != nil {
		return err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#B4C7E7"}, Pattern: 1},
		Font:   &excelize.Font{Bold: true},
		Border: border,
	})
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Workday:")
	f.SetCellValue(sheetName, "B1", s.Date)
	f.SetCellValue(sheetName, "A2", "Window from (UTC):")
	f.SetCellValue(sheetName, "B2", s.Window.Start.UTC().Format("2006-01-02 15:04:05"))
	f.SetCellValue(sheetName, "A3", "Window to (UTC):")
	f.SetCellValue(sheetName, "B3", s.Window.End.UTC().Format("2006-01-02 15:04:05"))
	if s.Username != "" {
		f.SetCellValue(sheetName, "A4", "User:")
		f.SetCellValue(sheetName, "B4", s.Username)
	}

	headers := []string{"Repository", "Events", "Commits", "Pull Requests", "Reviews", "Comments", "Other"}
	row := 6
	for col, h := range headers {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, hdr)
	}
	row++

	var total repoCounts
	for _, repo := range s.Repositories {
		c := countRepo(repo)
		values := []any{repo.Name, c.events, c.commits, c.pullRequests, c.reviews, c.comments, c.other}
		for col, v := range values {
			f.SetCellValue(sheetName, cellName(col+1, row), v)
		}
		total.events += c.events
		total.commits += c.commits
		total.pullRequests += c.pullRequests
		total.reviews += c.reviews
		total.comments += c.comments
		total.other += c.other
		row++
	}

	if len(s.Repositories) == 0 {
		f.SetCellValue(sheetName, cellName(1, row), s.Message)
		row++
	}

	totals := []any{"Total", total.events, total.commits, total.pullRequests, total.reviews, total.comments, total.other}
	for col, v := range totals {
		cell := cellName(col+1, row)
		f.SetCellValue(sheetName, cell, v)
		f.SetCellStyle(sheetName, cell, cell, totalStyle)
	}

	if len(s.FailedRepos) > 0 {
		row += 2
		f.SetCellValue(sheetName, cellName(1, row), "Skipped repositories:")
		for _, name := range s.FailedRepos {
			row++
			f.SetCellValue(sheetName, cellName(1, row), name)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", columnLetter(len(headers)), 15)
	return nil
}

func (e *ExcelExporter) createRepoSheet(f *excelize.File, sheetName string, repo RepoActivity) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}
	hdr, err := headerStyle(f)
	if err != nil {
		return err
	}

	headers := []string{"#", "Time (UTC)", "Type", "Actor", "Summary", "Link"}
	for col, h := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, hdr)
	}

	plain := style{plain: true}
	for i, ev := range repo.Events {
		row := i + 2
		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), ev.CreatedAt.UTC().Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, cellName(3, row), ev.Type)
		f.SetCellValue(sheetName, cellName(4, row), ev.Actor)
		f.SetCellValue(sheetName, cellName(5, row), eventSummary(plain, ev))
		f.SetCellValue(sheetName, cellName(6, row), eventURL(ev))
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 18)
	f.SetColWidth(sheetName, "C", "D", 22)
	f.SetColWidth(sheetName, "E", "E", 70)
	f.SetColWidth(sheetName, "F", "F", 50)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return nil
}

// eventSummary is the detail line without its time prefix, commit subjects appended
func eventSummary(st style, ev activity.Event) string {
	line := st.eventLine(activity.Event{Type: ev.Type, Detail: ev.Detail})
	_, what, _ := strings.Cut(line, " ")
	if p, ok := ev.Detail.(activity.Push); ok {
		for _, c := range p.Commits {
			what += "\n" + c.ShortSHA + " " + subject(c.Message)
		}
	}
	return what
}

func eventURL(ev activity.Event) string {
	switch d := ev.Detail.(type) {
	case activity.Push:
		return d.URL
	case activity.PullRequestOpened:
		return d.URL
	case activity.PullRequestOther:
		return d.URL
	case activity.IssueComment:
		return d.URL
	case activity.PullRequestReview:
		return d.URL
	case activity.ReviewComment:
		return d.URL
	case activity.RefCreated:
		return d.URL
	}
	return repoURL(ev.Repo)
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, ":", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		name = "Repository"
	}
	return name
}

// uniqueSheetName suffixes names that collide after sanitizing and truncation
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)] || used[candidate]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(name)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[candidate] = true
	used[strings.ToLower(candidate)] = true
	return candidate
}
