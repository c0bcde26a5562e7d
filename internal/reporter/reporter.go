package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/models"
	"github.com/taskfocus/taskfocus/pkg/utils"
)

// Reporter aggregates the session journal into focus-time reports
type Reporter struct {
	repo *database.Repository
	loc  *time.Location
	now  func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo *database.Repository) *Reporter {
	return &Reporter{
		repo: repo,
		loc:  cfg.Location(),
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	// SQL does the SUM; derived fields are filled in here
	summaries, err := r.repo.GetTaskSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get task summary")
	}

	var totalMs int64
	var completed int
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalMs) / 60000.0
		summaries[i].TotalHours = float64(summaries[i].TotalMs) / 3600000.0
		totalMs += summaries[i].TotalMs
		completed += summaries[i].Completed
	}

	if totalMs > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalMs) / float64(totalMs)) * 100.0
		}
	}

	return &models.Report{
		Period:       *period,
		Tasks:        summaries,
		TotalMs:      totalMs,
		TotalMinutes: float64(totalMs) / 60000.0,
		TotalHours:   float64(totalMs) / 3600000.0,
		Completed:    completed,
		GeneratedAt:  r.now(),
	}, nil
}

func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Focus Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Focus: %s (%d completed)\n\n", utils.FormatElapsedMs(report.TotalMs), report.Completed)

	if len(report.Tasks) == 0 {
		b.WriteString("No focus sessions recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %9s %10s %9s\n", "Task", "Focus", "Sessions", "Completed", "Percent")
	b.WriteString(strings.Repeat("-", 72) + "\n")

	for _, task := range report.Tasks {
		name := task.TaskName
		if name == "" {
			name = task.TaskID
		}
		fmt.Fprintf(&b, "%-30s %10s %9d %10d %8.1f%%\n",
			utils.Truncate(name, 30),
			utils.FormatElapsedMs(task.TotalMs),
			task.Sessions,
			task.Completed,
			task.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
