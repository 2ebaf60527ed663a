package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/easel/internal/state"
)

const detailRows = 8

// renderJobs renders the job list with the selected job's detail below.
func (m Model) renderJobs() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	inner := max(1, height-2)

	if len(m.snapshot.Jobs) == 0 {
		empty := styles.FaintText.Render("No jobs yet. Press i, type a prompt and hit enter.")
		return m.renderBox("Jobs", empty, height)
	}

	listRows := max(1, inner-detailRows-1)
	lines := m.jobListLines(listRows)

	if job, ok := m.selectedJobValue(); ok && inner > listRows+1 {
		lines = append(lines, styles.FaintText.Render(strings.Repeat("─", max(0, m.width-4))))
		detail := m.jobDetailLines(job)
		if len(detail) > inner-len(lines) {
			detail = detail[:inner-len(lines)]
		}
		lines = append(lines, detail...)
	}

	return m.renderBox(fmt.Sprintf("Jobs (%d)", len(m.snapshot.Jobs)), strings.Join(lines, "\n"), height)
}

// jobListLines renders at most rows jobs, scrolled to keep the selection visible.
func (m Model) jobListLines(rows int) []string {
	styles := m.theme.Styles()
	jobs := m.snapshot.Jobs
	start := 0
	if m.selectedJob >= rows {
		start = m.selectedJob - rows + 1
	}
	end := min(len(jobs), start+rows)
	now := time.Now()

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		job := jobs[i]
		badge := styles.StatusStyle(string(job.Status)).Render(fmt.Sprintf("%-10s", job.Status))
		age := fmt.Sprintf("%4s", ago(now, job.CreatedAt))

		var tail string
		switch job.Status {
		case state.StatusGenerating, state.StatusUpscaling:
			tail = fmt.Sprintf(" %3d%%", job.Progress)
		}
		if job.Saved {
			tail += " ★"
		}

		width := max(10, m.width-24-len([]rune(tail)))
		text := truncate(singleLine(job.Prompt), width)
		row := fmt.Sprintf("%s %s %s%s", badge, styles.FaintText.Render(age), text, tail)
		if i == m.selectedJob {
			row = styles.Selected.Render("›") + " " + row
		} else {
			row = "  " + row
		}
		lines = append(lines, row)
	}
	return lines
}

// jobDetailLines describes one job.
func (m Model) jobDetailLines(job state.Job) []string {
	styles := m.theme.Styles()
	width := max(10, m.width-16)
	label := func(s string) string { return styles.MutedText.Render(fmt.Sprintf("%-9s", s)) }

	lines := []string{
		label("Prompt") + styles.Text.Render(truncate(singleLine(job.Prompt), width)),
		label("Params") + styles.Text.Render(fmt.Sprintf("sref %s  ar %s  s %d",
			job.Parameters.StyleReference, job.Parameters.AspectRatio, job.Parameters.StyleStrength)),
	}

	switch job.Status {
	case state.StatusPending:
		lines = append(lines, label("Status")+styles.FaintText.Render("submitting"))
	case state.StatusGenerating, state.StatusUpscaling:
		lines = append(lines, label("Progress")+styles.InfoText.Render(progressBar(job.Progress, 20))+
			styles.Text.Render(fmt.Sprintf(" %d%%", job.Progress)))
	case state.StatusError:
		lines = append(lines, label("Error")+styles.DangerText.Render(truncate(job.Error, width)))
	}

	if job.HasImage() {
		lines = append(lines, label("Image")+styles.InfoText.Render(truncateMiddle(job.ImageURL, width)))
	}

	for _, img := range job.ModifiedImages {
		name := fmt.Sprintf("%s %d", img.Kind, img.Choice)
		var value string
		switch img.State {
		case state.ImageReady:
			value = styles.SuccessText.Render(truncateMiddle(img.URL, width))
		case state.ImageFailed:
			value = styles.DangerText.Render(truncate("failed: "+img.Error, width))
		default:
			value = styles.InfoText.Render(progressBar(img.Progress, 10)) + styles.Text.Render(fmt.Sprintf(" %d%%", img.Progress))
		}
		lines = append(lines, label(name)+value)
	}

	if job.Saved {
		lines = append(lines, label("Saved")+styles.WarningText.Render(job.SavedReference))
	}
	return lines
}
