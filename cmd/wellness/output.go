package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/okian/wellness/internal/app"
	"github.com/okian/wellness/internal/domain/model"
)

const timestampLayout = "2006-01-02 15:04"

func printHistory(w io.Writer, history []model.MetricEntry) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No metrics recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSTEPS\tCALORIES\tSLEEP (h)")
	for _, e := range history {
		date := "-"
		if !e.Timestamp.IsZero() {
			date = e.Timestamp.Format(timestampLayout)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\n", date, e.Steps, e.CaloriesBurned, e.SleepHours)
	}
	_ = tw.Flush()
}

func printScore(w io.Writer, st app.SessionState) {
	switch {
	case st.Score != nil:
		fmt.Fprintf(w, "Wellness score: %s\n", st.Score)
	case st.ScoreState == model.ScorePending:
		fmt.Fprintln(w, "Wellness score: calculating...")
	}
}

func printMessage(w io.Writer, st app.SessionState) {
	if st.Message != "" {
		fmt.Fprintln(w, st.Message)
	}
}

func printDraft(w io.Writer, d model.Draft) {
	field := func(name string, set bool, v string) {
		if !set {
			v = "-"
		}
		fmt.Fprintf(w, "  %-9s %s\n", name+":", v)
	}
	steps, cal, sleep := "", "", ""
	if d.Steps != nil {
		steps = fmt.Sprint(*d.Steps)
	}
	if d.CaloriesBurned != nil {
		cal = fmt.Sprint(*d.CaloriesBurned)
	}
	if d.SleepHours != nil {
		sleep = fmt.Sprint(*d.SleepHours)
	}
	field("steps", d.Steps != nil, steps)
	field("calories", d.CaloriesBurned != nil, cal)
	field("sleep", d.SleepHours != nil, sleep)
}

// syncWriter serializes writes from the dispatcher and the command loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
