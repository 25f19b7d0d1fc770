package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	Name       string // display name used for registration
	Email      string // account email; generated when empty
	Entries    int    // number of metric entries to submit
	Seed       int64  // generator seed
	Keep       bool   // skip deleting the history at the end
	OutputFile string // optional YAML report path
}

// Stats holds the outcome of a smoke run.
type Stats struct {
	Email          string        `yaml:"email"`
	Submitted      int           `yaml:"submitted"`
	Verified       int           `yaml:"verified"`
	Score          float64       `yaml:"score"`
	ScoreInRange   bool          `yaml:"score_in_range"`
	Deleted        bool          `yaml:"deleted"`
	StartTime      time.Time     `yaml:"start_time"`
	EndTime        time.Time     `yaml:"end_time"`
	Duration       time.Duration `yaml:"duration"`
	StepDurations  []StepTiming  `yaml:"steps"`
	GeneratedInput []Entry       `yaml:"entries"`
}

// StepTiming records how long one step took.
type StepTiming struct {
	Step     string        `yaml:"step"`
	Duration time.Duration `yaml:"duration"`
}

// Entry is one generated day of metrics.
type Entry struct {
	Steps      int     `yaml:"steps"`
	Calories   float64 `yaml:"calories"`
	SleepHours float64 `yaml:"sleep_hours"`
}
