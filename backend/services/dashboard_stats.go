package services

import (
	"sort"
	"time"

	"project/backend/models"
)

// DashboardStats derives read-only statistics from the activity log. Every
// method is a pure function of the log: safe to recompute repeatedly, never
// mutates stored state.
type DashboardStats struct {
	log *ActivityLog
	now func() time.Time
}

func NewDashboardStats(activityLog *ActivityLog) *DashboardStats {
	return &DashboardStats{log: activityLog, now: time.Now}
}

// StreakInfo carries the streak pair for one user.
type StreakInfo struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// Streaks computes the current and longest runs of consecutive UTC days with
// at least one event. The current streak, if still climbing, may exceed any
// previously recorded run, so Longest is max(longest run, current).
func (s *DashboardStats) Streaks(userID uint) (StreakInfo, error) {
	events, err := s.log.Query(ActivityFilter{UserID: userID})
	if err != nil {
		return StreakInfo{}, err
	}

	daySet := make(map[time.Time]struct{})
	for _, event := range events {
		daySet[TruncateToDay(event.CreatedAt)] = struct{}{}
	}
	if len(daySet) == 0 {
		return StreakInfo{}, nil
	}

	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	info := StreakInfo{}
	expected := TruncateToDay(s.now())
	for {
		if _, ok := daySet[expected]; !ok {
			break
		}
		info.Current++
		expected = expected.AddDate(0, 0, -1)
	}

	run := 1
	info.Longest = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > info.Longest {
			info.Longest = run
		}
	}
	if info.Current > info.Longest {
		info.Longest = info.Current
	}
	return info, nil
}

// DayOfWeekCount is one bucket of the Sun–Sat histogram.
type DayOfWeekCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ActivityByDayOfWeek counts all of the user's events per weekday,
// independent of date range.
func (s *DashboardStats) ActivityByDayOfWeek(userID uint) ([]DayOfWeekCount, error) {
	events, err := s.log.Query(ActivityFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	var buckets [7]int
	for _, event := range events {
		buckets[int(event.CreatedAt.UTC().Weekday())]++
	}

	histogram := make([]DayOfWeekCount, 7)
	for i := 0; i < 7; i++ {
		histogram[i] = DayOfWeekCount{Day: weekdayNames[i], Count: buckets[i]}
	}
	return histogram, nil
}

// PerformanceMetrics aggregates quiz scores and exercise completion.
type PerformanceMetrics struct {
	AverageQuizScore       float64 `json:"average_quiz_score"`
	ExerciseAttempts       int     `json:"exercise_attempts"`
	ExerciseCompletions    int     `json:"exercise_completions"`
	ExerciseCompletionRate float64 `json:"exercise_completion_rate"`
}

// Performance derives quiz and exercise metrics for a user. The completion
// rate is 0 when there were no attempts.
func (s *DashboardStats) Performance(userID uint) (PerformanceMetrics, error) {
	events, err := s.log.Query(ActivityFilter{
		UserID: userID,
		Types: []models.ActivityType{
			models.ActivityQuizAttempt, models.ActivityQuizComplete,
			models.ActivityExerciseAttempt, models.ActivityExerciseComplete,
		},
	})
	if err != nil {
		return PerformanceMetrics{}, err
	}

	metrics := PerformanceMetrics{}
	var scoreSum, scoreCount int
	for _, event := range events {
		switch event.ActivityType {
		case models.ActivityQuizAttempt, models.ActivityQuizComplete:
			if event.Score != nil {
				scoreSum += *event.Score
				scoreCount++
			}
		case models.ActivityExerciseAttempt:
			metrics.ExerciseAttempts++
		case models.ActivityExerciseComplete:
			metrics.ExerciseCompletions++
		}
	}
	if scoreCount > 0 {
		metrics.AverageQuizScore = float64(scoreSum) / float64(scoreCount)
	}
	if metrics.ExerciseAttempts > 0 {
		metrics.ExerciseCompletionRate = float64(metrics.ExerciseCompletions) / float64(metrics.ExerciseAttempts)
	}
	return metrics, nil
}

// TrendDay is one day of the 7-day progress trend.
type TrendDay struct {
	Date               string `json:"date"`
	LessonsCompleted   int    `json:"lessons_completed"`
	ExercisesCompleted int    `json:"exercises_completed"`
	QuizzesCompleted   int    `json:"quizzes_completed"`
	TimeSpentSeconds   int    `json:"time_spent_seconds"`
}

// ProgressTrend returns per-day completion counts and time spent for the last
// 7 UTC days, oldest first.
func (s *DashboardStats) ProgressTrend(userID uint) ([]TrendDay, error) {
	today := TruncateToDay(s.now())
	from := today.AddDate(0, 0, -6)

	events, err := s.log.Query(ActivityFilter{
		UserID: userID,
		From:   from,
		To:     today.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*TrendDay, 7)
	trend := make([]TrendDay, 7)
	for i := 0; i < 7; i++ {
		day := from.AddDate(0, 0, i)
		trend[i] = TrendDay{Date: day.Format("2006-01-02")}
		byDay[trend[i].Date] = &trend[i]
	}

	for _, event := range events {
		day, ok := byDay[TruncateToDay(event.CreatedAt).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch event.ActivityType {
		case models.ActivityLessonComplete:
			day.LessonsCompleted++
		case models.ActivityExerciseComplete:
			day.ExercisesCompleted++
		case models.ActivityQuizComplete:
			day.QuizzesCompleted++
		}
		day.TimeSpentSeconds += event.TimeSpentSecond
	}
	return trend, nil
}

// SubjectShare is one slice of the subject distribution.
type SubjectShare struct {
	Subject string  `json:"subject"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SubjectDistribution counts a user's events per subject.
func (s *DashboardStats) SubjectDistribution(userID uint) ([]SubjectShare, error) {
	events, err := s.log.Query(ActivityFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	total := 0
	for _, event := range events {
		if event.Subject == "" {
			continue
		}
		counts[normalizeSubject(event.Subject)]++
		total++
	}

	shares := make([]SubjectShare, 0, len(counts))
	for subject, count := range counts {
		share := SubjectShare{Subject: subject, Count: count}
		if total > 0 {
			share.Percent = 100 * float64(count) / float64(total)
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Subject < shares[j].Subject
	})
	return shares, nil
}
