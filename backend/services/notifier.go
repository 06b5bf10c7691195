package services

import (
	"fmt"
	"log"
	"time"
)

// Notification is one outbound notification kind. Each variant knows how to
// render itself; delivery belongs to an external collaborator behind Notifier.
type Notification interface {
	Kind() string
	Title() string
	Render() string
}

// CertificateNotification announces a freshly issued certificate.
type CertificateNotification struct {
	UserID   uint
	Subject  string
	IssuedAt time.Time
}

func (n CertificateNotification) Kind() string  { return "certificate_issued" }
func (n CertificateNotification) Title() string { return "Certificate earned" }
func (n CertificateNotification) Render() string {
	return fmt.Sprintf("user %d earned the %s certificate at %s",
		n.UserID, n.Subject, n.IssuedAt.Format(time.RFC3339))
}

// CourseCompletedNotification announces a subject reaching 100%.
type CourseCompletedNotification struct {
	UserID  uint
	Subject string
}

func (n CourseCompletedNotification) Kind() string  { return "course_completed" }
func (n CourseCompletedNotification) Title() string { return "Course completed" }
func (n CourseCompletedNotification) Render() string {
	return fmt.Sprintf("user %d completed all items in %s", n.UserID, n.Subject)
}

// Notifier hands notifications to whatever delivers them. Injected into the
// tracker so the engine holds no process-wide delivery state.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier is the default delivery: it only logs. Suitable for tests and
// for deployments where a separate worker tails the activity log instead.
type LogNotifier struct {
	Logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(notification Notification) {
	n.Logger.Printf("notify [%s] %s: %s",
		notification.Kind(), notification.Title(), notification.Render())
}
