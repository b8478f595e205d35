package notifsvc

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/essay"
	"github.com/allii5/TextInsight/core/user"
)

const lookupTimeout = 5 * time.Second

// EmailNotifier delivers student notifications by email.
type EmailNotifier struct {
	users  user.Repository
	mail   core.EmailService
	logger core.Logger
}

var _ essay.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(users user.Repository, mail core.EmailService, logger core.Logger) *EmailNotifier {
	return &EmailNotifier{users: users, mail: mail, logger: logger}
}

func (n *EmailNotifier) Notify(studentID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	usr, err := n.users.GetUserByID(ctx, studentID)
	if err != nil {
		n.logger.Error("notifying student "+studentID, err)
		return
	}
	n.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "New feedback available",
		BodyStr: message,
	})
}

// RecordingNotifier captures notifications for inspection in tests.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

type Notification struct {
	StudentID string
	Message   string
}

var _ essay.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Notify(studentID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{StudentID: studentID, Message: message})
}

func (n *RecordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
