package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/diag-leads/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var assignedTemplate = template.Must(template.ParseFS(templateFS, "templates/lead_assigned.html"))

// Dialer é satisfeito por *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// AssignmentMailer avisa o vendedor por e-mail quando recebe um lead.
type AssignmentMailer struct {
	Sender EmailSender
	Users  entity.UserDirectoryInterface
	Dialer Dialer

	logger *zap.Logger
}

func NewAssignmentMailer(sender EmailSender, users entity.UserDirectoryInterface) *AssignmentMailer {
	return &AssignmentMailer{
		Sender: sender,
		Users:  users,
		Dialer: gomail.NewDialer(sender.Host, sender.Port, sender.User, sender.Password),
		logger: zap.L().With(zap.String("component", "assignment_mailer")),
	}
}

// Notify ignora tudo que não for lead.assigned.
func (s *AssignmentMailer) Notify(ctx context.Context, event entity.LeadEvent) error {
	if event.Type != entity.EventLeadAssigned || event.AssignedTo == "" {
		return nil
	}

	user, err := s.Users.FindUser(ctx, event.AssignedTo)
	if err != nil {
		return eris.Wrapf(err, "mail: lookup assignee %s", event.AssignedTo)
	}
	if user.Email == "" {
		s.logger.Warn("responsável sem e-mail, aviso não enviado", zap.String("user_id", user.ID))
		return nil
	}

	data := AssignmentEmailData{AssigneeName: user.Name}
	leadName := event.LeadID
	if l := event.Lead; l != nil {
		leadName = l.Name
		data.Company = l.Company
		data.Phone = l.Phone
		data.Email = l.Email
		data.Location = location(l)
		data.Status = string(l.Status)
		data.Message = l.Message
	}
	data.LeadName = leadName

	var body bytes.Buffer
	if err := assignedTemplate.Execute(&body, data); err != nil {
		return eris.Wrap(err, "erro ao processar template")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.Sender.From)
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", fmt.Sprintf("Novo lead atribuído: %s", leadName))
	m.SetBody("text/html", body.String())

	if err := s.Dialer.DialAndSend(m); err != nil {
		return eris.Wrap(err, "erro ao enviar email SMTP")
	}

	s.logger.Info("aviso de atribuição enviado", zap.String("lead_id", event.LeadID), zap.String("to", user.Email))
	return nil
}

func location(l *entity.Lead) string {
	var parts []string
	for _, p := range []string{l.Cidade, l.Estado, l.Pais} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}
