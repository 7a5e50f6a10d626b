// internal/services/notification_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"gorm.io/gorm"

	"github.com/communityos/tickets-api/internal/config"
	"github.com/communityos/tickets-api/internal/models"
)

// NotificationService sends transactional email after successful state
// transitions. Callers invoke it asynchronously after commit; a failure here
// is logged by the caller and never rolls back the business transaction.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

func (s *NotificationService) SendTicketsClaimedNotification(order *models.PurchaseOrder) error {
	var user models.User
	if err := s.db.First(&user, order.UserID).Error; err != nil {
		return fmt.Errorf("failed to load order user: %w", err)
	}

	data := map[string]interface{}{
		"Name":     user.Name,
		"OrderID":  order.ID.String(),
		"Tickets":  len(order.UserTickets),
		"OrderURL": fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, order.ID),
	}

	body, err := s.renderTemplate(ticketsClaimedTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, "Your tickets are confirmed", body)
}

func (s *NotificationService) SendTicketApprovedNotification(ticket *models.UserTicket) error {
	var user models.User
	if err := s.db.First(&user, ticket.UserID).Error; err != nil {
		return fmt.Errorf("failed to load ticket user: %w", err)
	}

	var ticketTemplate models.TicketTemplate
	if err := s.db.Preload("Event").First(&ticketTemplate, ticket.TicketTemplateID).Error; err != nil {
		return fmt.Errorf("failed to load ticket template: %w", err)
	}

	data := map[string]interface{}{
		"Name":      user.Name,
		"Ticket":    ticketTemplate.Name,
		"Event":     ticketTemplate.Event.Name,
		"TicketURL": fmt.Sprintf("%s/tickets/%s", s.config.Frontend.BaseURL, ticket.ID),
	}

	body, err := s.renderTemplate(ticketApprovedTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, "Your ticket was approved", body)
}

func (s *NotificationService) SendAddonsClaimedNotification(order *models.PurchaseOrder) error {
	var user models.User
	if err := s.db.First(&user, order.UserID).Error; err != nil {
		return fmt.Errorf("failed to load order user: %w", err)
	}

	data := map[string]interface{}{
		"Name":         user.Name,
		"OrderID":      order.ID.String(),
		"PaymentLink":  order.PaymentLink,
		"NeedsPayment": order.RequiresPayment(),
	}

	body, err := s.renderTemplate(addonsClaimedTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := "Your addons are confirmed"
	if order.RequiresPayment() {
		subject = "Complete your addon purchase"
	}
	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) SendOrderPaidNotification(order *models.PurchaseOrder) error {
	var user models.User
	if err := s.db.First(&user, order.UserID).Error; err != nil {
		return fmt.Errorf("failed to load order user: %w", err)
	}

	data := map[string]interface{}{
		"Name":     user.Name,
		"OrderID":  order.ID.String(),
		"OrderURL": fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, order.ID),
	}

	body, err := s.renderTemplate(orderPaidTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, "Payment received", body)
}

const ticketsClaimedTemplate = `
<h2>Hi {{.Name}},</h2>
<p>Your order is confirmed and includes {{.Tickets}} ticket(s).</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
`

const ticketApprovedTemplate = `
<h2>Hi {{.Name}},</h2>
<p>Your ticket <strong>{{.Ticket}}</strong> for {{.Event}} was approved.</p>
<p><a href="{{.TicketURL}}">View your ticket</a></p>
`

const addonsClaimedTemplate = `
<h2>Hi {{.Name}},</h2>
{{if .NeedsPayment}}
<p>Your addons for order {{.OrderID}} are reserved. Complete the payment to confirm them.</p>
<p><a href="{{.PaymentLink}}">Pay now</a></p>
{{else}}
<p>Your addons for order {{.OrderID}} are confirmed.</p>
{{end}}
`

const orderPaidTemplate = `
<h2>Hi {{.Name}},</h2>
<p>We received your payment for order {{.OrderID}}. Everything is confirmed.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
`

func (s *NotificationService) renderTemplate(tmpl string, data map[string]interface{}) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPUsername == "" {
		return errors.New("email delivery is not configured")
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)
	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body)

	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, []byte(msg))
}
