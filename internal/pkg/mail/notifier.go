package mail

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// SendFunc matches SendMail and exists so tests can swap the transport.
type SendFunc func(to, subject, body string) error

// EmailNotifier sends purchase and refund confirmations and records every
// attempt in the notification log. It never blocks or fails the payment
// flow: callers treat returned errors as log-only.
type EmailNotifier struct {
	db   *gorm.DB
	send SendFunc
}

// NewEmailNotifier creates a notifier writing its delivery log through db.
func NewEmailNotifier(db *gorm.DB) *EmailNotifier {
	return &EmailNotifier{db: db, send: SendMail}
}

// NewEmailNotifierWithSender creates a notifier with a custom transport.
func NewEmailNotifierWithSender(db *gorm.DB, send SendFunc) *EmailNotifier {
	return &EmailNotifier{db: db, send: send}
}

// SendPurchaseConfirmation emails the order confirmation to the customer.
func (n *EmailNotifier) SendPurchaseConfirmation(ctx context.Context, order *models.Order) error {
	_ = ctx
	subject := fmt.Sprintf("Your order %s is confirmed", order.UUID)
	return n.deliver(order, models.NotificationKindPurchaseConfirmation, subject, purchaseBody(order))
}

// SendRefundConfirmation emails the refund confirmation to the customer.
func (n *EmailNotifier) SendRefundConfirmation(ctx context.Context, order *models.Order) error {
	_ = ctx
	subject := fmt.Sprintf("Your order %s has been refunded", order.UUID)
	return n.deliver(order, models.NotificationKindRefundConfirmation, subject, refundBody(order))
}

func (n *EmailNotifier) deliver(order *models.Order, kind, subject, body string) error {
	entry := models.NotificationLog{
		Recipient: order.CustomerEmail,
		Kind:      kind,
		Status:    models.NotificationStatusSent,
	}
	orderID := order.ID
	entry.OrderID = &orderID

	err := n.send(order.CustomerEmail, subject, body)
	if err != nil {
		entry.Status = models.NotificationStatusFailed
		entry.Error = err.Error()
	}
	if logErr := n.db.Create(&entry).Error; logErr != nil {
		log.Printf("mail: failed to record %s for order %d: %v", kind, order.ID, logErr)
	}
	return err
}

func purchaseBody(order *models.Order) string {
	var b strings.Builder
	b.WriteString("<h2>Thanks for your purchase!</h2>")
	if order.CustomerName != "" {
		fmt.Fprintf(&b, "<p>Hi %s,</p>", order.CustomerName)
	}
	fmt.Fprintf(&b, "<p>Your order <strong>%s</strong> is complete.</p>", order.UUID)
	b.WriteString("<ul>")
	for _, item := range order.LineItems {
		fmt.Fprintf(&b, "<li>%s &mdash; %s</li>", item.ProductName, formatAmount(item.Amount, item.Currency))
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Total: <strong>%s</strong></p>", formatAmount(order.Total, order.Currency))
	b.WriteString("<p>Your access is active now. This email is only a receipt.</p>")
	return b.String()
}

func refundBody(order *models.Order) string {
	var b strings.Builder
	b.WriteString("<h2>Your refund has been processed</h2>")
	if order.CustomerName != "" {
		fmt.Fprintf(&b, "<p>Hi %s,</p>", order.CustomerName)
	}
	fmt.Fprintf(&b, "<p>Order <strong>%s</strong> (%s) has been refunded and the related access was deactivated.</p>",
		order.UUID, formatAmount(order.Total, order.Currency))
	return b.String()
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100, strings.ToUpper(currency))
}
