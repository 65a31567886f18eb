// Package notify tells the outside world about generated bills.
package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/pkg/clients/whatsapp"
)

// WhatsAppNotifier sends each farmer a summary of their new bill.
type WhatsAppNotifier struct {
	client whatsapp.Client
	logger *zap.Logger
}

// NewWhatsAppNotifier builds a notifier on top of a WhatsApp client.
func NewWhatsAppNotifier(client whatsapp.Client, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: client, logger: logger.Named("notify.whatsapp")}
}

// BillGenerated implements billing.Observer. Farmers without a phone
// number are skipped.
func (n *WhatsAppNotifier) BillGenerated(ctx context.Context, bill models.Bill, farmer models.Farmer) error {
	if strings.TrimSpace(farmer.Phone) == "" {
		n.logger.Debug("farmer has no phone, skipping bill message", zap.String("farmer_id", farmer.ID))
		return nil
	}

	resp, err := n.client.SendTextMessage(ctx, whatsapp.SendTextMessageRequest{
		To:   farmer.Phone,
		Body: BillSummary(bill, farmer),
	})
	if err != nil {
		return fmt.Errorf("failed to send bill %s to farmer %s: %w", bill.ID, farmer.ID, err)
	}

	n.logger.Info("bill message sent",
		zap.String("bill_id", bill.ID),
		zap.String("farmer_id", farmer.ID),
		zap.String("message_id", resp.MessageID()),
	)
	return nil
}

// BillSummary renders the text sent to a farmer.
func BillSummary(bill models.Bill, farmer models.Farmer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Milk bill %s\n", bill.BillMonth.Format("January 2006"))
	fmt.Fprintf(&b, "%s (%s)\n", farmer.Name, farmer.Code)
	fmt.Fprintf(&b, "Period: %s to %s\n", bill.PeriodFrom.Format(models.DateLayout), bill.PeriodTo.Format(models.DateLayout))
	fmt.Fprintf(&b, "Milk: %s L = %s\n", bill.TotalLiters.String(), bill.TotalMilkAmount.StringFixed(2))
	if bill.TotalBonus.IsPositive() {
		fmt.Fprintf(&b, "Bonus: %s\n", bill.TotalBonus.StringFixed(2))
	}
	if bill.NormalDeduction.IsPositive() {
		fmt.Fprintf(&b, "Deductions: -%s\n", bill.NormalDeduction.StringFixed(2))
	}
	if bill.InventoryDeduction.IsPositive() {
		fmt.Fprintf(&b, "Feed and supplies: -%s\n", bill.InventoryDeduction.StringFixed(2))
	}
	fmt.Fprintf(&b, "Net payable: %s", bill.NetPayable.StringFixed(2))
	return b.String()
}
