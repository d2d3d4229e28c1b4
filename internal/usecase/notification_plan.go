package usecase

import (
	"fmt"
	"strings"
	"time"

	"payment-events/internal/domain/model"
)

// PlanNotifications picks the e-mails an event warrants from what reconciliation
// actually changed. It never looks at the store, so re-running an event that
// changed nothing plans nothing.
func PlanNotifications(res *ReconcileResult) []*model.EmailNotification {
	if res == nil {
		return nil
	}
	var out []*model.EmailNotification
	add := func(t model.Template, to, orderID string, vars map[string]string) {
		if strings.TrimSpace(to) == "" {
			return
		}
		out = append(out, &model.EmailNotification{
			Template:  t,
			Recipient: to,
			Variables: vars,
			OrderID:   orderID,
			EventID:   res.EventID,
		})
	}

	switch {
	case res.Category.IsPaymentSuccess():
		if res.Order == nil {
			break
		}
		o := res.Order
		if res.Transitioned {
			add(model.TemplatePaymentSucceeded, o.CustomerEmail, o.ID, orderVars(o))
		}
		if rw := res.Rewards; rw != nil && rw.Commission != nil && rw.Affiliate != nil {
			vars := orderVars(o)
			vars["affiliate_code"] = rw.Commission.AffiliateCode
			vars["commission"] = FormatMinor(rw.Commission.Amount, rw.Commission.Currency)
			add(model.TemplateCommissionEarned, rw.Affiliate.Email, o.ID, vars)
		}

	case res.Category == CategoryAsyncPaymentFailed:
		if res.Transitioned && res.Order != nil {
			add(model.TemplatePaymentFailed, res.Order.CustomerEmail, res.Order.ID, orderVars(res.Order))
		}

	case res.Category == CategoryChargeRefunded:
		if res.Transitioned && res.Order != nil {
			add(model.TemplatePaymentRefunded, res.Order.CustomerEmail, res.Order.ID, orderVars(res.Order))
		}

	case res.Category == CategorySubscriptionDeleted:
		if res.Transitioned && res.Subscription != nil {
			add(model.TemplateSubscriptionCanceled, res.Recipient, "", subVars(res.Subscription))
		}

	case res.Category == CategoryInvoicePaid:
		if res.Renewal && res.Subscription != nil && res.Outcome == model.OutcomeProcessed {
			add(model.TemplateSubscriptionRenewed, res.Recipient, "", subVars(res.Subscription))
		}

	case res.Category == CategoryInvoicePaymentFailed:
		if res.Subscription != nil && res.Outcome == model.OutcomeProcessed {
			add(model.TemplateInvoicePaymentFailed, res.Recipient, "", subVars(res.Subscription))
		}
	}
	return out
}

func orderVars(o *model.Order) map[string]string {
	return map[string]string{
		"order_id": o.ID,
		"amount":   FormatMinor(o.Amount, o.Currency),
		"currency": strings.ToUpper(o.Currency),
		"status":   string(o.Status),
	}
}

func subVars(s *model.Subscription) map[string]string {
	vars := map[string]string{
		"subscription_id": s.ExternalSubscriptionID,
		"plan":            s.Plan,
		"status":          string(s.Status),
	}
	if s.CurrentPeriodEnd != nil {
		vars["period_end"] = s.CurrentPeriodEnd.UTC().Format(time.DateOnly)
	}
	return vars
}

var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

// FormatMinor renders a minor-unit amount with its currency code.
func FormatMinor(amount int64, currency string) string {
	cur := strings.ToLower(currency)
	if zeroDecimal[cur] {
		return fmt.Sprintf("%d %s", amount, strings.ToUpper(cur))
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, strings.ToUpper(cur))
}
