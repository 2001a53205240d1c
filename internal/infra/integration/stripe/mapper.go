package stripe

import (
	"time"

	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// fromSubscription normaliza; período vem do primeiro item (API 2025+).
func fromSubscription(s *stripesdk.Subscription) *entity.CardSubscription {
	out := &entity.CardSubscription{
		Ref:      s.ID,
		Status:   string(s.Status),
		TrialEnd: unixPtr(s.TrialEnd),
		Metadata: s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerRef = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.ItemRef = item.ID
		if item.Price != nil {
			out.PriceRef = item.Price.ID
		}
		out.CurrentPeriodStart = unixPtr(item.CurrentPeriodStart)
		out.CurrentPeriodEnd = unixPtr(item.CurrentPeriodEnd)
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
