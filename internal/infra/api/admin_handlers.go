package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/infra/logging"
	"payment-events/internal/infra/metrics"
	"payment-events/internal/usecase"
)

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			metrics.IncAdminRequest("/api/v1", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			metrics.IncAdminRequest("/api/v1", "unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := logging.WithSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
		// the pattern is only complete once the sub-router has matched
		if rc := chi.RouteContext(ctx); rc != nil {
			metrics.IncAdminRequest(rc.RoutePattern(), "authorized")
		}
	})
}

type orderJSON struct {
	ID                string    `json:"id"`
	ExternalPaymentID string    `json:"external_payment_id"`
	PaymentIntentID   *string   `json:"payment_intent_id,omitempty"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CustomerID        *string   `json:"customer_id,omitempty"`
	AffiliateCode     *string   `json:"affiliate_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type commissionJSON struct {
	AffiliateCode string    `json:"affiliate_code"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	RateBps       int64     `json:"rate_bps"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type pointsJSON struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Points    int64     `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type orderViewJSON struct {
	Order      orderJSON       `json:"order"`
	Commission *commissionJSON `json:"commission"`
	Points     []pointsJSON    `json:"points"`
}

func toOrderView(v *usecase.OrderView) orderViewJSON {
	o := v.Order
	out := orderViewJSON{
		Order: orderJSON{
			ID:                o.ID,
			ExternalPaymentID: o.ExternalPaymentID,
			PaymentIntentID:   o.PaymentIntentID,
			Amount:            o.Amount,
			Currency:          o.Currency,
			Status:            string(o.Status),
			CustomerID:        o.CustomerID,
			AffiliateCode:     o.AffiliateCode,
			CreatedAt:         o.CreatedAt,
			UpdatedAt:         o.UpdatedAt,
		},
		Points: make([]pointsJSON, 0, len(v.Points)),
	}
	if c := v.Commission; c != nil {
		out.Commission = &commissionJSON{
			AffiliateCode: c.AffiliateCode,
			Amount:        c.Amount,
			Currency:      c.Currency,
			RateBps:       c.RateBps,
			Status:        string(c.Status),
			CreatedAt:     c.CreatedAt,
		}
	}
	for _, p := range v.Points {
		out.Points = append(out.Points, pointsJSON{ID: p.ID, UserID: p.UserID, Points: p.Points, Reason: p.Reason, CreatedAt: p.CreatedAt})
	}
	return out
}

// getOrder: GET /api/v1/orders/{id}
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	v, err := s.admin.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(v))
}

type eventJSON struct {
	ProviderEventID string     `json:"provider_event_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	ReceivedAt      time.Time  `json:"received_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

// listEvents: GET /api/v1/webhook-events?status=&limit=&offset=
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	status := model.ProcessingStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.ProcessingStatusPending, model.ProcessingStatusProcessed, model.ProcessingStatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	limit, offset := pageParams(r)
	evs, err := s.admin.ListEvents(r.Context(), status, limit, offset)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	out := make([]eventJSON, 0, len(evs))
	for _, e := range evs {
		out = append(out, eventJSON{
			ProviderEventID: e.ProviderEventID,
			Type:            e.Type,
			Status:          string(e.Status),
			Attempts:        e.Attempts,
			FailureReason:   e.FailureReason,
			ReceivedAt:      e.ReceivedAt,
			ProcessedAt:     e.ProcessedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) eventCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.admin.EventCounts(r.Context())
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	out := make(map[string]int, len(counts))
	for st, n := range counts {
		out[string(st)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

type anomalyJSON struct {
	ID              string    `json:"id"`
	ProviderEventID string    `json:"provider_event_id"`
	Kind            string    `json:"kind"`
	Severity        string    `json:"severity"`
	Reference       string    `json:"reference"`
	Detail          string    `json:"detail"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Server) listAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	as, err := s.admin.ListAnomalies(r.Context(), limit, offset)
	if err != nil {
		s.adminError(w, r, err)
		return
	}
	out := make([]anomalyJSON, 0, len(as))
	for _, a := range as {
		out = append(out, anomalyJSON{
			ID:              a.ID,
			ProviderEventID: a.ProviderEventID,
			Kind:            a.Kind,
			Severity:        string(a.Severity),
			Reference:       a.Reference,
			Detail:          a.Detail,
			CreatedAt:       a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// pageParams parses offset and limit; the use case clamps them.
func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func (s *Server) adminError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	logging.With(r.Context(), s.log).Error().Err(err).Msg("admin query failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
