package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"payment-events/internal/domain"
	"payment-events/internal/infra/logging"
	"payment-events/internal/infra/metrics"
)

const signatureHeader = "Stripe-Signature"

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// handleWebhook answers 200 for anything the provider should not resend, 400
// for deliveries that will never succeed and 500 when a retry may help.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	l := logging.With(r.Context(), s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.IncWebhookReject("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		metrics.IncWebhookReject("malformed")
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	// an admitted event runs to completion even if the provider hangs up
	ctx := context.WithoutCancel(r.Context())
	if s.opts.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.HandlerTimeout)
		defer cancel()
	}

	out, err := s.webhook.Handle(ctx, body, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
		metrics.ObserveWebhook(string(out), time.Since(start))
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: string(out)})
	case errors.Is(err, domain.ErrInvalidSignature):
		metrics.IncWebhookReject("bad_signature")
		l.Warn().Err(err).Msg("webhook signature rejected")
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, domain.ErrMalformedPayload):
		metrics.IncWebhookReject("malformed")
		l.Warn().Err(err).Msg("malformed webhook payload")
		writeError(w, http.StatusBadRequest, "malformed payload")
	default:
		metrics.ObserveWebhook("error", time.Since(start))
		l.Error().Err(err).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
	}
}
