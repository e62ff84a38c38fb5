package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/resolution-engine/internal/auth"
	"github.com/spec-kit/resolution-engine/internal/service"
	apperrors "github.com/spec-kit/resolution-engine/pkg/util"
)

// ReviewHandler exposes the manager review actions linked from escalation
// emails. Each request authenticates with the signed per-ticket token.
type ReviewHandler struct {
	reviews *service.ReviewService
	tokens  *auth.ReviewTokenManager
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(reviews *service.ReviewService, tokens *auth.ReviewTokenManager) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, tokens: tokens}
}

// Show GET /review/:ticketID — the resolution payload the review UI reads.
func (h *ReviewHandler) Show(c *fiber.Ctx) error {
	ticketID, err := h.authorize(c)
	if err != nil {
		return err
	}
	outcome, err := h.reviews.PendingResolution(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(reviewResponse(outcome))
}

// Approve POST /review/:ticketID/approve — pending-review to resolved.
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	ticketID, err := h.authorize(c)
	if err != nil {
		return err
	}
	outcome, err := h.reviews.Approve(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(reviewResponse(outcome))
}

// Reject POST /review/:ticketID/reject — pending-review back to open.
func (h *ReviewHandler) Reject(c *fiber.Ctx) error {
	ticketID, err := h.authorize(c)
	if err != nil {
		return err
	}
	outcome, err := h.reviews.Reject(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(reviewResponse(outcome))
}

func (h *ReviewHandler) authorize(c *fiber.Ctx) (string, error) {
	ticketID := strings.TrimSpace(c.Params("ticketID"))
	if ticketID == "" {
		return "", apperrors.NewValidationError("ticket id required", nil)
	}
	token := c.Query("token")
	if token == "" {
		return "", apperrors.NewUnauthorized("review token required")
	}
	if err := h.tokens.Validate(token, ticketID); err != nil {
		return "", apperrors.NewUnauthorized("invalid or expired review token")
	}
	return ticketID, nil
}

func reviewResponse(outcome *service.ReviewOutcome) fiber.Map {
	data := fiber.Map{
		"ticket_id": outcome.Ticket.ID,
		"status":    outcome.Ticket.Status,
	}
	if outcome.Resolution != nil {
		data["resolution"] = fiber.Map{
			"id":         outcome.Resolution.ID,
			"outcome":    outcome.Resolution.Outcome,
			"record_id":  outcome.Resolution.RecordID,
			"rationale":  outcome.Resolution.Rationale,
			"decided_by": outcome.Resolution.DecidedBy,
			"decided_at": outcome.Resolution.DecidedAt,
			"delivery":   outcome.Resolution.Delivery,
		}
	}
	return fiber.Map{"data": data}
}
