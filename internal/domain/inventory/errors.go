package inventory

import (
	"fmt"
	"net/http"
	"strings"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

// Shortage describes one part that cannot cover its requested quantity.
type Shortage struct {
	PartID    id.ID  `json:"partId"`
	PartName  string `json:"part"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// insufficientStock builds the error for one or more short parts.
// A single shortage keeps the part/available/requested details flat.
func insufficientStock(shortages []Shortage) error {
	if len(shortages) == 1 {
		s := shortages[0]
		return apperror.NewInsufficientStock(s.PartName, s.Available, s.Requested).
			WithDetail("part_id", s.PartID)
	}

	parts := make([]string, 0, len(shortages))
	for _, s := range shortages {
		parts = append(parts, fmt.Sprintf("%s (available %d, requested %d)", s.PartName, s.Available, s.Requested))
	}
	return &apperror.AppError{
		Code:       apperror.CodeInsufficientStock,
		Message:    "insufficient stock for parts: " + strings.Join(parts, "; "),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"parts": shortages},
	}
}

func partNotFound(partID id.ID) error {
	return apperror.NewNotFound("part", partID)
}

func movementNotFound(movementID id.ID) error {
	return apperror.NewNotFound("stock movement", movementID)
}
