// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/domain"
)

// Response is the success envelope.
type Response struct {
	Result any `json:"result"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody mirrors apperror.AppError on the wire.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// IDRequest is the body of remove and decision endpoints.
type IDRequest struct {
	ID string `json:"id" binding:"required"`
}

// ListQuery contains common list parameters.
type ListQuery struct {
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.ListFilter{
		Search:  q.Search,
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	f.Normalize()
	return f
}

// ParseID parses a required identifier named field.
func ParseID(field, raw string) (id.ID, error) {
	v, err := id.ParseRequired(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid "+field).
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return v, nil
}

// ParseOptionalID parses an identifier that may be absent.
func ParseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
