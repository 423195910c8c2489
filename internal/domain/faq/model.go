// Package faq serves the help-centre questions shown on the public FAQ page.
package faq

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afyalink/referral/internal/platform/apperr"
)

type FAQ struct {
	ID          uuid.UUID `json:"id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Category    *string   `json:"category,omitempty"`
	IsPublished bool      `json:"is_published"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Input struct {
	Question    string  `json:"question"`
	Answer      string  `json:"answer"`
	Category    *string `json:"category"`
	IsPublished *bool   `json:"is_published"`
	OrderIndex  *int    `json:"order_index"`
}

func (in *Input) normalize() error {
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)
	if in.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*in.Category))
		if c == "" {
			in.Category = nil
		} else {
			in.Category = &c
		}
	}
	ve := &apperr.ValidationError{}
	if in.Question == "" {
		ve.Add("question", "question is required")
	}
	if in.Answer == "" {
		ve.Add("answer", "answer is required")
	}
	if in.OrderIndex != nil && *in.OrderIndex < 0 {
		ve.Add("order_index", "order_index must not be negative")
	}
	return ve.OrNil()
}

func (in Input) apply(f *FAQ) {
	f.Question = in.Question
	f.Answer = in.Answer
	f.Category = in.Category
	if in.IsPublished != nil {
		f.IsPublished = *in.IsPublished
	}
	if in.OrderIndex != nil {
		f.OrderIndex = *in.OrderIndex
	}
}

// Filter narrows a listing. Category "all" or "" disables the category
// filter; Search matches question or answer case-insensitively.
type Filter struct {
	Category           string
	Search             string
	IncludeUnpublished bool
}

func (f Filter) categoryFilter() string {
	c := strings.ToLower(strings.TrimSpace(f.Category))
	if c == "all" {
		return ""
	}
	return c
}

var ErrNotFound = apperr.New(apperr.ErrNotFound, "faq not found")
