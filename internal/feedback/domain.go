// internal/feedback/domain.go
package feedback

import (
	"strings"

	"bookstore/pkg/apperr"
)

var (
	ErrFeedbackNotFound = apperr.New(apperr.ErrNotFound, "feedback not found")
	ErrMissingISBN      = apperr.New(apperr.ErrInvalid, "Missing ISBN")
	ErrMissingFields    = apperr.New(apperr.ErrInvalid, "Missing fields")
)

// Feedback is one customer rating of a book.
type Feedback struct {
	ID      int64  `db:"feedback_id" json:"Feedback_ID"`
	ISBN    string `db:"book_isbn" json:"Book_ISBN"`
	Rating  int    `db:"rating" json:"rating"`
	Comment string `db:"comment" json:"comment"`
}

type NewFeedback struct {
	ISBN    string `json:"isbn"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (f NewFeedback) Validate() error {
	if strings.TrimSpace(f.ISBN) == "" || f.Rating == 0 || strings.TrimSpace(f.Comment) == "" {
		return ErrMissingFields
	}
	return checkRating(f.Rating)
}

// Edit changes the rating and comment of existing feedback. ID may come from
// the body or the path.
type Edit struct {
	ID      int64  `json:"feedbackId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (e Edit) Validate() error {
	if e.ID <= 0 || e.Rating == 0 || strings.TrimSpace(e.Comment) == "" {
		return ErrMissingFields
	}
	return checkRating(e.Rating)
}

func checkRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.Invalidf("rating must be between 1 and 5")
	}
	return nil
}
