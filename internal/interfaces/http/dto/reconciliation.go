package dto

import "time"

// PeriodQuery selects the half-open date window [from, to). Dates are
// calendar days in UTC.
type PeriodQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to" binding:"required,gtfield=From" time_format:"2006-01-02" time_utc:"1"`
}

// TraceQuery selects a settlement document, or the financial events of a period
// when document_id is empty
type TraceQuery struct {
	DocumentID string    `form:"document_id" binding:"omitempty,max=128"`
	From       time.Time `form:"from" binding:"required_without=DocumentID" time_format:"2006-01-02" time_utc:"1"`
	To         time.Time `form:"to" binding:"required_without=DocumentID" time_format:"2006-01-02" time_utc:"1"`
}
