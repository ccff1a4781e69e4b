// Package types provides type definitions for structured data passed between pipeline stages.
package types

import "strings"

// JobDetails holds the fields extracted from a job description.
// A blank field means the model could not identify it with confidence.
type JobDetails struct {
	CompanyName    string `json:"company_name"`
	RecruiterEmail string `json:"recruiter_email"`
	JobPosition    string `json:"job_position"`
}

// IsEmpty reports whether no field was extracted.
func (d JobDetails) IsEmpty() bool {
	return d.CompanyName == "" && d.RecruiterEmail == "" && d.JobPosition == ""
}

// Normalize trims surrounding whitespace from every field.
func (d JobDetails) Normalize() JobDetails {
	return JobDetails{
		CompanyName:    strings.TrimSpace(d.CompanyName),
		RecruiterEmail: strings.TrimSpace(d.RecruiterEmail),
		JobPosition:    strings.TrimSpace(d.JobPosition),
	}
}
