// Package ats identifies which applicant tracking system hosts a company's
// job listings and derives the board token and API URL needed to crawl it.
package ats

import "fmt"

// Type is the applicant tracking system a company uses.
type Type string

// Supported ATS types
const (
	Greenhouse      Type = "greenhouse"
	Lever           Type = "lever"
	Ashby           Type = "ashby"
	Workday         Type = "workday"
	SmartRecruiters Type = "smartrecruiters"
	Generic         Type = "generic"
	Unknown         Type = "unknown"
)

// AllTypes lists every Type in detection order, followed by the fallbacks.
var AllTypes = []Type{Greenhouse, Lever, Ashby, Workday, SmartRecruiters, Generic, Unknown}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// ParseType converts a stored string back into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return Unknown, fmt.Errorf("unknown ATS type %q", s)
	}
	return t, nil
}

// Result is the outcome of a detection run. A failed detection is reported
// as Unknown with Error set; Detect never returns a Go error.
type Result struct {
	ATSType    Type   `json:"ats_type"`
	BoardToken string `json:"board_token,omitempty"`
	CareersURL string `json:"careers_url,omitempty"`
	APIURL     string `json:"api_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Identified reports whether a hosted platform or a generic careers page was found.
func (r Result) Identified() bool {
	return r.ATSType != Unknown && r.ATSType != ""
}
