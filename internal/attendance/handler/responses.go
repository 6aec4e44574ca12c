package handler

import (
	"time"

	"gymgate/internal/attendance/models"
	"gymgate/internal/attendance/service"
)

// CheckInResponse is the HTTP response for POST /attendance/check-in.
type CheckInResponse struct {
	RecordID         string    `json:"record_id"`
	SubjectName      string    `json:"subject_name"`
	SubjectKind      string    `json:"subject_kind"`
	MembershipNumber string    `json:"membership_number,omitempty"`
	PlanName         string    `json:"plan_name,omitempty"`
	CheckInTime      time.Time `json:"check_in_time"`
	EntryMethod      string    `json:"entry_method"`
}

// FromCheckInResult converts a domain CheckInResult to an HTTP response.
func FromCheckInResult(result *service.CheckInResult) *CheckInResponse {
	return &CheckInResponse{
		RecordID:         result.RecordID.String(),
		SubjectName:      result.SubjectName,
		SubjectKind:      string(result.SubjectKind),
		MembershipNumber: result.MembershipNumber,
		PlanName:         result.PlanName,
		CheckInTime:      result.CheckInTime,
		EntryMethod:      string(result.EntryMethod),
	}
}

// PunchResponse is the HTTP response for POST /attendance/punch.
type PunchResponse struct {
	Action          string     `json:"action"`
	RecordID        string     `json:"record_id"`
	SubjectName     string     `json:"subject_name"`
	SubjectKind     string     `json:"subject_kind"`
	CheckInTime     time.Time  `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time,omitempty"`
	DurationMinutes int64      `json:"duration_minutes"`
}

// FromPunchResult converts a domain PunchResult to an HTTP response.
func FromPunchResult(result *service.PunchResult) *PunchResponse {
	return &PunchResponse{
		Action:          string(result.Action),
		RecordID:        result.RecordID.String(),
		SubjectName:     result.SubjectName,
		SubjectKind:     string(result.SubjectKind),
		CheckInTime:     result.CheckInTime,
		CheckOutTime:    result.CheckOutTime,
		DurationMinutes: result.DurationMinutes,
	}
}

// RecordResponse is one attendance record in GET /attendance listings.
type RecordResponse struct {
	RecordID           string     `json:"record_id"`
	SubjectID          string     `json:"subject_id"`
	SubjectKind        string     `json:"subject_kind"`
	SubjectName        string     `json:"subject_name,omitempty"`
	Day                string     `json:"day"`
	CheckInTime        time.Time  `json:"check_in_time"`
	CheckOutTime       *time.Time `json:"check_out_time,omitempty"`
	DurationMinutes    int64      `json:"duration_minutes"`
	EntryMethod        string     `json:"entry_method"`
	VerificationMethod string     `json:"verification_method,omitempty"`
	DeviceID           string     `json:"device_id,omitempty"`
	Location           string     `json:"location,omitempty"`
}

// ListResponse is the HTTP response for GET /attendance.
type ListResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
}

// FromRecords converts ledger records to the HTTP listing response.
func FromRecords(records []*models.Record) *ListResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, RecordResponse{
			RecordID:           record.ID.String(),
			SubjectID:          record.Subject.ID.String(),
			SubjectKind:        string(record.Subject.Kind),
			SubjectName:        record.UserName,
			Day:                record.Day.String(),
			CheckInTime:        record.CheckInTime,
			CheckOutTime:       record.CheckOutTime,
			DurationMinutes:    record.DurationMinutes,
			EntryMethod:        string(record.EntryMethod),
			VerificationMethod: string(record.VerificationMethod),
			DeviceID:           record.DeviceID,
			Location:           record.Location,
		})
	}
	return &ListResponse{Records: out, Count: len(out)}
}
