package jobs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/validation"
)

// Field length limits applied on the way into the store. Truncation is
// idempotent: applying a limit twice yields the same value.
const (
	maxNameLen    = 50
	maxEmailLen   = 100
	maxProblemLen = 500
	minPhoneDigits = 10
)

// Customer is the nested customer shape of a job card.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Device is the nested device shape of a job card.
type Device struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Condition string `json:"condition"`
}

// Details is the nested repair-detail shape of a job card.
type Details struct {
	Problem      string           `json:"problem"`
	Status       models.JobStatus `json:"status"`
	HandlingFees float64          `json:"handling_fees"`
}

// Card is the in-memory domain shape of a job, with the flat customer_* and
// device_* columns folded into sub-objects.
type Card struct {
	ID            uuid.UUID       `json:"id"`
	JobCardNumber string          `json:"job_card_number"`
	Customer      Customer        `json:"customer"`
	Device        Device          `json:"device"`
	Details       Details         `json:"details"`
	CompanyID     *uint           `json:"company_id,omitempty"`
	Company       *models.Company `json:"company,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Input carries job data into create and update operations. For updates,
// only the sub-objects that are present are applied; absent ones keep their
// stored values untouched.
type Input struct {
	Customer *CustomerInput `json:"customer,omitempty"`
	Device   *DeviceInput   `json:"device,omitempty"`
	Details  *DetailsInput  `json:"details,omitempty"`
	// Company carries an optional association change. A present pointer with
	// a nil value clears the association.
	Company *CompanyRef `json:"company,omitempty"`
}

type CustomerInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type DeviceInput struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Condition string `json:"condition"`
}

type DetailsInput struct {
	Problem string `json:"problem"`
	Status  string `json:"status"`
	// HandlingFees accepts any JSON value; non-numeric input coerces to 0.
	HandlingFees any `json:"handling_fees"`
}

type CompanyRef struct {
	ID *uint `json:"id"`
}

// ValidationError reports field violations found before any remote work.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", map[string]string(e.Violations))
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// coerceFees turns arbitrary decoded JSON input into a usable fee amount.
// Anything that does not parse to a finite non-negative number becomes 0.
func coerceFees(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// toRow builds a persistable row from full create input. Violations are
// reported before the sequence allocator runs, so a rejected job never
// consumes a number.
func toRow(in Input, userID uint) (models.Job, error) {
	v := validation.Violations{}
	if in.Customer == nil {
		v["customer"] = "required"
	} else {
		validation.Required("customer.name", in.Customer.Name, v)
		validation.Required("customer.phone", in.Customer.Phone, v)
		if in.Customer.Phone != "" {
			validation.MinDigits("customer.phone", in.Customer.Phone, minPhoneDigits, v)
		}
	}
	if !v.Empty() {
		return models.Job{}, &ValidationError{Violations: v}
	}

	job := models.Job{
		UserID:        userID,
		CustomerName:  truncate(in.Customer.Name, maxNameLen),
		CustomerPhone: in.Customer.Phone,
		Status:        models.JobStatusInProgress,
	}
	if in.Customer.Email != "" {
		email := truncate(in.Customer.Email, maxEmailLen)
		job.CustomerEmail = &email
	}
	if in.Device != nil {
		job.DeviceName = truncate(in.Device.Name, maxNameLen)
		job.DeviceModel = truncate(in.Device.Model, maxNameLen)
		job.DeviceCondition = in.Device.Condition
	}
	if in.Details != nil {
		job.Problem = truncate(in.Details.Problem, maxProblemLen)
		job.HandlingFees = coerceFees(in.Details.HandlingFees)
		if in.Details.Status != "" {
			job.Status = Canonicalize(in.Details.Status)
		}
	}
	if in.Company != nil {
		job.CompanyID = in.Company.ID
	}
	return job, nil
}

// toPatch builds the partial update payload: only the sub-objects present in
// the input contribute columns, with the same limits as creation.
func toPatch(in Input) (map[string]any, error) {
	patch := map[string]any{}
	if in.Customer != nil {
		v := validation.Violations{}
		validation.Required("customer.name", in.Customer.Name, v)
		validation.Required("customer.phone", in.Customer.Phone, v)
		if in.Customer.Phone != "" {
			validation.MinDigits("customer.phone", in.Customer.Phone, minPhoneDigits, v)
		}
		if !v.Empty() {
			return nil, &ValidationError{Violations: v}
		}
		patch["customer_name"] = truncate(in.Customer.Name, maxNameLen)
		patch["customer_phone"] = in.Customer.Phone
		if in.Customer.Email != "" {
			patch["customer_email"] = truncate(in.Customer.Email, maxEmailLen)
		} else {
			patch["customer_email"] = nil
		}
	}
	if in.Device != nil {
		patch["device_name"] = truncate(in.Device.Name, maxNameLen)
		patch["device_model"] = truncate(in.Device.Model, maxNameLen)
		patch["device_condition"] = in.Device.Condition
	}
	if in.Details != nil {
		patch["problem"] = truncate(in.Details.Problem, maxProblemLen)
		patch["handling_fees"] = coerceFees(in.Details.HandlingFees)
		if in.Details.Status != "" {
			patch["status"] = Canonicalize(in.Details.Status)
		}
	}
	if in.Company != nil {
		patch["company_id"] = in.Company.ID
	}
	return patch, nil
}

// toDomain folds a persisted row into the nested domain shape. A NULL
// customer_email column becomes the empty optional.
func toDomain(row models.Job) Card {
	card := Card{
		ID:            row.ID,
		JobCardNumber: row.JobCardNumber,
		Customer: Customer{
			Name:  row.CustomerName,
			Phone: row.CustomerPhone,
		},
		Device: Device{
			Name:      row.DeviceName,
			Model:     row.DeviceModel,
			Condition: row.DeviceCondition,
		},
		Details: Details{
			Problem:      row.Problem,
			Status:       row.Status,
			HandlingFees: row.HandlingFees,
		},
		CompanyID: row.CompanyID,
		Company:   row.Company,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.CustomerEmail != nil {
		card.Customer.Email = *row.CustomerEmail
	}
	return card
}
