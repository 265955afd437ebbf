package validator

import (
	"fmt"
	"strings"
	"time"

	"stockpile/pkg/logger"
	"stockpile/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// InventoryValidator rejects malformed requests before any storage access.
// Capacity shortfalls are not its concern; those surface as structured
// failures from the reservation manager.
type InventoryValidator struct {
	validate      *validator.Validate
	maxBatchItems int
	maxStayNights int
	logger        *logger.Logger
}

func NewInventoryValidator(log *logger.Logger, maxBatchItems, maxStayNights int) *InventoryValidator {
	return &InventoryValidator{
		validate:      validator.New(),
		maxBatchItems: maxBatchItems,
		maxStayNights: maxStayNights,
		logger:        log,
	}
}

func (v *InventoryValidator) ValidateReserve(req *model.ReserveRequest) error {
	var errs ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		errs = append(errs, translate(err)...)
	}

	if len(req.Items) > v.maxBatchItems {
		errs = append(errs, ValidationError{
			Field:   "items",
			Message: fmt.Sprintf("batch cannot exceed %d items", v.maxBatchItems),
		})
	}

	for i, item := range req.Items {
		if item.RoomTypeID == "" {
			continue
		}
		field := fmt.Sprintf("items[%d]", i)
		if item.CheckIn == nil || item.CheckOut == nil {
			continue // presence errors already recorded by struct tags
		}
		// Stays are date-ranged: compare the UTC dates the keys expand to,
		// not the raw timestamps, so a same-day 10:00->18:00 pair cannot
		// slip through as a zero-night stay.
		checkIn := item.CheckIn.UTC().Truncate(24 * time.Hour)
		checkOut := item.CheckOut.UTC().Truncate(24 * time.Hour)
		if !checkOut.After(checkIn) {
			errs = append(errs, ValidationError{
				Field:   field + ".check_out",
				Message: "check-out date must be after check-in date",
			})
			continue
		}
		if nights := len(item.Keys()); nights > v.maxStayNights {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("stay cannot exceed %d nights", v.maxStayNights),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *InventoryValidator) ValidateUpsertCapacity(req *model.UpsertCapacityRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return translate(err)
	}
	return nil
}

func (v *InventoryValidator) ValidateAdjustStock(req *model.AdjustStockRequest) error {
	var errs ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		errs = append(errs, translate(err)...)
	}

	if req.ResourceKey != "" {
		if _, err := model.ParseResourceKey(req.ResourceKey); err != nil {
			errs = append(errs, ValidationError{
				Field:   "resource_key",
				Message: err.Error(),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func translate(err error) ValidationErrors {
	var errs ValidationErrors

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs = append(errs, ValidationError{Field: "request", Message: err.Error()})
		return errs
	}

	for _, fe := range fieldErrors {
		errs = append(errs, ValidationError{
			Field:   fe.Namespace(),
			Message: messageFor(fe),
		})
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without", "required_with":
		return "is required for this item shape"
	case "excluded_with", "excluded_without":
		return "cannot be combined with the other item shape"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s items", fe.Param())
	default:
		return fmt.Sprintf("failed validation rule %q", fe.Tag())
	}
}
