package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps every request validation failure.
var ErrValidation = errors.New("validation failed")

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxIDLength  = 128
	MaxBatchSize = 100
	MinBatchSize = 1
	MaxTimeout   = 60 * time.Second

	idPattern = regexp.MustCompile(`^[A-Za-z0-9_.:,\-/]+$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister("graphid", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
	mustRegister("accesslevel", func(fl validator.FieldLevel) bool {
		_, err := constraints.ParseAccessLevel(fl.Field().String())
		return err == nil
	})
	mustRegister("clocktime", func(fl validator.FieldLevel) bool {
		_, err := constraints.ParseClockTime(fl.Field().String())
		return err == nil
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// RouteRequest is a single route query.
type RouteRequest struct {
	Origin      string     `json:"origin" validate:"required,max=128,graphid"`
	Destination string     `json:"destination" validate:"required,max=128,graphid"`
	At          *time.Time `json:"at,omitempty"`
	AccessLevel string     `json:"access_level,omitempty" validate:"omitempty,accesslevel"`
	StepFree    bool       `json:"step_free,omitempty"`
	TimeoutMs   int        `json:"timeout_ms,omitempty" validate:"omitempty,min=1,max=60000"`
}

// BatchRouteRequest carries several independent route queries.
type BatchRouteRequest struct {
	Requests []RouteRequest `json:"requests" validate:"required,min=1,max=100,dive"`
}

// NearestRequest asks for the cheapest reachable node matching a type, tag or building.
type NearestRequest struct {
	Origin      string     `json:"origin" validate:"required,max=128,graphid"`
	Type        string     `json:"type,omitempty" validate:"required_without_all=Tag Building,omitempty,max=64"`
	Tag         string     `json:"tag,omitempty" validate:"omitempty,max=64"`
	Building    string     `json:"building,omitempty" validate:"omitempty,max=128"`
	At          *time.Time `json:"at,omitempty"`
	AccessLevel string     `json:"access_level,omitempty" validate:"omitempty,accesslevel"`
	StepFree    bool       `json:"step_free,omitempty"`
	TimeoutMs   int        `json:"timeout_ms,omitempty" validate:"omitempty,min=1,max=60000"`
}

// WindowRequest is the wire form of a recurring daily window.
type WindowRequest struct {
	Start string   `json:"start" validate:"required,clocktime"`
	End   string   `json:"end" validate:"required,clocktime"`
	Days  []string `json:"days,omitempty" validate:"omitempty,max=7,dive,oneof=sun mon tue wed thu fri sat"`
}

// ConstraintRequest creates a constraint through the admin API.
type ConstraintRequest struct {
	ID             string         `json:"id" validate:"required,max=128,graphid"`
	Kind           string         `json:"kind" validate:"required,oneof=closure blocked_hours open_hours access_level obstacle"`
	EdgeID         string         `json:"edge_id,omitempty" validate:"required_without=NodeID,excluded_with=NodeID,omitempty,max=128"`
	NodeID         string         `json:"node_id,omitempty" validate:"omitempty,max=128"`
	Window         *WindowRequest `json:"window,omitempty"`
	ValidFrom      *time.Time     `json:"valid_from,omitempty"`
	ValidUntil     *time.Time     `json:"valid_until,omitempty"`
	MinAccessLevel string         `json:"min_access_level,omitempty" validate:"omitempty,accesslevel"`
	ExemptLevel    string         `json:"exempt_level,omitempty" validate:"omitempty,accesslevel"`
	Reason         string         `json:"reason,omitempty" validate:"max=512"`
}

// Struct validates any tagged struct with the shared validator.
func Struct(v any) error {
	if v == nil {
		return fmt.Errorf("%w: request cannot be nil", ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateRouteRequest validates a route query.
func ValidateRouteRequest(req *RouteRequest) error {
	if req == nil {
		return fmt.Errorf("%w: route request cannot be nil", ErrValidation)
	}
	return Struct(req)
}

// ValidateBatchRouteRequest validates a batch and each of its queries.
func ValidateBatchRouteRequest(req *BatchRouteRequest) error {
	if req == nil {
		return fmt.Errorf("%w: batch request cannot be nil", ErrValidation)
	}
	if err := ValidateBatchSize(len(req.Requests)); err != nil {
		return err
	}
	return Struct(req)
}

// ValidateNearestRequest validates a nearest-target query.
func ValidateNearestRequest(req *NearestRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nearest request cannot be nil", ErrValidation)
	}
	return Struct(req)
}

// ToConstraint validates the request and converts it to a constraint.
func (req *ConstraintRequest) ToConstraint() (*constraints.Constraint, error) {
	if err := Struct(req); err != nil {
		return nil, err
	}

	c := &constraints.Constraint{
		ID:         req.ID,
		Kind:       constraints.Kind(req.Kind),
		EdgeID:     req.EdgeID,
		NodeID:     req.NodeID,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		Reason:     req.Reason,
	}
	// Tags above already checked the level and clock formats.
	c.MinAccessLevel, _ = constraints.ParseAccessLevel(req.MinAccessLevel)
	c.ExemptLevel, _ = constraints.ParseAccessLevel(req.ExemptLevel)

	if req.Window != nil {
		w := &constraints.TimeWindow{}
		w.Start, _ = constraints.ParseClockTime(req.Window.Start)
		w.End, _ = constraints.ParseClockTime(req.Window.End)
		for _, name := range req.Window.Days {
			var d constraints.Day
			if err := d.UnmarshalText([]byte(name)); err != nil {
				return nil, fmt.Errorf("%w: window.days: %v", ErrValidation, err)
			}
			w.Days = append(w.Days, d)
		}
		c.Window = w
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return c, nil
}

// ValidateBatchSize validates the size of a batch request
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("%w: batch size must be at least %d, got %d", ErrValidation, MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("%w: batch size must not exceed %d, got %d", ErrValidation, MaxBatchSize, size)
	}
	return nil
}

// ValidateID checks a node, edge or building identifier.
func ValidateID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s: field is required", ErrValidation, field)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: %s: exceeds maximum length of %d characters", ErrValidation, field, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %s: %q contains invalid characters", ErrValidation, field, id)
	}
	return nil
}

// Timeout converts a timeout_ms value, falling back to def when unset.
func Timeout(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	d := time.Duration(ms) * time.Millisecond
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// formatValidationError converts validator errors to user-friendly messages
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := fieldPath(e.Namespace())
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%w: %s: field is required", ErrValidation, field)
		case "required_without", "required_without_all":
			return fmt.Errorf("%w: %s: required unless %s is set", ErrValidation, field, strings.ToLower(param))
		case "excluded_with":
			return fmt.Errorf("%w: %s: cannot be combined with %s", ErrValidation, field, strings.ToLower(param))
		case "min":
			return fmt.Errorf("%w: %s: must be at least %s", ErrValidation, field, param)
		case "max":
			return fmt.Errorf("%w: %s: must not exceed %s", ErrValidation, field, param)
		case "oneof":
			return fmt.Errorf("%w: %s: must be one of [%s]", ErrValidation, field, param)
		case "graphid":
			return fmt.Errorf("%w: %s: %q contains invalid characters", ErrValidation, field, e.Value())
		case "accesslevel":
			return fmt.Errorf("%w: %s: unknown access level %q", ErrValidation, field, e.Value())
		case "clocktime":
			return fmt.Errorf("%w: %s: %q is not a HH:MM time", ErrValidation, field, e.Value())
		default:
			return fmt.Errorf("%w: %s: validation failed (%s)", ErrValidation, field, e.Tag())
		}
	}

	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// fieldPath drops the top-level struct name from a namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
