package middleware

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/reallocation-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var customValidators = map[string]validator.Func{
	"consumer_ref":        validateConsumerRef,
	"positive_decimal":    validatePositiveDecimal,
	"reallocation_status": validateReallocationStatus,
	"safe_string":         validateSafeString,
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	}
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func register(v *validator.Validate) {
	for tag, fn := range customValidators {
		_ = v.RegisterValidation(tag, fn)
	}
	v.RegisterTagNameFunc(jsonTagName)
}

// InitValidator initializes the validator with custom validators and installs them on Gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})

	return validate
}

var (
	consumerRefRegex = regexp.MustCompile(`^(inventory-pool|work-order:[A-Za-z0-9][A-Za-z0-9._-]*|[A-Za-z0-9][A-Za-z0-9._-]*)$`)
	safeStringRegex  = regexp.MustCompile(`^[^\x00-\x08\x0B\x0C\x0E-\x1F]*$`)
)

func validateConsumerRef(fl validator.FieldLevel) bool {
	return consumerRefRegex.MatchString(fl.Field().String())
}

func validatePositiveDecimal(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func validateReallocationStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pending", "approved", "rejected":
		return true
	}
	return false
}

func validateSafeString(fl validator.FieldLevel) bool {
	return safeStringRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "consumer_ref":
		return "must be a work order id, work-order:<id> or inventory-pool"
	case "positive_decimal":
		return "must be a decimal number greater than zero"
	case "reallocation_status":
		return "must be one of: pending, approved, rejected"
	case "safe_string":
		return "contains invalid characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON request body and validates it
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// BindQueryAndValidate binds query parameters and validates them
func BindQueryAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		var validationErrors validator.ValidationErrors
		if stderrors.As(err, &validationErrors) {
			return errors.ErrValidationWithFields("invalid query parameters", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid query parameters: " + err.Error())
	}
	return nil
}

// ContentType rejects POST bodies that are not JSON
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
			if !strings.HasPrefix(c.GetHeader("Content-Type"), "application/json") {
				AbortWithAppError(c, errors.NewAppError("INVALID_CONTENT_TYPE", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
				return
			}
		}
		c.Next()
	}
}
