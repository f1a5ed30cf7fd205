package api

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"inventory-service/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding rules on gin's validator:
// notblank for strings, dgte0 and dgt0 for decimal amounts, dscale2 for
// amounts that must fit the stored two-place scale.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterCustomTypeFunc(decimalString, decimal.Decimal{})

		for tag, fn := range map[string]validator.Func{
			"notblank": notBlank,
			"dgte0":    decimalAtLeastZero,
			"dgt0":     decimalAboveZero,
			"dscale2":  decimalWholeCents,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = fmt.Errorf("register %s: %w", tag, err)
				return
			}
		}
	})
	return registerErr
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// decimalString lets tags run against decimal fields
func decimalString(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	return d, err == nil
}

func decimalAtLeastZero(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && !d.IsNegative()
}

func decimalAboveZero(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && d.IsPositive()
}

func decimalWholeCents(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && models.WholeCents(d)
}
