package entity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Enum is implemented by enumerated values that expose a symbolic name.
type Enum interface {
	EnumName() string
}

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ISO renders the date as an ISO-8601 calendar date.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// SerializeValue converts a stored field value into its transport form:
// identifiers and timestamps become strings, enumerated values their
// symbolic names, decimals become floats, and lists and mappings pass
// through unchanged. Timestamps always carry an explicit UTC offset.
func SerializeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case uuid.UUID:
		return v.String()
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		return v.String()
	case Date:
		return v.ISO()
	case *Date:
		if v == nil {
			return nil
		}
		return v.ISO()
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	case Enum:
		return v.EnumName()
	case decimal.Decimal:
		return v.InexactFloat64()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return v.InexactFloat64()
	case string, bool, int, int32, int64, float32, float64:
		return v
	case *string:
		if v == nil {
			return nil
		}
		return *v
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return value
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return SerializeValue(rv.Elem().Interface())
	}

	return fmt.Sprintf("%v", value)
}
