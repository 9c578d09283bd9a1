package storage

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// InsertScript renders t as a single literal INSERT statement:
//
//	INSERT INTO t (a, b) VALUES
//	(1, NULL),
//	(2, 'x');
//
// nil, nil pointers and NaN become NULL. Strings are single quoted with
// embedded quotes doubled. The script is meant for dry runs and audit logs;
// Store.Insert is the path that writes data.
func InsertScript(t Table) (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	if len(t.Rows) == 0 {
		return "", ErrNoRows
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n", t.Name, strings.Join(t.Columns, ", "))
	for i, row := range t.Rows {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Literal(v))
		}
		b.WriteByte(')')
	}
	b.WriteByte(';')
	return b.String(), nil
}

// Literal renders v as an SQL literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(x).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(x).Uint(), 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case time.Time:
		return quote(x.Format(time.RFC3339Nano))
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return Literal(rv.Elem().Interface())
	}
	if s, ok := v.(fmt.Stringer); ok {
		return quote(s.String())
	}
	return quote(fmt.Sprint(v))
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NULL"
	case math.IsInf(f, 1):
		return "'Infinity'"
	case math.IsInf(f, -1):
		return "'-Infinity'"
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
