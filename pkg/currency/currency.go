// Package currency formats rupee amounts the way the SkillLink UI shows them.
package currency

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const Symbol = "₹"

var (
	locale      = language.MustParse("en-IN")
	unsafeChars = regexp.MustCompile(`[^0-9.,-]`)
	leadingNum  = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

type options struct {
	fraction int
	fixed    bool
}

type Option func(*options)

// WithFractionDigits 固定小数位（默认：整数 0 位，否则 2 位）
func WithFractionDigits(n int) Option {
	return func(o *options) {
		o.fraction = max(0, n)
		o.fixed = true
	}
}

// Coerce 数字直接返回；字符串先去掉非数字字符和千分位再取前缀数值
func Coerce(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		return Coerce(string(v))
	case string:
		s := strings.ReplaceAll(unsafeChars.ReplaceAllString(v, ""), ",", "")
		if s == "" {
			return 0, false
		}
		m := leadingNum.FindString(s)
		if m == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatINR nil/"" 视为 0；无法解析的字符串原样返回（$ 换成 ₹）
func FormatINR(value any, opts ...Option) string {
	if value == nil {
		return format(0, opts)
	}
	if s, ok := value.(string); ok && s == "" {
		return format(0, opts)
	}
	f, ok := Coerce(value)
	if !ok {
		if s, isStr := value.(string); isStr {
			return strings.ReplaceAll(s, "$", Symbol)
		}
		return format(0, opts)
	}
	return format(f, opts)
}

// FormatRangeINR "1000-2000" -> "₹1,000 - ₹2,000"
func FormatRangeINR(value any, opts ...Option) string {
	if s, ok := value.(string); ok && strings.Contains(s, "-") {
		parts := strings.SplitN(s, "-", 3)
		if len(parts) >= 2 {
			lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if lo != "" && hi != "" {
				return FormatINR(lo, opts...) + " - " + FormatINR(hi, opts...)
			}
		}
	}
	return FormatINR(value, opts...)
}

func format(f float64, opts []Option) string {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if !o.fixed {
		if f == math.Trunc(f) {
			o.fraction = 0
		} else {
			o.fraction = 2
		}
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	p := message.NewPrinter(locale)
	digits := p.Sprintf("%v", number.Decimal(f,
		number.MinFractionDigits(o.fraction),
		number.MaxFractionDigits(o.fraction),
	))
	return sign + Symbol + digits
}
