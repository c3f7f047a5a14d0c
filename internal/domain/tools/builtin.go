package tools

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// namedLayouts maps the date format names exposed to the LLM onto Go layouts.
var namedLayouts = map[string]string{
	"iso":  "2006-01-02",
	"us":   "01/02/2006",
	"long": "January 2, 2006",
}

func layoutFor(name string) string {
	if layout, ok := namedLayouts[strings.ToLower(strings.TrimSpace(name))]; ok {
		return layout
	}
	return namedLayouts["iso"]
}

func registerBuiltins(r *Registry) {
	r.Register(Tool{
		Definition: def("get_current_date", "Get today's date in UTC.", objectSchema(nil, map[string]any{
			"format": stringProp("Output format: iso, us, or long. Defaults to iso."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			return time.Now().UTC().Format(layoutFor(stringArg(args, "format"))), nil
		},
	})

	r.Register(Tool{
		Definition: def("get_current_time", "Get the current time, optionally in a timezone.", objectSchema(nil, map[string]any{
			"timezone": stringProp("IANA timezone name such as Europe/Paris. Defaults to UTC."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			loc := time.UTC
			if tz := stringArg(args, "timezone"); tz != "" {
				parsed, err := time.LoadLocation(tz)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q", tz)
				}
				loc = parsed
			}
			return time.Now().In(loc).Format("15:04:05 MST"), nil
		},
	})

	r.Register(Tool{
		Definition: def("format_date", "Reformat an ISO date (YYYY-MM-DD).", objectSchema([]string{"date"}, map[string]any{
			"date":   stringProp("The date to reformat, in YYYY-MM-DD."),
			"format": stringProp("Output format: iso, us, or long."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			parsed, err := time.Parse("2006-01-02", stringArg(args, "date"))
			if err != nil {
				return "", fmt.Errorf("invalid date: %v", err)
			}
			return parsed.Format(layoutFor(stringArg(args, "format"))), nil
		},
	})

	r.Register(Tool{
		Definition: def("days_between_dates", "Count the days between two ISO dates.", objectSchema([]string{"start_date", "end_date"}, map[string]any{
			"start_date": stringProp("Start date in YYYY-MM-DD."),
			"end_date":   stringProp("End date in YYYY-MM-DD."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			start, err := time.Parse("2006-01-02", stringArg(args, "start_date"))
			if err != nil {
				return "", fmt.Errorf("invalid start_date: %v", err)
			}
			end, err := time.Parse("2006-01-02", stringArg(args, "end_date"))
			if err != nil {
				return "", fmt.Errorf("invalid end_date: %v", err)
			}
			days := int(end.Sub(start).Hours() / 24)
			return fmt.Sprintf("%d", days), nil
		},
	})

	r.Register(Tool{
		Definition: def("timezone_convert", "Convert a clock time between timezones.", objectSchema([]string{"time", "from_timezone", "to_timezone"}, map[string]any{
			"time":          stringProp("Time of day in HH:MM (24h)."),
			"from_timezone": stringProp("Source IANA timezone."),
			"to_timezone":   stringProp("Target IANA timezone."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			from, err := time.LoadLocation(stringArg(args, "from_timezone"))
			if err != nil {
				return "", fmt.Errorf("unknown timezone %q", stringArg(args, "from_timezone"))
			}
			to, err := time.LoadLocation(stringArg(args, "to_timezone"))
			if err != nil {
				return "", fmt.Errorf("unknown timezone %q", stringArg(args, "to_timezone"))
			}
			clock, err := time.Parse("15:04", stringArg(args, "time"))
			if err != nil {
				return "", fmt.Errorf("invalid time, expected HH:MM: %v", err)
			}
			now := time.Now().In(from)
			at := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, from)
			return at.In(to).Format("15:04 MST"), nil
		},
	})

	r.Register(Tool{
		Definition: def("generate_uuid", "Generate a random UUID v4.", objectSchema(nil, map[string]any{})),
		Handler: func(_ context.Context, _ map[string]any) (string, error) {
			return uuid.NewString(), nil
		},
	})

	r.Register(Tool{
		Definition: def("hash_string", "Hash text with md5, sha256 or sha512.", objectSchema([]string{"text"}, map[string]any{
			"text":      stringProp("The text to hash."),
			"algorithm": stringProp("Hash algorithm: md5, sha256 (default) or sha512."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			text := stringArg(args, "text")
			switch strings.ToLower(stringArg(args, "algorithm")) {
			case "md5":
				sum := md5.Sum([]byte(text))
				return hex.EncodeToString(sum[:]), nil
			case "sha512":
				sum := sha512.Sum512([]byte(text))
				return hex.EncodeToString(sum[:]), nil
			case "", "sha256":
				sum := sha256.Sum256([]byte(text))
				return hex.EncodeToString(sum[:]), nil
			default:
				return "", fmt.Errorf("unsupported algorithm %q", stringArg(args, "algorithm"))
			}
		},
	})

	r.Register(Tool{
		Definition: def("base64_encode", "Base64 encode text.", objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The text to encode."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			return base64.StdEncoding.EncodeToString([]byte(stringArg(args, "text"))), nil
		},
	})

	r.Register(Tool{
		Definition: def("base64_decode", "Decode base64 text.", objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The base64 string to decode."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			decoded, err := base64.StdEncoding.DecodeString(stringArg(args, "text"))
			if err != nil {
				return "", fmt.Errorf("invalid base64: %v", err)
			}
			return string(decoded), nil
		},
	})

	r.Register(Tool{
		Definition: def("validate_url", "Check whether a string is a valid http(s) URL.", objectSchema([]string{"url"}, map[string]any{
			"url": stringProp("The URL to validate."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			raw := stringArg(args, "url")
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return fmt.Sprintf("invalid: %s is not a valid http(s) URL", raw), nil
			}
			return fmt.Sprintf("valid: %s", parsed.String()), nil
		},
	})

	r.Register(Tool{
		Definition: def("calculate", "Evaluate an arithmetic expression. Supports + - * / % ^, parentheses, sqrt, abs and pow.", objectSchema([]string{"expression"}, map[string]any{
			"expression": stringProp("The expression to evaluate, e.g. (2+3)*sqrt(16)."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			value, err := Evaluate(stringArg(args, "expression"))
			if err != nil {
				return "", err
			}
			return formatFloat(value), nil
		},
	})

	r.Register(Tool{
		Definition: def("compare_values", "Compare two numbers.", objectSchema([]string{"a", "b"}, map[string]any{
			"a": numberProp("First value."),
			"b": numberProp("Second value."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			a, okA := floatArg(args, "a")
			b, okB := floatArg(args, "b")
			if !okA || !okB {
				return "", fmt.Errorf("both a and b must be numbers")
			}
			switch {
			case a > b:
				return fmt.Sprintf("%s > %s", formatFloat(a), formatFloat(b)), nil
			case a < b:
				return fmt.Sprintf("%s < %s", formatFloat(a), formatFloat(b)), nil
			default:
				return fmt.Sprintf("%s = %s", formatFloat(a), formatFloat(b)), nil
			}
		},
	})

	r.Register(Tool{
		Definition: def("format_number", "Format a number with thousands separators.", objectSchema([]string{"value"}, map[string]any{
			"value":    numberProp("The number to format."),
			"decimals": numberProp("Decimal places to keep. Defaults to 2 for fractions, 0 for integers."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			value, ok := floatArg(args, "value")
			if !ok {
				return "", fmt.Errorf("value must be a number")
			}
			decimals := -1
			if d, ok := floatArg(args, "decimals"); ok {
				decimals = int(d)
			}
			return formatWithSeparators(value, decimals), nil
		},
	})

	r.Register(Tool{
		Definition: def("unit_convert", "Convert between units of length, mass and temperature.", objectSchema([]string{"value", "from", "to"}, map[string]any{
			"value": numberProp("The quantity to convert."),
			"from":  stringProp("Source unit, e.g. km, mi, kg, lb, c, f."),
			"to":    stringProp("Target unit."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			value, ok := floatArg(args, "value")
			if !ok {
				return "", fmt.Errorf("value must be a number")
			}
			converted, err := convertUnit(value, stringArg(args, "from"), stringArg(args, "to"))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s", formatFloat(converted), strings.ToLower(stringArg(args, "to"))), nil
		},
	})

	r.Register(Tool{
		Definition: def("extract_keywords", "Extract the most frequent keywords from text.", objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The text to analyze."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			keywords := ExtractKeywords(stringArg(args, "text"), 10)
			if len(keywords) == 0 {
				return "no keywords found", nil
			}
			return strings.Join(keywords, ", "), nil
		},
	})

	r.Register(Tool{
		Definition: def("extract_entities", "Extract capitalized names, emails and URLs from text.", objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The text to analyze."),
		})),
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			entities := extractEntities(stringArg(args, "text"))
			if len(entities) == 0 {
				return "no entities found", nil
			}
			return strings.Join(entities, ", "), nil
		},
	})
}
