package helpers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Optional returns the named helper that is not registered by default.
// locale is the default for the formatting helpers.
func Optional(name, locale string) (Helper, bool) {
	switch name {
	case "markdown":
		return Markdown, true
	case "date":
		return Date(locale), true
	case "number":
		return Number(locale), true
	case "currency":
		return Currency(locale), true
	}
	return nil, false
}

func argError(helper, format string, a ...any) error {
	return perrors.New("HELPER-0003", map[string]any{"Helper": helper, "Reason": fmt.Sprintf(format, a...)})
}

// renderTrimmed renders body and trims the result.
func renderTrimmed(s *mustache.Section, body string) (string, error) {
	text, err := s.Render(body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// parseLocale returns the tag for name, falling back to def when name is
// empty. Underscores are accepted in place of hyphens.
func parseLocale(helper, name, def string) (language.Tag, error) {
	if name == "" {
		name = def
	}
	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return language.Und, argError(helper, "invalid locale %q", name)
	}
	return tag, nil
}

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_pt": monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"nl_be": monday.LocaleNlBE,
	"ru":    monday.LocaleRuRU,
	"pl":    monday.LocalePlPL,
	"sv":    monday.LocaleSvSE,
	"ja":    monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"ko":    monday.LocaleKoKR,
}

func mondayLocale(tag language.Tag) monday.Locale {
	key := strings.ToLower(strings.ReplaceAll(tag.String(), "-", "_"))
	if loc, ok := mondayLocales[key]; ok {
		return loc
	}
	base, _ := tag.Base()
	if loc, ok := mondayLocales[base.String()]; ok {
		return loc
	}
	return monday.LocaleEnUS
}

// dateLayout returns the layout for a style. monday translates the month
// and weekday names in it.
func dateLayout(style string, loc monday.Locale) (string, bool) {
	cjk := loc == monday.LocaleJaJP || loc == monday.LocaleZhCN || loc == monday.LocaleKoKR
	us := loc == monday.LocaleEnUS

	switch style {
	case "iso":
		return "2006-01-02", true
	case "short":
		switch {
		case us:
			return "1/2/06", true
		case cjk:
			return "06/01/02", true
		case loc == monday.LocaleDeDE:
			return "02.01.06", true
		}
		return "02/01/06", true
	case "medium":
		switch {
		case us:
			return "Jan 2, 2006", true
		case cjk:
			return "2006/1/2", true
		}
		return "2 Jan 2006", true
	case "long":
		switch {
		case us:
			return "January 2, 2006", true
		case cjk:
			return "2006/1/2", true
		}
		return "2 January 2006", true
	case "full":
		switch {
		case us:
			return "Monday, January 2, 2006", true
		case cjk:
			return "2006/1/2 Monday", true
		}
		return "Monday 2 January 2006", true
	}
	return "", false
}

// Date renders body, parses the result as a date and formats it.
//
//	{{#date long}}{{published}}{{/date}}
//	{{#date short fr-FR}}{{published}}{{/date}}
//
// The style is one of iso, short, medium, long or full and defaults to
// medium.
func Date(locale string) Helper {
	return func(s *mustache.Section, args, body string) (string, error) {
		fields := strings.Fields(args)
		style := "medium"
		if len(fields) > 0 {
			style = fields[0]
		}
		var name string
		if len(fields) > 1 {
			name = fields[1]
		}

		tag, err := parseLocale("date", name, locale)
		if err != nil {
			return "", err
		}
		loc := mondayLocale(tag)
		layout, ok := dateLayout(style, loc)
		if !ok {
			return "", argError("date", "unknown style %q (must be iso, short, medium, long, or full)", style)
		}

		text, err := renderTrimmed(s, body)
		if err != nil || text == "" {
			return "", err
		}
		t, err := dateparse.ParseAny(text)
		if err != nil {
			return "", argError("date", "cannot parse %q as a date", text)
		}
		return monday.Format(t, layout, loc), nil
	}
}

func parseNumber(helper, text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, argError(helper, "cannot parse %q as a number", text)
	}
	return f, nil
}

// Number renders body and formats the result as a decimal number with the
// grouping and separators of the locale in args.
//
//	{{#number de-DE}}{{total}}{{/number}}
func Number(locale string) Helper {
	return func(s *mustache.Section, args, body string) (string, error) {
		tag, err := parseLocale("number", strings.TrimSpace(args), locale)
		if err != nil {
			return "", err
		}
		text, err := renderTrimmed(s, body)
		if err != nil || text == "" {
			return "", err
		}
		f, err := parseNumber("number", text)
		if err != nil {
			return "", err
		}
		return message.NewPrinter(tag).Sprintf("%v", number.Decimal(f)), nil
	}
}

// Currency renders body and formats the result as an amount in the ISO 4217
// currency named by the first argument.
//
//	{{#currency EUR fr-FR}}{{price}}{{/currency}}
func Currency(locale string) Helper {
	return func(s *mustache.Section, args, body string) (string, error) {
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return "", argError("currency", "missing currency code")
		}
		cur, err := currency.ParseISO(fields[0])
		if err != nil {
			return "", argError("currency", "unknown currency code %q", fields[0])
		}
		var name string
		if len(fields) > 1 {
			name = fields[1]
		}
		tag, err := parseLocale("currency", name, locale)
		if err != nil {
			return "", err
		}

		text, err := renderTrimmed(s, body)
		if err != nil || text == "" {
			return "", err
		}
		f, err := parseNumber("currency", text)
		if err != nil {
			return "", err
		}
		return message.NewPrinter(tag).Sprintf("%v", currency.Symbol(cur.Amount(f))), nil
	}
}
