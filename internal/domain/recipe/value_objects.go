package recipe

import (
	"net/url"
	"strings"
)

// Locale selects the language the simplified recipe is written in.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleCzech   Locale = "cs"

	DefaultLocale = LocaleEnglish
)

var localeLanguages = map[Locale]string{
	LocaleEnglish: "English",
	LocaleCzech:   "Czech",
}

// ParseLocale maps a client supplied locale onto a supported one. Anything
// unrecognized falls back to English.
func ParseLocale(raw string) Locale {
	l := Locale(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := localeLanguages[l]; ok {
		return l
	}
	return DefaultLocale
}

// Language is the English name of the locale's language, used in prompts.
func (l Locale) Language() string {
	if name, ok := localeLanguages[l]; ok {
		return name
	}
	return localeLanguages[DefaultLocale]
}

// Customizations are free-text instructions that alter how a recipe is
// rewritten, e.g. "make it vegan". Each non-blank entry counts once against
// the daily customization quota.
type Customizations []string

// NewCustomizations trims entries and drops blanks.
func NewCustomizations(items ...string) Customizations {
	out := make(Customizations, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitCustomizations accepts the legacy wire form where instructions were
// joined with "; " into a single string.
func SplitCustomizations(joined string) Customizations {
	return NewCustomizations(strings.Split(joined, ";")...)
}

func (c Customizations) Count() int {
	return len(c)
}

func (c Customizations) Empty() bool {
	return len(c) == 0
}

// Joined renders the instructions the way they are placed in the prompt.
func (c Customizations) Joined() string {
	return strings.Join(c, "; ")
}

// ValidateSourceURL checks that raw is present and an absolute http(s) URL.
func ValidateSourceURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	return u, nil
}
