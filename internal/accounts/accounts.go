// Package accounts resolves ";"-joined multi-account configuration values
// into aligned, capped account lists.
package accounts

import (
	"sort"
	"strconv"
	"strings"

	"trendpush/pkg/logx"
)

// Separator joins accounts in a configuration string.
const Separator = ";"

// Account is one resolved credential set for a channel.
type Account struct {
	// Index is the 0-based position in the configured list.
	Index int
	// Label is "account N" when the channel has several accounts, else "".
	Label string
	// Fields holds the aligned values by configuration key.
	Fields map[string]string
}

// Get returns the field value or "".
func (a Account) Get(key string) string { return a.Fields[key] }

// Parse splits raw on sep (Separator when empty) and trims every token.
// Blank tokens are kept as positional placeholders; the result is nil only
// when every token is blank.
func Parse(raw, sep string) []string {
	if sep == "" {
		sep = Separator
	}
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, sep)
	blank := true
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return parts
}

// ValidatePaired checks that lists configured together line up.
//
// All lists empty, or any required list empty, means "not configured":
// (true, 0). Non-empty lists of differing lengths fail closed: (false, 0).
// Otherwise the shared length is returned.
func ValidatePaired(lists map[string][]string, required []string) (ok bool, count int) {
	nonEmpty := 0
	for _, l := range lists {
		if len(l) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return true, 0
	}
	for _, k := range required {
		if len(lists[k]) == 0 {
			return true, 0
		}
	}
	n := -1
	for _, l := range lists {
		if len(l) == 0 {
			continue
		}
		if n >= 0 && len(l) != n {
			return false, 0
		}
		n = len(l)
	}
	return true, n
}

// Limit keeps the first max entries, warning when it drops any.
func Limit(list []string, max int, channel string, log logx.Logger) []string {
	if max <= 0 || len(list) <= max {
		return list
	}
	log.Warn("too many accounts configured; extra accounts ignored",
		logx.String("channel", channel),
		logx.Int("configured", len(list)),
		logx.Int("max", max),
	)
	return list[:max]
}

// At returns list[i], or def when i is out of range or the entry is blank.
func At(list []string, i int, def string) string {
	if i < 0 || i >= len(list) || list[i] == "" {
		return def
	}
	return list[i]
}

// Label names account i of n for logs.
func Label(i, n int) string {
	if n <= 1 {
		return ""
	}
	return "account " + strconv.Itoa(i+1)
}

// Spec describes how a channel's account keys are resolved.
type Spec struct {
	Channel string
	// Primary drives the account count and is always required.
	Primary string
	// Paired keys must match Primary's length exactly.
	Paired []string
	// Optional keys are aligned with At and may be shorter, but a non-empty
	// optional list of a different length still disables the channel.
	Optional []string
	// Max caps the account count. 0 means no cap.
	Max int
}

// Resolve turns raw ";"-joined values into accounts. A nil slice with a nil
// error means the channel is not configured. A non-nil error means the
// configuration is inconsistent and the channel must be skipped.
//
// Positions where the primary or any paired value is blank are skipped, but
// keep their index so labels stay stable.
func Resolve(spec Spec, raw map[string]string, log logx.Logger) ([]Account, error) {
	lists := make(map[string][]string, 1+len(spec.Paired)+len(spec.Optional))
	lists[spec.Primary] = Parse(raw[spec.Primary], Separator)
	for _, k := range spec.Paired {
		lists[k] = Parse(raw[k], Separator)
	}
	required := append([]string{spec.Primary}, spec.Paired...)

	ok, n := ValidatePaired(lists, required)
	if !ok {
		return nil, &MismatchError{Channel: spec.Channel, Lengths: lengths(lists)}
	}
	if n == 0 {
		return nil, nil
	}

	optional := make(map[string][]string, len(spec.Optional))
	for _, k := range spec.Optional {
		l := Parse(raw[k], Separator)
		if len(l) > 0 && len(l) != n {
			ls := lengths(lists)
			ls[k] = len(l)
			return nil, &MismatchError{Channel: spec.Channel, Lengths: ls}
		}
		optional[k] = l
	}

	primary := Limit(lists[spec.Primary], spec.Max, spec.Channel, log)
	total := len(primary)

	out := make([]Account, 0, total)
	for i := 0; i < total; i++ {
		fields := map[string]string{spec.Primary: primary[i]}
		usable := primary[i] != ""
		for _, k := range spec.Paired {
			v := At(lists[k], i, "")
			fields[k] = v
			usable = usable && v != ""
		}
		if !usable {
			continue
		}
		for k, l := range optional {
			fields[k] = At(l, i, "")
		}
		out = append(out, Account{Index: i, Label: Label(i, total), Fields: fields})
	}
	return out, nil
}

// MismatchError reports paired lists of differing lengths.
type MismatchError struct {
	Channel string
	Lengths map[string]int
}

func (e *MismatchError) Error() string {
	keys := make([]string, 0, len(e.Lengths))
	for k := range e.Lengths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Itoa(e.Lengths[k]))
	}
	return "accounts: " + e.Channel + ": paired values differ in count (" + strings.Join(parts, ", ") + ")"
}

func lengths(lists map[string][]string) map[string]int {
	out := make(map[string]int, len(lists))
	for k, l := range lists {
		out[k] = len(l)
	}
	return out
}
