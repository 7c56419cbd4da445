// Package sendrecv parses the single-letter `zfs send`/`zfs receive`
// option strings accepted by chithi's CLI (e.g. "v o encryption=on x
// mountpoint R") and reconstructs argv fragments restricted to a given
// allow-list of letters.
package sendrecv

import (
	"strings"

	"github.com/ifazk/chithi/internal/errors"
)

// optionLine is one parsed flag: a single letter, with an optional
// parameter when the letter is 'o', 'x', or 'X'.
type optionLine struct {
	option byte
	param  string
	hasArg bool
}

// Opts is a parsed send/recv option string.
type Opts struct {
	options []optionLine
}

func takesParam(c byte) bool {
	return c == 'o' || c == 'x' || c == 'X'
}

// Parse runs the two-state DFA described in §6: space-separated tokens
// are either single-letter flags, or — immediately following an 'o',
// 'x', or 'X' — that flag's parameter value.
func Parse(value string) (Opts, error) {
	parsingOptions := true
	var lastOption byte
	haveLastOption := false
	var options []optionLine

	for _, tok := range strings.Split(value, " ") {
		if tok == "" {
			continue
		}
		if parsingOptions {
			for i := 0; i < len(tok); i++ {
				c := tok[i]
				if haveLastOption {
					return Opts{}, errors.New(errors.SendRecvParseFailed,
						"found another single letter option after o, x, or X instead of the option value")
				}
				if takesParam(c) {
					lastOption = c
					haveLastOption = true
					parsingOptions = false
				} else {
					options = append(options, optionLine{option: c})
				}
			}
		} else {
			options = append(options, optionLine{option: lastOption, param: tok, hasArg: true})
			parsingOptions = true
			haveLastOption = false
		}
	}
	if haveLastOption {
		return Opts{}, errors.New(errors.SendRecvParseFailed, "did not find value after o, x, or X option")
	}
	return Opts{options: options}, nil
}

// FilterAllowed reconstructs an argv fitting only the letters in allowed:
// contiguous no-param flags are bundled behind one leading "-"; a flag
// with a parameter flushes that bundle first, then emits its own
// freshly-dashed token followed by the parameter as a separate argv
// entry.
func (o Opts) FilterAllowed(allowed string) []string {
	var res []string
	dashed := "-"
	for _, opt := range o.options {
		if !strings.ContainsRune(allowed, rune(opt.option)) {
			continue
		}
		if opt.hasArg {
			if len(dashed) > 1 {
				res = append(res, dashed)
				dashed = "-"
			}
			res = append(res, "-"+string(opt.option), opt.param)
			continue
		}
		dashed += string(opt.option)
	}
	if len(dashed) > 1 {
		res = append(res, dashed)
	}
	return res
}

// String renders the parsed options in dashed form for diagnostics:
// no-param flags bundle behind one "-", and a flag with a parameter is
// followed by that value, e.g. "-vo encryption=on -R".
func (o Opts) String() string {
	var b strings.Builder
	dashPrinted := false
	afterParam := false
	for _, opt := range o.options {
		if afterParam {
			b.WriteByte(' ')
			afterParam = false
		}
		if !dashPrinted {
			b.WriteByte('-')
			dashPrinted = true
		}
		b.WriteByte(opt.option)
		if opt.hasArg {
			b.WriteByte(' ')
			b.WriteString(opt.param)
			dashPrinted = false
			afterParam = true
		}
	}
	return b.String()
}
