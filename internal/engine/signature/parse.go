// Package signature recovers the cipher transformation from YouTube's player
// script and applies it to scrambled stream signatures.
package signature

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_tracks/internal/engine/tracks"
)

// Op is one primitive string operation of the cipher.
type Op int

const (
	RemoveFront Op = iota + 1
	Reverse
	Swap
)

func (o Op) String() string {
	switch o {
	case RemoveFront:
		return "remove-front"
	case Reverse:
		return "reverse"
	case Swap:
		return "swap"
	}
	return "unknown"
}

// Part is an operation with its call-site argument.
type Part struct {
	Op Op
	N  int
}

func (p Part) String() string { return fmt.Sprintf("%s(%d)", p.Op, p.N) }

// ErrLayout means the helper object or the driver function was not found,
// i.e. the player script changed shape.
var ErrLayout = fmt.Errorf("%w: player script layout not recognised", tracks.ErrDescramblingFailed)

const jsVar = `[a-zA-Z_$][\w$]*`

var (
	// function(a){a=a.split("");Xy.ab(a,3);...;return a.join("")}
	driverRe = regexp.MustCompile(`(?s)function(?:\s+` + jsVar + `)?\(a\)\{\s*a=a\.split\(""\);(.*?)return a\.join\(""\)\s*\}`)
	callRe   = regexp.MustCompile(`(?:a=)?(` + jsVar + `)\.(` + jsVar + `)\(a,(\d+)\)`)
	entryRe  = regexp.MustCompile(`(` + jsVar + `):function\(([^)]*)\)\{([^}]*)\}`)
	swapRe   = regexp.MustCompile(`a\[0\]\s*=\s*a\[b(?:%a\.length)?\]`)
)

// Parse extracts the ordered operation sequence from a player script.
func Parse(script string) ([]Part, error) {
	dm := driverRe.FindStringSubmatch(script)
	if dm == nil {
		return nil, fmt.Errorf("%w: driver function not found", ErrLayout)
	}
	calls := callRe.FindAllStringSubmatch(dm[1], -1)
	if len(calls) == 0 {
		return nil, fmt.Errorf("%w: driver has no helper calls", ErrLayout)
	}
	obj := calls[0][1]

	helpers, err := parseHelpers(script, obj)
	if err != nil {
		return nil, err
	}

	parts := make([]Part, 0, len(calls))
	for _, c := range calls {
		if c[1] != obj {
			continue
		}
		op, ok := helpers[c[2]]
		if !ok {
			continue
		}
		n, _ := strconv.Atoi(c[3])
		parts = append(parts, Part{Op: op, N: n})
	}
	return parts, nil
}

// parseHelpers classifies every method of the helper object named obj.
func parseHelpers(script, obj string) (map[string]Op, error) {
	objRe, err := regexp.Compile(`(?s)(?:var|let|const)\s+` + regexp.QuoteMeta(obj) + `\s*=\s*\{(.*?)\};`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLayout, err)
	}
	m := objRe.FindStringSubmatch(script)
	if m == nil {
		return nil, fmt.Errorf("%w: helper object %q not found", ErrLayout, obj)
	}

	helpers := make(map[string]Op)
	for _, e := range entryRe.FindAllStringSubmatch(m[1], -1) {
		if op, ok := classify(e[3]); ok {
			helpers[e[1]] = op
		}
	}
	if len(helpers) == 0 {
		return nil, fmt.Errorf("%w: helper object %q has no known operations", ErrLayout, obj)
	}
	return helpers, nil
}

// classify maps a helper body to its operation. Splice at 0 and slice both
// drop a prefix; only the call-site argument differs.
func classify(body string) (Op, bool) {
	switch {
	case strings.Contains(body, ".reverse()"):
		return Reverse, true
	case swapRe.MatchString(body):
		return Swap, true
	case strings.Contains(body, ".splice(0,"), strings.Contains(body, ".slice("):
		return RemoveFront, true
	}
	return 0, false
}

// Apply runs parts over cipher and returns the signature.
func Apply(parts []Part, cipher string) string {
	b := []byte(cipher)
	for _, p := range parts {
		switch p.Op {
		case RemoveFront:
			n := min(max(p.N, 0), len(b))
			b = b[n:]
		case Reverse:
			for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
				b[i], b[j] = b[j], b[i]
			}
		case Swap:
			if len(b) == 0 {
				continue
			}
			k := p.N % len(b)
			b[0], b[k] = b[k], b[0]
		}
	}
	return string(b)
}
